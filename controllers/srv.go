// controllers/srv.go
package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lab_inventory/app"
	"lab_inventory/cache"
	"lab_inventory/config"
	"lab_inventory/inventory"
	"lab_inventory/session"
)

type Srv struct {
	Engine    *inventory.Engine
	Sessions  *session.Store
	Reports   *cache.ReportCache
	WebOrigin string
	Cfg       *config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Engine:    a.Engine,
		Sessions:  a.Sessions,
		Reports:   a.Reports,
		WebOrigin: a.Config.Server.WebOrigin,
		Cfg:       a.Config,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	s.setAppCookie(w, "", -time.Second)
}

// 登录成功：创建会话并写 Cookie
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string) error {
	id, err := s.Sessions.Create(ctx, userID)
	if err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Sessions.TTL())
	return nil
}

// 写操作成功后让报表缓存失效
func (s *Srv) invalidateReport(c *gin.Context) {
	if s.Reports != nil {
		s.Reports.Invalidate(c.Request.Context())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInvalidState),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, inventory.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "kind"}; server-side failures are logged and not leaked.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	kind := inventory.KindName(err)
	msg := inventory.Message(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", kind),
			zap.Error(err))
		if kind == "" {
			kind = "internal"
			msg = "internal server error"
		}
	}
	c.JSON(status, app.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg, "kind": "validation"})
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

// bindOptionalJSON allows an empty body but rejects a malformed one.
func bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

func currentUserID(c *gin.Context) string { return c.GetString(app.CtxUserID) }

func isAdmin(c *gin.Context) bool { return c.GetBool(app.CtxIsAdmin) }

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}
