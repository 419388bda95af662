package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lab_inventory/config"
	"lab_inventory/inventory"
	"lab_inventory/models"
	"lab_inventory/session"
)

const AppSessionCookie = "app_session"

// Context keys set by AuthRequired.
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxIsAdmin  = "isAdmin"
)

// IsAdminUser: is_admin 标记，或邮箱在 admin.emails 白名单里
func IsAdminUser(cfg *config.Config, u *models.User) bool {
	if u.IsAdmin {
		return true
	}
	email := strings.ToLower(u.Email)
	for _, admin := range cfg.Admin.Emails {
		if email == admin {
			return true
		}
	}
	return false
}

func AuthRequired(sessions *session.Store, eng *inventory.Engine, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "kind": "unauthorized"})
			return
		}
		sess, err := sessions.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session", "kind": "unauthorized"})
			return
		}

		// 确认用户仍存在且仍是 APPROVED
		u, err := eng.GetUser(c.Request.Context(), sess.UserID)
		if err != nil || u.Status != models.UserApproved {
			_ = sessions.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "kind": "unauthorized"})
			return
		}
		c.Set(CtxUserID, u.ID)
		c.Set(CtxUsername, u.Username)
		c.Set(CtxIsAdmin, IsAdminUser(cfg, u))

		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "kind": "unauthorized"})
			return
		}
		if !c.GetBool(CtxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "kind": "forbidden"})
			return
		}
		c.Next()
	}
}
