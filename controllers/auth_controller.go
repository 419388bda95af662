package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_inventory/app"
	"lab_inventory/inventory"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /api/auth/signup
func (ac *AuthController) Signup(c *gin.Context) {
	var in inventory.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := ac.Engine.Signup(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.invalidateReport(c)
	c.JSON(http.StatusCreated, res)
}

// POST /api/auth/login  {identifier, password}；identifier 可为用户名、邮箱或 LRN
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &in) {
		return
	}
	u, err := ac.Engine.Authenticate(c.Request.Context(), in.Identifier, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u, "isAdmin": app.IsAdminUser(ac.Cfg, u)})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.Sessions.Delete(c.Request.Context(), ck.Value)
	}
	ac.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	u, err := ac.Engine.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u, "isAdmin": isAdmin(c)})
}
