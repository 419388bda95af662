package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab_inventory/app"
	"lab_inventory/inventory"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	res, err := uc.Engine.ListUsers(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.Engine.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// PUT /api/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	var in inventory.UserUpdate
	if !bindJSON(c, &in) {
		return
	}
	u, err := uc.Engine.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	uc.invalidateReport(c)
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /api/users/:id/approve
func (uc *UserController) ApproveUser(c *gin.Context) {
	u, err := uc.Engine.ApproveUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /api/users/:id/deny
func (uc *UserController) DenyUser(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if id == currentUserID(c) {
		badRequest(c, "cannot deny yourself")
		return
	}
	u, err := uc.Engine.DenyUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uc.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		zap.L().Warn("revoke sessions failed", zap.String("user", u.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	// 不允许删除自己，避免锁死
	if id == currentUserID(c) {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself", "kind": "validation"})
		return
	}
	if err := uc.Engine.DeleteUser(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	if err := uc.Sessions.RevokeAllForUser(ctx, id); err != nil {
		zap.L().Warn("revoke sessions failed", zap.String("user", id), zap.Error(err))
	}
	uc.invalidateReport(c)
	c.JSON(http.StatusOK, app.H{"ok": true})
}
