// controllers/loans_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab_inventory/app"
	"lab_inventory/inventory"
	"lab_inventory/models"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// POST /api/loans  {itemId, quantity}  借用申请，借用人为当前登录用户
func (lc *LoanController) RequestBorrow(c *gin.Context) {
	var in struct {
		ItemID   string `json:"itemId" binding:"required"`
		Quantity int    `json:"quantity"`
	}
	if !bindJSON(c, &in) {
		return
	}
	res, err := lc.Engine.RequestBorrow(c.Request.Context(), currentUserID(c), in.ItemID, in.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	lc.invalidateReport(c)
	c.JSON(http.StatusCreated, res)
}

// POST /api/loans/:id/approve
func (lc *LoanController) ApproveBorrow(c *gin.Context) {
	res, err := lc.Engine.ApproveBorrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	lc.invalidateReport(c)
	c.JSON(http.StatusOK, res)
}

// POST /api/loans/:id/deny  {reason}
func (lc *LoanController) DenyBorrow(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	if !bindOptionalJSON(c, &in) {
		return
	}
	l, err := lc.Engine.DenyBorrow(c.Request.Context(), c.Param("id"), in.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	lc.invalidateReport(c)
	c.JSON(http.StatusOK, app.H{"updatedLog": l})
}

// POST /api/loans/:id/request-return  只有借用人本人或管理员
func (lc *LoanController) RequestReturn(c *gin.Context) {
	ctx := c.Request.Context()
	l, err := lc.Engine.GetLog(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if l.UserID != currentUserID(c) && !isAdmin(c) {
		c.JSON(http.StatusForbidden, app.H{"error": "only the borrower can request a return", "kind": "forbidden"})
		return
	}
	res, err := lc.Engine.RequestReturn(ctx, l.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/loans/:id/complete-return  {adminNotes}
func (lc *LoanController) CompleteReturn(c *gin.Context) {
	var in struct {
		AdminNotes string `json:"adminNotes"`
	}
	if !bindOptionalJSON(c, &in) {
		return
	}
	res, err := lc.Engine.CompleteReturn(c.Request.Context(), c.Param("id"), in.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	lc.invalidateReport(c)
	c.JSON(http.StatusOK, res)
}

// GET /api/loans?userId=&itemId=&status=  普通用户只能看自己的
func (lc *LoanController) ListLogs(c *gin.Context) {
	f := inventory.LogFilter{
		UserID: c.Query("userId"),
		ItemID: c.Query("itemId"),
		Status: models.LogStatus(c.Query("status")),
	}
	if !isAdmin(c) {
		f.UserID = currentUserID(c)
	}
	logs, err := lc.Engine.ListLogs(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"logs": logs})
}

// GET /api/loans/:id
func (lc *LoanController) GetLog(c *gin.Context) {
	l, err := lc.Engine.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if l.UserID != currentUserID(c) && !isAdmin(c) {
		c.JSON(http.StatusNotFound, app.H{"error": "log not found", "kind": "not_found"})
		return
	}
	c.JSON(http.StatusOK, l)
}
