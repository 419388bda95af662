package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lab_inventory/app"
	"lab_inventory/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	dataCtl := controllers.NewDataController(s)
	itemCtl := controllers.NewItemController(s)
	loanCtl := controllers.NewLoanController(s)
	userCtl := controllers.NewUserController(s)
	fbCtl := controllers.NewFeedbackController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.Sessions, a.Engine, a.Config)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(a.Engine, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 注册/登录（公开）
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authCtl.Signup)
		auth.POST("/login", authCtl.Login)
	}

	api := r.Group("/api", authMW, seenMW)
	{
		api.POST("/auth/logout", authCtl.Logout)
		api.GET("/auth/me", authCtl.Me)
		api.GET("/initial-data", dataCtl.InitialData)
		api.GET("/report", dataCtl.StatusReport)

		api.GET("/items", itemCtl.ListItems)
		api.GET("/items/:id", itemCtl.GetItem)

		api.GET("/loans", loanCtl.ListLogs) // ?userId=&itemId=&status=
		api.GET("/loans/:id", loanCtl.GetLog)
		api.POST("/loans", loanCtl.RequestBorrow)
		api.POST("/loans/:id/request-return", loanCtl.RequestReturn)

		api.POST("/suggestions", fbCtl.SubmitSuggestion)
		api.POST("/suggestions/:id/comments", fbCtl.AddComment)
	}

	// ------------------------------
	// 管理（仅管理员）
	// ------------------------------
	admin := r.Group("/api", authMW, seenMW, adminMW)
	{
		admin.POST("/items", itemCtl.CreateItem)
		admin.POST("/items/import", itemCtl.ImportItems)
		admin.GET("/items/export", itemCtl.ExportItems) // ?format=csv|xlsx
		admin.PUT("/items/:id", itemCtl.UpdateItem)
		admin.PATCH("/items/:id/capacity", itemCtl.AdjustCapacity)
		admin.DELETE("/items/:id", itemCtl.DeleteItem)

		admin.POST("/loans/:id/approve", loanCtl.ApproveBorrow)
		admin.POST("/loans/:id/deny", loanCtl.DenyBorrow)
		admin.POST("/loans/:id/complete-return", loanCtl.CompleteReturn)

		admin.GET("/users", userCtl.ListUsers) // ?q=&page=&size=
		admin.GET("/users/:id", userCtl.GetUser)
		admin.PUT("/users/:id", userCtl.UpdateUser)
		admin.POST("/users/:id/approve", userCtl.ApproveUser)
		admin.POST("/users/:id/deny", userCtl.DenyUser)
		admin.DELETE("/users/:id", userCtl.DeleteUser)

		admin.POST("/suggestions/:id/approve-item", fbCtl.ApproveItemSuggestion)
		admin.POST("/suggestions/:id/approve-feature", fbCtl.ApproveFeatureSuggestion)
		admin.POST("/suggestions/:id/deny", fbCtl.DenySuggestion)
	}
}
