package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_inventory/config"
	"lab_inventory/inventory"
	"lab_inventory/models"
	"lab_inventory/session"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Server.WebOrigin = "http://localhost:5173"
	cfg.Database.Driver = config.DriverBolt
	cfg.Database.BoltPath = filepath.Join(t.TempDir(), "lab.db")
	cfg.Session.TTLSeconds = 3600
	cfg.Report.TTLSeconds = 60
	cfg.Admin.Emails = []string{"chief@lab.io"}
	cfg.Jobs.AuditSchedule = "@every 10m"
	cfg.Jobs.ReportSchedule = "@every 5m"
	cfg.Bootstrap = config.BootstrapConfig{
		AdminUsername: "admin",
		AdminFullName: "Lab Administrator",
		AdminEmail:    "admin@lab.local",
		AdminPassword: "admin-pass",
	}
	return cfg
}

func newTestApp(t *testing.T) (*App, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	store, closeStore, err := OpenStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeStore() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := Assemble(cfg, store, rdb)
	t.Cleanup(a.Close)
	return a, mr
}

func signupApproved(t *testing.T, eng *inventory.Engine, username, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	res, err := eng.Signup(ctx, inventory.SignupInput{
		Username: username, FullName: username + " Santos", Email: email, Password: "secret",
	})
	require.NoError(t, err)
	u, err := eng.ApproveUser(ctx, res.User.ID)
	require.NoError(t, err)
	return u
}

func TestBootstrapAdmin(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, BootstrapAdmin(ctx, a.Engine, a.Config.Bootstrap))
	require.NoError(t, BootstrapAdmin(ctx, a.Engine, a.Config.Bootstrap))

	page, err := a.Engine.ListUsers(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	u, err := a.Engine.Authenticate(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, models.UserApproved, u.Status)
}

func TestBootstrapAdmin_GeneratedPassword(t *testing.T) {
	a, _ := newTestApp(t)
	seed := a.Config.Bootstrap
	seed.AdminPassword = ""
	require.NoError(t, BootstrapAdmin(context.Background(), a.Engine, seed))

	_, err := a.Engine.Authenticate(context.Background(), "admin", "")
	assert.ErrorIs(t, err, inventory.ErrUnauthorized)
}

func TestIsAdminUser(t *testing.T) {
	cfg := testConfig(t)
	assert.True(t, IsAdminUser(cfg, &models.User{IsAdmin: true}))
	assert.True(t, IsAdminUser(cfg, &models.User{Email: "Chief@Lab.io"}))
	assert.False(t, IsAdminUser(cfg, &models.User{Email: "ana@lab.io"}))
}

func TestAuthMiddleware(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, BootstrapAdmin(ctx, a.Engine, a.Config.Bootstrap))
	ana := signupApproved(t, a.Engine, "ana", "ana@lab.io")
	chief := signupApproved(t, a.Engine, "chief", "chief@lab.io")

	r := gin.New()
	authMW := AuthRequired(a.Sessions, a.Engine, a.Config)
	r.GET("/me", authMW, func(c *Ctx) { c.JSON(http.StatusOK, H{"id": c.GetString(CtxUserID)}) })
	r.GET("/admin", authMW, AdminOnly(), func(c *Ctx) { c.JSON(http.StatusOK, H{"ok": true}) })

	call := func(path, sid string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if sid != "" {
			req.AddCookie(&http.Cookie{Name: AppSessionCookie, Value: sid})
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	anaSID, err := a.Sessions.Create(ctx, ana.ID)
	require.NoError(t, err)
	chiefSID, err := a.Sessions.Create(ctx, chief.ID)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call("/me", ""))
	assert.Equal(t, http.StatusOK, call("/me", anaSID))
	assert.Equal(t, http.StatusForbidden, call("/admin", anaSID))
	// 白名单邮箱视为管理员
	assert.Equal(t, http.StatusOK, call("/admin", chiefSID))

	// 被拒绝的用户：会话被清除
	_, err = a.Engine.DenyUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("/me", anaSID))
	_, err = a.Sessions.Get(ctx, anaSID)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestAdminOnly_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminOnly(), func(c *Ctx) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTouchLastSeen_Throttled(t *testing.T) {
	a, mr := newTestApp(t)
	ctx := context.Background()
	ana := signupApproved(t, a.Engine, "ana", "ana@lab.io")

	r := gin.New()
	r.GET("/ping", func(c *Ctx) { c.Set(CtxUserID, ana.ID) }, TouchLastSeen(a.Engine, a.RDB, time.Minute),
		func(c *Ctx) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	u, err := a.Engine.GetUser(ctx, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, u.LastSeenAt)
	first := *u.LastSeenAt

	assert.True(t, mr.Exists("lab:lastseen:"+ana.ID))
	assert.Equal(t, time.Minute, mr.TTL("lab:lastseen:"+ana.ID))

	time.Sleep(5 * time.Millisecond)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	u, err = a.Engine.GetUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(*u.LastSeenAt), "second touch inside the window must be skipped")

	mr.FastForward(2 * time.Minute)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	u, err = a.Engine.GetUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, u.LastSeenAt.After(first))
}

func TestJobs(t *testing.T) {
	a, mr := newTestApp(t)
	ctx := context.Background()
	_, err := a.Engine.CreateItem(ctx, inventory.NewItem{Name: "Beaker", Category: "Glassware", TotalQuantity: 3})
	require.NoError(t, err)

	assert.NotPanics(t, a.SchedStockAuditTask)

	assert.False(t, mr.Exists("lab:report:status:0"))
	a.SchedReportWarmTask()
	assert.True(t, mr.Exists("lab:report:status:0"))

	require.NoError(t, a.StartJobs())
}

func TestStartJobs_BadSchedule(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Jobs.AuditSchedule = "every now and then"
	assert.Error(t, a.StartJobs())
}
