package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lab_inventory/boltstore"
	"lab_inventory/cache"
	"lab_inventory/config"
	"lab_inventory/credential"
	"lab_inventory/db"
	"lab_inventory/inventory"
	"lab_inventory/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	Config   *config.Config
	Store    inventory.Store
	RDB      *redis.Client
	Engine   *inventory.Engine
	Sessions *session.Store
	Reports  *cache.ReportCache

	sched   *cron.Cron
	closers []func() error
}

// OpenStore opens the configured backing store and returns its closer.
func OpenStore(cfg *config.Config) (inventory.Store, func() error, error) {
	switch cfg.Database.Driver {
	case config.DriverBolt:
		s, err := boltstore.Open(cfg.Database.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		zap.S().Infof("using bolt store at %s", cfg.Database.BoltPath)
		return s, s.Close, nil
	default:
		conn, err := db.ConnectDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(conn); err != nil {
			return nil, nil, err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, nil, errors.Wrap(err, "database handle")
		}
		return db.NewRepo(conn), sqlDB.Close, nil
	}
}

func NewRedis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis")
	}
	return rdb, nil
}

// New wires the full application from configuration.
func New(cfg *config.Config) (*App, error) {
	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := NewRedis(cfg)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	a := Assemble(cfg, store, rdb)
	a.closers = append(a.closers, closeStore)
	return a, nil
}

// Assemble builds the engine, sessions, report cache and router over ready connections.
func Assemble(cfg *config.Config, store inventory.Store, rdb *redis.Client) *App {
	eng := inventory.New(store, credential.NewBcrypt(0))

	r := gin.Default()
	useCORS(r, cfg.Server.WebOrigin)

	return &App{
		Router:   r,
		Config:   cfg,
		Store:    store,
		RDB:      rdb,
		Engine:   eng,
		Sessions: session.NewStore(rdb, cfg.SessionTTL()),
		Reports:  cache.NewReportCache(rdb, cfg.ReportTTL(), eng.StatusReport),
		closers:  []func() error{rdb.Close},
	}
}

func (a *App) Close() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.S().Warnf("close: %v", err)
		}
	}
}
