package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"lab_inventory/app"
	"lab_inventory/config"
	"lab_inventory/credential"
	"lab_inventory/inventory"
	"lab_inventory/routes"
)

func main() {
	config.LoadEnv()

	cfgPath := flag.String("c", envOr("CONFIG_FILE", "config.yaml"), "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := app.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cmd := flag.Arg(0)
	switch cmd {
	case "", "serve":
		err = serve(cfg)
	case "init-db":
		err = initDB(cfg)
	default:
		err = fmt.Errorf("unknown command %q (serve|init-db)", cmd)
	}
	if err != nil {
		zap.S().Errorf("%s: %v", cmd, err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = app.BootstrapAdmin(ctx, application.Engine, cfg.Bootstrap)
	cancel()
	if err != nil {
		return err
	}
	if err := application.StartJobs(); err != nil {
		return err
	}

	routes.RegisterRoutes(application.Router, application)

	zap.S().Infof("listening on %s", cfg.Addr())
	return application.Router.Run(cfg.Addr())
}

// initDB 建表并创建默认管理员后退出
func initDB(cfg *config.Config) error {
	store, closeStore, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	eng := inventory.New(store, credential.NewBcrypt(0))
	if err := app.BootstrapAdmin(ctx, eng, cfg.Bootstrap); err != nil {
		return err
	}
	zap.S().Info("database initialised")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
