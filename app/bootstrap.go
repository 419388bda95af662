// app/bootstrap.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"

	"lab_inventory/config"
	"lab_inventory/inventory"
)

// BootstrapAdmin makes sure the default admin exists and is usable. Without a configured
// password a random one is generated and printed once.
func BootstrapAdmin(ctx context.Context, eng *inventory.Engine, cfg config.BootstrapConfig) error {
	password := cfg.AdminPassword
	generated := false
	if password == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		password = hex.EncodeToString(buf)
		generated = true
	}

	u, created, err := eng.EnsureAdmin(ctx, inventory.AdminSeed{
		Username: cfg.AdminUsername,
		FullName: cfg.AdminFullName,
		Email:    cfg.AdminEmail,
		Password: password,
	})
	if err != nil {
		return err
	}
	if !created {
		zap.S().Infof("[BOOTSTRAP] admin %s present", u.Username)
		return nil
	}
	zap.S().Infof("[BOOTSTRAP] created admin %s", u.Username)
	if generated {
		zap.S().Warnf("[BOOTSTRAP] generated password for %s: %s (change it after first login)", u.Username, password)
	}
	return nil
}
