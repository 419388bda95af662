package db

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lab_inventory/config"
	"lab_inventory/models"
)

// ConnectDB opens Postgres with unique/foreign-key errors translated to gorm sentinels.
func ConnectDB(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	}
	conn, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	zap.S().Infof("database connected: %s@%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Name)
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Tables...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	stmts := []string{
		// 用户名、邮箱大小写不敏感唯一
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_username_lower ON %s (LOWER(username))`, models.UserTable, models.UserTable),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_email_lower ON %s (LOWER(email))`, models.UserTable, models.UserTable),
		// 删除用户前统计未归还借用
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_status ON %s (user_id, status)`, models.LogTable, models.LogTable),
		// 待审批列表
		fmt.Sprintf(`
		  CREATE INDEX IF NOT EXISTS %s_pending_ts_desc
		  ON %s (timestamp DESC)
		  WHERE status = 'PENDING';
		`, models.LogTable, models.LogTable),
		// 一条 BORROW 最多对应一条 RETURN
		fmt.Sprintf(`
		  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_return_per_borrow
		  ON %s (related_log_id)
		  WHERE action = 'RETURN';
		`, models.LogTable, models.LogTable),
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return errors.Wrap(err, "create index")
		}
	}
	return nil
}
