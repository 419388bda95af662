package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gorm.io/gorm"

	"lab_inventory/inventory"
	"lab_inventory/models"
)

// Repo is the Postgres inventory.Store.
type Repo struct{ DB *gorm.DB }

var _ inventory.Store = (*Repo)(nil)

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

func (r *Repo) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (r *Repo) GetItem(ctx context.Context, id string) (*models.Item, error) {
	const op = "get item"
	if err := checkID(op, "item", id); err != nil {
		return nil, err
	}
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, translate(err, op, "item", id)
	}
	return &it, nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "get user"
	if err := checkID(op, "user", id); err != nil {
		return nil, err
	}
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, op, "user", id)
	}
	return &u, nil
}

func (r *Repo) GetLog(ctx context.Context, id string) (*models.Log, error) {
	const op = "get log"
	if err := checkID(op, "log", id); err != nil {
		return nil, err
	}
	var l models.Log
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err, op, "log", id)
	}
	return &l, nil
}

func findUserByLogin(db *gorm.DB, identifier string) (*models.User, error) {
	var u models.User
	lower := strings.ToLower(identifier)
	err := db.Where("LOWER(username) = ? OR LOWER(email) = ? OR lrn = ?", lower, lower, identifier).First(&u).Error
	if err != nil {
		return nil, translate(err, "find user", "user", identifier)
	}
	return &u, nil
}

func (r *Repo) FindUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	return findUserByLogin(r.DB.WithContext(ctx), identifier)
}

// 列表（分页 + 关键词，关键词匹配用户名/姓名/邮箱）
func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (inventory.UserPage, error) {
	page, size = inventory.NormalizePage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return inventory.UserPage{}, translate(err, "count users", "user", "")
	}

	users := []models.User{}
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return inventory.UserPage{}, translate(err, "list users", "user", "")
	}
	return inventory.UserPage{Users: users, Total: total}, nil
}

func (r *Repo) ListLogs(ctx context.Context, f inventory.LogFilter) ([]models.Log, error) {
	q := r.DB.WithContext(ctx).Model(&models.Log{}).Order("timestamp DESC")
	if f.UserID != "" {
		if checkID("list logs", "user", f.UserID) != nil {
			return []models.Log{}, nil
		}
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ItemID != "" {
		if checkID("list logs", "item", f.ItemID) != nil {
			return []models.Log{}, nil
		}
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	logs := []models.Log{}
	if err := q.Find(&logs).Error; err != nil {
		return nil, translate(err, "list logs", "log", "")
	}
	return logs, nil
}

// Snapshot reads all collections inside one repeatable-read transaction.
func (r *Repo) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("name ASC").Find(&snap.Items).Error; err != nil {
			return err
		}
		if err := tx.Order("full_name ASC").Find(&snap.Users).Error; err != nil {
			return err
		}
		if err := tx.Order("timestamp DESC").Find(&snap.Logs).Error; err != nil {
			return err
		}
		if err := tx.Order("timestamp DESC").Find(&snap.Suggestions).Error; err != nil {
			return err
		}
		return tx.Order("timestamp ASC").Find(&snap.Comments).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, translate(err, "snapshot", "snapshot", "")
	}
	return snap, nil
}

// 只记最近活跃时间，不改 updated_at
func (r *Repo) TouchUserSeen(ctx context.Context, userID string, at time.Time) error {
	const op = "touch user"
	if err := checkID(op, "user", userID); err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen_at", at)
	if res.Error != nil {
		return translate(res.Error, op, "user", userID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, op, "user", userID)
	}
	return nil
}
