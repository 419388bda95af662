package db

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab_inventory/inventory"
	"lab_inventory/models"
)

// gormTx 的 Lock* 都是 SELECT ... FOR UPDATE，锁持有到事务结束
type gormTx struct {
	db *gorm.DB
}

var _ inventory.Tx = (*gormTx)(nil)

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockRow[T any](t *gormTx, op, what, id string) (*T, error) {
	if err := checkID(op, what, id); err != nil {
		return nil, err
	}
	var row T
	if err := t.forUpdate().First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err, op, what, id)
	}
	return &row, nil
}

// Items

func (t *gormTx) LockItem(_ context.Context, id string) (*models.Item, error) {
	return lockRow[models.Item](t, "lock item", "item", id)
}

func (t *gormTx) CreateItems(_ context.Context, items ...*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return translate(t.db.Create(items).Error, "create items", "item", "")
}

func (t *gormTx) SaveItem(_ context.Context, it *models.Item) error {
	return translate(t.db.Save(it).Error, "save item", "item", it.ID)
}

func (t *gormTx) DeleteItem(_ context.Context, id string) error {
	return translate(t.db.Delete(&models.Item{}, "id = ?", id).Error, "delete item", "item", id)
}

// Logs

func (t *gormTx) LockLog(_ context.Context, id string) (*models.Log, error) {
	return lockRow[models.Log](t, "lock log", "log", id)
}

func (t *gormTx) CreateLog(_ context.Context, l *models.Log) error {
	return translate(t.db.Create(l).Error, "create log", "log", l.ID)
}

func (t *gormTx) SaveLog(_ context.Context, l *models.Log) error {
	return translate(t.db.Save(l).Error, "save log", "log", l.ID)
}

func (t *gormTx) CountUserLogs(_ context.Context, userID string, status models.LogStatus) (int64, error) {
	var n int64
	err := t.db.Model(&models.Log{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&n).Error
	return n, translate(err, "count logs", "log", "")
}

// Users

func (t *gormTx) LockUser(_ context.Context, id string) (*models.User, error) {
	return lockRow[models.User](t, "lock user", "user", id)
}

func (t *gormTx) FindUserByLogin(_ context.Context, identifier string) (*models.User, error) {
	return findUserByLogin(t.db, identifier)
}

func (t *gormTx) LockAdmins(_ context.Context) ([]models.User, error) {
	admins := []models.User{}
	err := t.forUpdate().
		Where("is_admin = TRUE").
		Order("id").
		Find(&admins).Error
	return admins, translate(err, "lock admins", "user", "")
}

func (t *gormTx) FindUserConflict(_ context.Context, username, email string, lrn *string, excludeID string) (string, error) {
	q := t.db.Model(&models.User{})
	cond := "LOWER(username) = ? OR LOWER(email) = ?"
	args := []interface{}{strings.ToLower(username), strings.ToLower(email)}
	if lrn != nil {
		cond += " OR lrn = ?"
		args = append(args, *lrn)
	}
	q = q.Where(cond, args...)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var hits []models.User
	if err := q.Find(&hits).Error; err != nil {
		return "", translate(err, "check user", "user", "")
	}
	field := ""
	for _, u := range hits {
		switch {
		case strings.EqualFold(u.Username, username):
			return "username", nil
		case strings.EqualFold(u.Email, email):
			field = "email"
		case field == "" && lrn != nil && u.LRN != nil && *u.LRN == *lrn:
			field = "lrn"
		}
	}
	return field, nil
}

func (t *gormTx) CreateUser(_ context.Context, u *models.User) error {
	return translate(t.db.Create(u).Error, "create user", "user", u.ID)
}

func (t *gormTx) SaveUser(_ context.Context, u *models.User) error {
	return translate(t.db.Save(u).Error, "save user", "user", u.ID)
}

func (t *gormTx) DeleteUser(_ context.Context, id string) error {
	return translate(t.db.Delete(&models.User{}, "id = ?", id).Error, "delete user", "user", id)
}

// Suggestions

func (t *gormTx) LockSuggestion(_ context.Context, id string) (*models.Suggestion, error) {
	return lockRow[models.Suggestion](t, "lock suggestion", "suggestion", id)
}

func (t *gormTx) CreateSuggestion(_ context.Context, s *models.Suggestion) error {
	return translate(t.db.Create(s).Error, "create suggestion", "suggestion", s.ID)
}

func (t *gormTx) SaveSuggestion(_ context.Context, s *models.Suggestion) error {
	return translate(t.db.Save(s).Error, "save suggestion", "suggestion", s.ID)
}

func (t *gormTx) CreateComment(_ context.Context, c *models.Comment) error {
	return translate(t.db.Create(c).Error, "create comment", "comment", c.ID)
}
