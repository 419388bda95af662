package boltstore

import (
	"context"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"lab_inventory/inventory"
	"lab_inventory/models"
)

type boltTx struct {
	tx *bolt.Tx
}

var _ inventory.Tx = (*boltTx)(nil)

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func (t *boltTx) LockItem(_ context.Context, id string) (*models.Item, error) {
	return get[models.Item](t.tx, bucketItems, id, "item")
}

func (t *boltTx) CreateItems(_ context.Context, items ...*models.Item) error {
	for _, it := range items {
		stamp(&it.CreatedAt, &it.UpdatedAt)
		if err := put(t.tx, bucketItems, it.ID, it); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltTx) SaveItem(_ context.Context, it *models.Item) error {
	if t.tx.Bucket(bucketItems).Get([]byte(it.ID)) == nil {
		return inventory.NotFoundf("save item", "item %s not found", it.ID)
	}
	stamp(&it.CreatedAt, &it.UpdatedAt)
	return put(t.tx, bucketItems, it.ID, it)
}

func (t *boltTx) DeleteItem(_ context.Context, id string) error {
	return t.tx.Bucket(bucketItems).Delete([]byte(id))
}

func (t *boltTx) LockLog(_ context.Context, id string) (*models.Log, error) {
	return get[models.Log](t.tx, bucketLogs, id, "log")
}

func (t *boltTx) CreateLog(_ context.Context, l *models.Log) error {
	return put(t.tx, bucketLogs, l.ID, l)
}

func (t *boltTx) SaveLog(_ context.Context, l *models.Log) error {
	return put(t.tx, bucketLogs, l.ID, l)
}

func (t *boltTx) CountUserLogs(_ context.Context, userID string, status models.LogStatus) (int64, error) {
	logs, err := all[models.Log](t.tx, bucketLogs)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, l := range logs {
		if l.UserID == userID && l.Status == status {
			n++
		}
	}
	return n, nil
}

func (t *boltTx) LockUser(_ context.Context, id string) (*models.User, error) {
	return getUser(t.tx, id)
}

func (t *boltTx) FindUserByLogin(_ context.Context, identifier string) (*models.User, error) {
	return findByLogin(t.tx, identifier)
}

func (t *boltTx) LockAdmins(_ context.Context) ([]models.User, error) {
	users, err := allUsers(t.tx)
	if err != nil {
		return nil, err
	}
	admins := []models.User{}
	for _, u := range users {
		if u.IsAdmin {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

func (t *boltTx) FindUserConflict(_ context.Context, username, email string, lrn *string, excludeID string) (string, error) {
	users, err := allUsers(t.tx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.ID == excludeID {
			continue
		}
		switch {
		case strings.EqualFold(u.Username, username):
			return "username", nil
		case strings.EqualFold(u.Email, email):
			return "email", nil
		case lrn != nil && u.LRN != nil && *u.LRN == *lrn:
			return "lrn", nil
		}
	}
	return "", nil
}

func (t *boltTx) CreateUser(_ context.Context, u *models.User) error {
	stamp(&u.CreatedAt, &u.UpdatedAt)
	return put(t.tx, bucketUsers, u.ID, toRow(u))
}

func (t *boltTx) SaveUser(_ context.Context, u *models.User) error {
	stamp(&u.CreatedAt, &u.UpdatedAt)
	return put(t.tx, bucketUsers, u.ID, toRow(u))
}

func (t *boltTx) DeleteUser(_ context.Context, id string) error {
	return t.tx.Bucket(bucketUsers).Delete([]byte(id))
}

func (t *boltTx) LockSuggestion(_ context.Context, id string) (*models.Suggestion, error) {
	return get[models.Suggestion](t.tx, bucketSuggestions, id, "suggestion")
}

func (t *boltTx) CreateSuggestion(_ context.Context, s *models.Suggestion) error {
	return put(t.tx, bucketSuggestions, s.ID, s)
}

func (t *boltTx) SaveSuggestion(_ context.Context, s *models.Suggestion) error {
	return put(t.tx, bucketSuggestions, s.ID, s)
}

func (t *boltTx) CreateComment(_ context.Context, c *models.Comment) error {
	return put(t.tx, bucketComments, c.ID, c)
}
