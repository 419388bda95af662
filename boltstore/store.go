// Package boltstore keeps the inventory in a single bbolt file. bbolt allows one writer at a
// time, so every WithTx call is serializable and the Lock* methods need no extra locking.
package boltstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"lab_inventory/inventory"
	"lab_inventory/models"
)

var (
	bucketItems       = []byte(models.ItemTable)
	bucketUsers       = []byte(models.UserTable)
	bucketLogs        = []byte(models.LogTable)
	bucketSuggestions = []byte(models.SuggestionTable)
	bucketComments    = []byte(models.CommentTable)
)

type Store struct {
	db *bolt.DB
}

var _ inventory.Store = (*Store)(nil)

// Open creates the file and buckets if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create bolt dir")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketItems, bucketUsers, bucketLogs, bucketSuggestions, bucketComments} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

func (s *Store) view(ctx context.Context, fn func(t *boltTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// ---- generic helpers ----

func get[T any](tx *bolt.Tx, bucket []byte, id, what string) (*T, error) {
	raw := tx.Bucket(bucket).Get([]byte(id))
	if raw == nil {
		return nil, inventory.NotFoundf("get "+what, "%s %s not found", what, id)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s", what, id)
	}
	return &v, nil
}

func put(tx *bolt.Tx, bucket []byte, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode row")
	}
	return tx.Bucket(bucket).Put([]byte(id), raw)
}

func all[T any](tx *bolt.Tx, bucket []byte) ([]T, error) {
	var out []T
	err := tx.Bucket(bucket).ForEach(func(_, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.Wrapf(err, "decode %s", bucket)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// userRow keeps the password hash, which models.User hides from JSON.
type userRow struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func toRow(u *models.User) userRow { return userRow{User: *u, PasswordHash: u.PasswordHash} }

func (r userRow) user() *models.User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return &u
}

func getUser(tx *bolt.Tx, id string) (*models.User, error) {
	r, err := get[userRow](tx, bucketUsers, id, "user")
	if err != nil {
		return nil, err
	}
	return r.user(), nil
}

func allUsers(tx *bolt.Tx) ([]models.User, error) {
	rows, err := all[userRow](tx, bucketUsers)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.user())
	}
	return out, nil
}

func findByLogin(tx *bolt.Tx, identifier string) (*models.User, error) {
	users, err := allUsers(tx)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(identifier)
	for i := range users {
		u := &users[i]
		if strings.ToLower(u.Username) == lower || strings.ToLower(u.Email) == lower ||
			(u.LRN != nil && *u.LRN == identifier) {
			return u, nil
		}
	}
	return nil, inventory.NotFoundf("find user", "no user matches %q", identifier)
}

// ---- read side ----

func (s *Store) GetItem(ctx context.Context, id string) (it *models.Item, err error) {
	err = s.view(ctx, func(t *boltTx) error {
		it, err = get[models.Item](t.tx, bucketItems, id, "item")
		return err
	})
	return it, err
}

func (s *Store) GetUser(ctx context.Context, id string) (u *models.User, err error) {
	err = s.view(ctx, func(t *boltTx) error {
		u, err = getUser(t.tx, id)
		return err
	})
	return u, err
}

func (s *Store) GetLog(ctx context.Context, id string) (l *models.Log, err error) {
	err = s.view(ctx, func(t *boltTx) error {
		l, err = get[models.Log](t.tx, bucketLogs, id, "log")
		return err
	})
	return l, err
}

func (s *Store) FindUserByLogin(ctx context.Context, identifier string) (u *models.User, err error) {
	err = s.view(ctx, func(t *boltTx) error {
		u, err = findByLogin(t.tx, identifier)
		return err
	})
	return u, err
}

func (s *Store) ListUsers(ctx context.Context, q string, page, size int) (inventory.UserPage, error) {
	page, size = inventory.NormalizePage(page, size)
	var res inventory.UserPage
	err := s.view(ctx, func(t *boltTx) error {
		users, err := allUsers(t.tx)
		if err != nil {
			return err
		}
		q = strings.ToLower(strings.TrimSpace(q))
		matched := users[:0]
		for _, u := range users {
			if q == "" || strings.Contains(strings.ToLower(u.Username), q) ||
				strings.Contains(strings.ToLower(u.FullName), q) || strings.Contains(strings.ToLower(u.Email), q) {
				matched = append(matched, u)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
		res.Total = int64(len(matched))
		start := (page - 1) * size
		if start > len(matched) {
			start = len(matched)
		}
		end := start + size
		if end > len(matched) {
			end = len(matched)
		}
		res.Users = append([]models.User{}, matched[start:end]...)
		return nil
	})
	return res, err
}

func (s *Store) ListLogs(ctx context.Context, f inventory.LogFilter) ([]models.Log, error) {
	out := []models.Log{}
	err := s.view(ctx, func(t *boltTx) error {
		logs, err := all[models.Log](t.tx, bucketLogs)
		if err != nil {
			return err
		}
		out = []models.Log{}
		for _, l := range logs {
			if (f.UserID == "" || l.UserID == f.UserID) && (f.ItemID == "" || l.ItemID == f.ItemID) &&
				(f.Status == "" || l.Status == f.Status) {
				out = append(out, l)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
		return nil
	})
	return out, err
}

func (s *Store) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := s.view(ctx, func(t *boltTx) error {
		var err error
		if snap.Items, err = all[models.Item](t.tx, bucketItems); err != nil {
			return err
		}
		if snap.Users, err = allUsers(t.tx); err != nil {
			return err
		}
		if snap.Logs, err = all[models.Log](t.tx, bucketLogs); err != nil {
			return err
		}
		if snap.Suggestions, err = all[models.Suggestion](t.tx, bucketSuggestions); err != nil {
			return err
		}
		snap.Comments, err = all[models.Comment](t.tx, bucketComments)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snap.Items, func(i, j int) bool { return snap.Items[i].Name < snap.Items[j].Name })
	sort.SliceStable(snap.Users, func(i, j int) bool { return snap.Users[i].FullName < snap.Users[j].FullName })
	sort.SliceStable(snap.Logs, func(i, j int) bool { return snap.Logs[i].Timestamp.After(snap.Logs[j].Timestamp) })
	sort.SliceStable(snap.Suggestions, func(i, j int) bool {
		return snap.Suggestions[i].Timestamp.After(snap.Suggestions[j].Timestamp)
	})
	sort.SliceStable(snap.Comments, func(i, j int) bool { return snap.Comments[i].Timestamp.Before(snap.Comments[j].Timestamp) })
	return snap, nil
}

func (s *Store) TouchUserSeen(ctx context.Context, userID string, at time.Time) error {
	return s.WithTx(ctx, func(itx inventory.Tx) error {
		t := itx.(*boltTx)
		u, err := getUser(t.tx, userID)
		if err != nil {
			return err
		}
		u.LastSeenAt = &at
		return put(t.tx, bucketUsers, u.ID, toRow(u))
	})
}
