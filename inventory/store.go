package inventory

import (
	"context"
	"time"

	"lab_inventory/models"
)

// Store is the persistent state behind the engine. Every mutation runs inside WithTx;
// rows returned by the Lock* methods must stay protected from concurrent writers until
// the transaction ends (row locks in Postgres, the single writer in bbolt).
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetLog(ctx context.Context, id string) (*models.Log, error)
	FindUserByLogin(ctx context.Context, identifier string) (*models.User, error)
	ListUsers(ctx context.Context, q string, page, size int) (UserPage, error)
	ListLogs(ctx context.Context, f LogFilter) ([]models.Log, error)
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	TouchUserSeen(ctx context.Context, userID string, at time.Time) error
}

// Tx exposes the reads and writes allowed inside one atomic unit.
type Tx interface {
	LockItem(ctx context.Context, id string) (*models.Item, error)
	CreateItems(ctx context.Context, items ...*models.Item) error
	SaveItem(ctx context.Context, it *models.Item) error
	DeleteItem(ctx context.Context, id string) error

	LockLog(ctx context.Context, id string) (*models.Log, error)
	CreateLog(ctx context.Context, l *models.Log) error
	SaveLog(ctx context.Context, l *models.Log) error
	CountUserLogs(ctx context.Context, userID string, status models.LogStatus) (int64, error)

	LockUser(ctx context.Context, id string) (*models.User, error)
	FindUserByLogin(ctx context.Context, identifier string) (*models.User, error)
	// LockAdmins locks every admin row so admin-count checks serialize.
	LockAdmins(ctx context.Context) ([]models.User, error)
	// FindUserConflict returns the first field ("username", "email", "lrn") already used by
	// another user, or "" when none is. Username/email compare case-insensitively.
	FindUserConflict(ctx context.Context, username, email string, lrn *string, excludeID string) (string, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error

	LockSuggestion(ctx context.Context, id string) (*models.Suggestion, error)
	CreateSuggestion(ctx context.Context, s *models.Suggestion) error
	SaveSuggestion(ctx context.Context, s *models.Suggestion) error
	CreateComment(ctx context.Context, c *models.Comment) error
}

type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

type LogFilter struct {
	UserID string
	ItemID string
	Status models.LogStatus
}

// NormalizePage clamps paging arguments the same way for every store.
func NormalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
