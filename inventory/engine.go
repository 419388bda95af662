package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lab_inventory/models"
)

// PasswordHasher is the opaque credential capability used by signup and authenticate.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Engine runs every inventory operation as one atomic read-modify-write against the Store
// and returns fresh snapshots of the rows it touched.
type Engine struct {
	store  Store
	hasher PasswordHasher
	now    func() time.Time
	newID  func() string
}

type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store Store, hasher PasswordHasher, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Store() Store { return e.store }

func (e *Engine) notify(typ models.NotificationType, msg string, related *string) *models.Notification {
	return &models.Notification{
		ID:           e.newID(),
		Message:      msg,
		Type:         typ,
		Read:         false,
		Timestamp:    e.now(),
		RelatedLogID: related,
	}
}

func (e *Engine) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	// 空集合输出 [] 而不是 null
	if snap.Items == nil {
		snap.Items = []models.Item{}
	}
	if snap.Users == nil {
		snap.Users = []models.User{}
	}
	if snap.Logs == nil {
		snap.Logs = []models.Log{}
	}
	if snap.Suggestions == nil {
		snap.Suggestions = []models.Suggestion{}
	}
	if snap.Comments == nil {
		snap.Comments = []models.Comment{}
	}
	if snap.Notifications == nil {
		snap.Notifications = []models.Notification{}
	}
	return snap, nil
}

// AuditStock returns every item whose quantities break 0 <= available <= total.
func (e *Engine) AuditStock(ctx context.Context) ([]models.Item, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var bad []models.Item
	for _, it := range snap.Items {
		if checkQuantities(&it) != nil {
			bad = append(bad, it)
		}
	}
	if len(bad) > 0 {
		zap.L().Debug("stock audit found violations", zap.Int("count", len(bad)))
	}
	return bad, nil
}
