package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"lab_inventory/models"
)

// NewItem describes an item to create.
type NewItem struct {
	Name          string `json:"name" csv:"name"`
	Category      string `json:"category" csv:"category"`
	TotalQuantity int    `json:"totalQuantity" csv:"totalQuantity"`
}

// ItemUpdate edits an item's descriptive fields and capacity.
type ItemUpdate struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	TotalQuantity int    `json:"totalQuantity"`
}

// ---- rules on a single row (no I/O) ----

func checkQuantities(it *models.Item) error {
	if it.TotalQuantity < 0 || it.AvailableQuantity < 0 || it.AvailableQuantity > it.TotalQuantity {
		return newError(ErrInvariantViolation, "item", "item %s has available=%d total=%d",
			it.ID, it.AvailableQuantity, it.TotalQuantity)
	}
	return nil
}

func validateNewItem(op string, in NewItem) error {
	if strings.TrimSpace(in.Name) == "" {
		return newError(ErrValidation, op, "item name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return newError(ErrValidation, op, "item category is required")
	}
	if in.TotalQuantity < 0 {
		return newError(ErrValidation, op, "total quantity cannot be negative (%d)", in.TotalQuantity)
	}
	return nil
}

// adjustCapacity changes total while keeping the borrowed amount exactly as it was.
func adjustCapacity(it *models.Item, newTotal int) error {
	const op = "adjust capacity"
	if newTotal < 0 {
		return newError(ErrValidation, op, "total quantity cannot be negative (%d)", newTotal)
	}
	borrowed := it.BorrowedQuantity()
	if newTotal < borrowed {
		return newError(ErrInvariantViolation, op,
			"total quantity cannot be less than the amount currently borrowed (%d)", borrowed)
	}
	it.TotalQuantity = newTotal
	it.AvailableQuantity = newTotal - borrowed
	return checkQuantities(it)
}

func reserve(it *models.Item, qty int) error {
	const op = "reserve"
	if qty <= 0 {
		return newError(ErrValidation, op, "quantity must be positive")
	}
	if it.AvailableQuantity < qty {
		return newError(ErrInsufficientStock, op,
			"not enough %q in stock: available %d, requested %d", it.Name, it.AvailableQuantity, qty)
	}
	it.AvailableQuantity -= qty
	return checkQuantities(it)
}

func release(it *models.Item, qty int) error {
	const op = "release"
	if qty <= 0 {
		return newError(ErrValidation, op, "quantity must be positive")
	}
	if it.AvailableQuantity+qty > it.TotalQuantity {
		return newError(ErrInvariantViolation, op,
			"releasing %d of %q would exceed total (available %d, total %d)",
			qty, it.Name, it.AvailableQuantity, it.TotalQuantity)
	}
	it.AvailableQuantity += qty
	return checkQuantities(it)
}

// ---- atomic operations ----

func (e *Engine) newItemRow(in NewItem) *models.Item {
	return &models.Item{
		ID:                e.newID(),
		Name:              strings.TrimSpace(in.Name),
		Category:          strings.TrimSpace(in.Category),
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
	}
}

func (e *Engine) CreateItem(ctx context.Context, in NewItem) (*models.Item, error) {
	if err := validateNewItem("create item", in); err != nil {
		return nil, err
	}
	it := e.newItemRow(in)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		return tx.CreateItems(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("item created", zap.String("item", it.ID), zap.Int("total", it.TotalQuantity))
	return it, nil
}

// ImportItems creates all items or none.
func (e *Engine) ImportItems(ctx context.Context, in []NewItem) ([]models.Item, error) {
	if len(in) == 0 {
		return nil, newError(ErrValidation, "import items", "no items to import")
	}
	rows := make([]*models.Item, 0, len(in))
	for i, n := range in {
		if err := validateNewItem("import items", n); err != nil {
			return nil, newError(ErrValidation, "import items", "row %d: %s", i+1, Message(err))
		}
		rows = append(rows, e.newItemRow(n))
	}
	err := e.store.WithTx(ctx, func(tx Tx) error {
		return tx.CreateItems(ctx, rows...)
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

// mutateItem locks the item, applies fn, and persists the result in one transaction.
func (e *Engine) mutateItem(ctx context.Context, id string, fn func(it *models.Item) error) (*models.Item, error) {
	var out *models.Item
	err := e.store.WithTx(ctx, func(tx Tx) error {
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) AdjustCapacity(ctx context.Context, id string, newTotal int) (*models.Item, error) {
	return e.mutateItem(ctx, id, func(it *models.Item) error {
		return adjustCapacity(it, newTotal)
	})
}

func (e *Engine) UpdateItem(ctx context.Context, id string, in ItemUpdate) (*models.Item, error) {
	if err := validateNewItem("update item", NewItem(in)); err != nil {
		return nil, err
	}
	return e.mutateItem(ctx, id, func(it *models.Item) error {
		if err := adjustCapacity(it, in.TotalQuantity); err != nil {
			return err
		}
		it.Name = strings.TrimSpace(in.Name)
		it.Category = strings.TrimSpace(in.Category)
		return nil
	})
}

func (e *Engine) Reserve(ctx context.Context, id string, qty int) (*models.Item, error) {
	return e.mutateItem(ctx, id, func(it *models.Item) error { return reserve(it, qty) })
}

func (e *Engine) Release(ctx context.Context, id string, qty int) (*models.Item, error) {
	return e.mutateItem(ctx, id, func(it *models.Item) error { return release(it, qty) })
}

// DeleteItem refuses while any unit is on loan.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return err
		}
		if it.AvailableQuantity != it.TotalQuantity {
			return newError(ErrConflict, "delete item",
				"cannot delete item with outstanding loans (%d borrowed)", it.BorrowedQuantity())
		}
		return tx.DeleteItem(ctx, id)
	})
}

func (e *Engine) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return e.store.GetItem(ctx, id)
}
