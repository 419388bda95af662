package inventory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lab_inventory/models"
)

// BorrowRequest is the result of RequestBorrow.
type BorrowRequest struct {
	Log          *models.Log          `json:"newLog"`
	Notification *models.Notification `json:"newNotification"`
}

// LoanDecision is the result of ApproveBorrow.
type LoanDecision struct {
	Log  *models.Log  `json:"updatedLog"`
	Item *models.Item `json:"updatedItem"`
}

// ReturnRequest is the result of RequestReturn.
type ReturnRequest struct {
	Log          *models.Log          `json:"updatedLog"`
	Notification *models.Notification `json:"newNotification,omitempty"`
}

// ReturnReceipt is the result of CompleteReturn.
type ReturnReceipt struct {
	ReturnLog *models.Log  `json:"returnLog"`
	BorrowLog *models.Log  `json:"updatedBorrowLog"`
	Item      *models.Item `json:"updatedItem"`
}

// canTransition is the BORROW loan lifecycle: PENDING -> APPROVED|DENIED, APPROVED -> RETURNED.
func canTransition(from, to models.LogStatus) bool {
	switch from {
	case models.LogPending:
		return to == models.LogApproved || to == models.LogDenied
	case models.LogApproved:
		return to == models.LogReturned
	case models.LogDenied, models.LogReturned:
		return false
	default:
		return false
	}
}

func transition(op string, l *models.Log, to models.LogStatus) error {
	if l.Action != models.ActionBorrow {
		return newError(ErrInvalidState, op, "log %s is a %s record, not a loan", l.ID, l.Action)
	}
	if !canTransition(l.Status, to) {
		return newError(ErrInvalidState, op, "loan %s is %s and cannot become %s", l.ID, l.Status, to)
	}
	l.Status = to
	return nil
}

func (e *Engine) RequestBorrow(ctx context.Context, userID, itemID string, qty int) (*BorrowRequest, error) {
	const op = "request borrow"
	if qty <= 0 {
		return nil, newError(ErrValidation, op, "quantity must be positive")
	}
	var (
		l    *models.Log
		note *models.Notification
	)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.Status != models.UserApproved {
			return newError(ErrForbidden, op, "account %s has not been approved", u.Username)
		}
		// 只做可用量预检，不占库存；真正扣减在审批时
		it, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.AvailableQuantity < qty {
			return newError(ErrInsufficientStock, op,
				"not enough items available to borrow: available %d, requested %d", it.AvailableQuantity, qty)
		}
		l = &models.Log{
			ID:        e.newID(),
			UserID:    u.ID,
			ItemID:    it.ID,
			Quantity:  qty,
			Timestamp: e.now(),
			Action:    models.ActionBorrow,
			Status:    models.LogPending,
		}
		if err := tx.CreateLog(ctx, l); err != nil {
			return err
		}
		note = e.notify(models.NotifyNewBorrowRequest,
			fmt.Sprintf("%s requested to borrow %s.", u.FullName, it.Name), &l.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BorrowRequest{Log: l, Notification: note}, nil
}

// ApproveBorrow re-checks the borrower and the stock under their locks, so overlapping approvals
// cannot over-allocate and a deleted borrower cannot receive stock.
func (e *Engine) ApproveBorrow(ctx context.Context, logID string) (*LoanDecision, error) {
	const op = "approve borrow"
	var out LoanDecision
	err := e.store.WithTx(ctx, func(tx Tx) error {
		l, err := tx.LockLog(ctx, logID)
		if err != nil {
			return err
		}
		if err := transition(op, l, models.LogApproved); err != nil {
			return err
		}
		// 借用人可能已被删除或拒绝
		u, err := tx.LockUser(ctx, l.UserID)
		if err != nil {
			return err
		}
		if u.Status != models.UserApproved {
			return newError(ErrInvalidState, op, "borrower %s is %s", u.Username, u.Status)
		}
		it, err := tx.LockItem(ctx, l.ItemID)
		if err != nil {
			return err
		}
		if err := reserve(it, l.Quantity); err != nil {
			return err
		}
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		if err := tx.SaveLog(ctx, l); err != nil {
			return err
		}
		out = LoanDecision{Log: l, Item: it}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("loan approved", zap.String("log", logID), zap.Int("available", out.Item.AvailableQuantity))
	return &out, nil
}

func (e *Engine) DenyBorrow(ctx context.Context, logID, reason string) (*models.Log, error) {
	const op = "deny borrow"
	var out *models.Log
	err := e.store.WithTx(ctx, func(tx Tx) error {
		l, err := tx.LockLog(ctx, logID)
		if err != nil {
			return err
		}
		if err := transition(op, l, models.LogDenied); err != nil {
			return err
		}
		if r := strings.TrimSpace(reason); r != "" {
			l.AdminNotes = &r
		}
		if err := tx.SaveLog(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestReturn flags an approved loan; repeating it is a no-op.
func (e *Engine) RequestReturn(ctx context.Context, logID string) (*ReturnRequest, error) {
	const op = "request return"
	var out ReturnRequest
	err := e.store.WithTx(ctx, func(tx Tx) error {
		l, err := tx.LockLog(ctx, logID)
		if err != nil {
			return err
		}
		if l.Action != models.ActionBorrow || l.Status != models.LogApproved {
			return newError(ErrInvalidState, op, "only an approved loan can be returned (loan %s is %s)", l.ID, l.Status)
		}
		out.Log = l
		if l.ReturnRequested {
			return nil
		}
		l.ReturnRequested = true
		if err := tx.SaveLog(ctx, l); err != nil {
			return err
		}
		u, err := tx.LockUser(ctx, l.UserID)
		if err != nil {
			return err
		}
		it, err := tx.LockItem(ctx, l.ItemID)
		if err != nil {
			return err
		}
		out.Notification = e.notify(models.NotifyReturnRequest,
			fmt.Sprintf("%s requested to return %s.", u.FullName, it.Name), &l.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteReturn releases stock, closes the loan and appends the paired RETURN record.
func (e *Engine) CompleteReturn(ctx context.Context, borrowLogID, adminNotes string) (*ReturnReceipt, error) {
	const op = "complete return"
	var out ReturnReceipt
	err := e.store.WithTx(ctx, func(tx Tx) error {
		bl, err := tx.LockLog(ctx, borrowLogID)
		if err != nil {
			return err
		}
		if err := transition(op, bl, models.LogReturned); err != nil {
			return err
		}
		it, err := tx.LockItem(ctx, bl.ItemID)
		if err != nil {
			return err
		}
		if err := release(it, bl.Quantity); err != nil {
			return err
		}
		rl := &models.Log{
			ID:           e.newID(),
			UserID:       bl.UserID,
			ItemID:       bl.ItemID,
			Quantity:     bl.Quantity,
			Timestamp:    e.now(),
			Action:       models.ActionReturn,
			Status:       models.LogReturned,
			RelatedLogID: &bl.ID,
		}
		if n := strings.TrimSpace(adminNotes); n != "" {
			rl.AdminNotes = &n
		}
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		if err := tx.SaveLog(ctx, bl); err != nil {
			return err
		}
		if err := tx.CreateLog(ctx, rl); err != nil {
			return err
		}
		out = ReturnReceipt{ReturnLog: rl, BorrowLog: bl, Item: it}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("loan returned", zap.String("log", borrowLogID), zap.Int("available", out.Item.AvailableQuantity))
	return &out, nil
}

func (e *Engine) GetLog(ctx context.Context, id string) (*models.Log, error) {
	return e.store.GetLog(ctx, id)
}

func (e *Engine) ListLogs(ctx context.Context, f LogFilter) ([]models.Log, error) {
	return e.store.ListLogs(ctx, f)
}
