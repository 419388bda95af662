package inventory

import (
	"context"
	"strings"

	"lab_inventory/models"
)

type SuggestionInput struct {
	UserID      string                `json:"userId"`
	Type        models.SuggestionType `json:"type"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
}

type ItemSuggestionApproval struct {
	Suggestion *models.Suggestion `json:"updatedSuggestion"`
	Item       *models.Item       `json:"newItem"`
}

type SuggestionDenial struct {
	Suggestion *models.Suggestion `json:"updatedSuggestion"`
	Comment    *models.Comment    `json:"newComment"`
}

func (e *Engine) SubmitSuggestion(ctx context.Context, in SuggestionInput) (*models.Suggestion, error) {
	const op = "submit suggestion"
	if in.Type != models.SuggestionItem && in.Type != models.SuggestionFeature {
		return nil, newError(ErrValidation, op, "unknown suggestion type %q", in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, newError(ErrValidation, op, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, newError(ErrValidation, op, "description is required")
	}
	s := &models.Suggestion{
		ID:          e.newID(),
		UserID:      in.UserID,
		Type:        in.Type,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      models.SuggestionPending,
		Timestamp:   e.now(),
	}
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.LockUser(ctx, in.UserID); err != nil {
			return err
		}
		return tx.CreateSuggestion(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func lockPending(ctx context.Context, tx Tx, op, id string, typ models.SuggestionType) (*models.Suggestion, error) {
	s, err := tx.LockSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != models.SuggestionPending {
		return nil, newError(ErrInvalidState, op, "suggestion %s is already %s", s.ID, s.Status)
	}
	if typ != "" && s.Type != typ {
		return nil, newError(ErrInvalidState, op, "suggestion %s is a %s suggestion", s.ID, s.Type)
	}
	return s, nil
}

// ApproveItemSuggestion marks the suggestion approved and creates the suggested item in one step.
func (e *Engine) ApproveItemSuggestion(ctx context.Context, id, category string, totalQuantity int) (*ItemSuggestionApproval, error) {
	const op = "approve item suggestion"
	var out ItemSuggestionApproval
	err := e.store.WithTx(ctx, func(tx Tx) error {
		s, err := lockPending(ctx, tx, op, id, models.SuggestionItem)
		if err != nil {
			return err
		}
		in := NewItem{Name: s.Title, Category: category, TotalQuantity: totalQuantity}
		if err := validateNewItem(op, in); err != nil {
			return err
		}
		it := e.newItemRow(in)
		cat := it.Category
		s.Status = models.SuggestionApproved
		s.Category = &cat
		if err := tx.SaveSuggestion(ctx, s); err != nil {
			return err
		}
		if err := tx.CreateItems(ctx, it); err != nil {
			return err
		}
		out = ItemSuggestionApproval{Suggestion: s, Item: it}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) ApproveFeatureSuggestion(ctx context.Context, id string) (*models.Suggestion, error) {
	const op = "approve feature suggestion"
	var out *models.Suggestion
	err := e.store.WithTx(ctx, func(tx Tx) error {
		s, err := lockPending(ctx, tx, op, id, models.SuggestionFeature)
		if err != nil {
			return err
		}
		s.Status = models.SuggestionApproved
		if err := tx.SaveSuggestion(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DenySuggestion closes the suggestion and leaves the reason as an admin comment.
func (e *Engine) DenySuggestion(ctx context.Context, id, adminID, reason string) (*SuggestionDenial, error) {
	const op = "deny suggestion"
	var out SuggestionDenial
	err := e.store.WithTx(ctx, func(tx Tx) error {
		s, err := lockPending(ctx, tx, op, id, "")
		if err != nil {
			return err
		}
		if _, err := tx.LockUser(ctx, adminID); err != nil {
			return err
		}
		s.Status = models.SuggestionDenied
		c := &models.Comment{
			ID:           e.newID(),
			UserID:       adminID,
			SuggestionID: s.ID,
			Text:         "Admin Note: " + strings.TrimSpace(reason),
			Timestamp:    e.now(),
		}
		if err := tx.SaveSuggestion(ctx, s); err != nil {
			return err
		}
		if err := tx.CreateComment(ctx, c); err != nil {
			return err
		}
		out = SuggestionDenial{Suggestion: s, Comment: c}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) AddComment(ctx context.Context, userID, suggestionID, text string) (*models.Comment, error) {
	const op = "add comment"
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrValidation, op, "comment text is required")
	}
	c := &models.Comment{
		ID:           e.newID(),
		UserID:       userID,
		SuggestionID: suggestionID,
		Text:         strings.TrimSpace(text),
		Timestamp:    e.now(),
	}
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.LockSuggestion(ctx, suggestionID); err != nil {
			return err
		}
		return tx.CreateComment(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
