package inventory

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lab_inventory/models"
)

type SignupInput struct {
	Username   string  `json:"username"`
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	LRN        *string `json:"lrn"`
	GradeLevel *string `json:"gradeLevel"`
	Section    *string `json:"section"`
}

// UserUpdate edits a profile. A nil IsAdmin leaves the role untouched.
type UserUpdate struct {
	Username   string  `json:"username"`
	FullName   string  `json:"fullName"`
	LRN        *string `json:"lrn"`
	GradeLevel *string `json:"gradeLevel"`
	Section    *string `json:"section"`
	IsAdmin    *bool   `json:"isAdmin"`
}

type SignupResult struct {
	User         *models.User         `json:"newUser"`
	Notification *models.Notification `json:"newNotification"`
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username string
	FullName string
	Email    string
	Password string
}

// optional trims and turns blank strings into nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func conflictMessage(field string) string {
	switch field {
	case "username":
		return "username is already taken"
	case "email":
		return "email is already registered"
	case "lrn":
		return "LRN is already registered"
	default:
		return field + " is already in use"
	}
}

func (e *Engine) checkUnique(ctx context.Context, tx Tx, op, username, email string, lrn *string, excludeID string) error {
	field, err := tx.FindUserConflict(ctx, username, email, lrn, excludeID)
	if err != nil {
		return err
	}
	if field != "" {
		return newError(ErrConflict, op, "%s", conflictMessage(field))
	}
	return nil
}

func validateProfile(op, username, fullName string) error {
	if strings.TrimSpace(username) == "" {
		return newError(ErrValidation, op, "username is required")
	}
	if strings.TrimSpace(fullName) == "" {
		return newError(ErrValidation, op, "full name is required")
	}
	return nil
}

// Signup creates a PENDING member account.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	const op = "signup"
	if err := validateProfile(op, in.Username, in.FullName); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, newError(ErrValidation, op, "email %q is not valid", in.Email)
	}
	if in.Password == "" {
		return nil, newError(ErrValidation, op, "password is required")
	}
	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &models.User{
		ID:           e.newID(),
		Username:     strings.TrimSpace(in.Username),
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		LRN:          optional(in.LRN),
		GradeLevel:   optional(in.GradeLevel),
		Section:      optional(in.Section),
		Status:       models.UserPending,
	}
	u.SetAdmin(false)
	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := e.checkUnique(ctx, tx, op, u.Username, u.Email, u.LRN, ""); err != nil {
			return err
		}
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	note := e.notify(models.NotifyNewUser, fmt.Sprintf("New user '%s' requires approval.", u.FullName), nil)
	return &SignupResult{User: u, Notification: note}, nil
}

func (e *Engine) setUserStatus(ctx context.Context, op, id string, status models.UserStatus) (*models.User, error) {
	var out *models.User
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if status != models.UserApproved {
			admins, err := tx.LockAdmins(ctx)
			if err != nil {
				return err
			}
			if isLastApprovedAdmin(admins, id) {
				return newError(ErrConflict, op, "cannot deny the last approved admin account")
			}
		}
		u, err := tx.LockUser(ctx, id)
		if err != nil {
			return err
		}
		// 重复审批按覆盖处理（幂等）
		u.Status = status
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("user status changed", zap.String("user", id), zap.String("status", string(status)))
	return out, nil
}

func (e *Engine) ApproveUser(ctx context.Context, id string) (*models.User, error) {
	return e.setUserStatus(ctx, "approve user", id, models.UserApproved)
}

// DenyUser refuses to lock out the last admin who can still sign in.
func (e *Engine) DenyUser(ctx context.Context, id string) (*models.User, error) {
	return e.setUserStatus(ctx, "deny user", id, models.UserDenied)
}

// UpdateUser edits a profile; demoting the last admin is refused.
func (e *Engine) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	const op = "update user"
	if err := validateProfile(op, in.Username, in.FullName); err != nil {
		return nil, err
	}
	var out *models.User
	err := e.store.WithTx(ctx, func(tx Tx) error {
		if in.IsAdmin != nil && !*in.IsAdmin {
			admins, err := tx.LockAdmins(ctx)
			if err != nil {
				return err
			}
			if isLastAdmin(admins, id) {
				return newError(ErrConflict, op, "cannot remove admin rights from the last admin account")
			}
		}
		u, err := tx.LockUser(ctx, id)
		if err != nil {
			return err
		}
		lrn := optional(in.LRN)
		if err := e.checkUnique(ctx, tx, op, in.Username, u.Email, lrn, u.ID); err != nil {
			return err
		}
		u.Username = strings.TrimSpace(in.Username)
		u.FullName = strings.TrimSpace(in.FullName)
		u.LRN = lrn
		u.GradeLevel = optional(in.GradeLevel)
		u.Section = optional(in.Section)
		if in.IsAdmin != nil {
			u.SetAdmin(*in.IsAdmin)
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isLastAdmin(admins []models.User, id string) bool {
	if len(admins) > 1 {
		return false
	}
	for _, a := range admins {
		if a.ID == id {
			return true
		}
	}
	return false
}

// isLastApprovedAdmin reports whether id is an APPROVED admin and no other admin is APPROVED.
func isLastApprovedAdmin(admins []models.User, id string) bool {
	target := false
	for _, a := range admins {
		if a.Status != models.UserApproved {
			continue
		}
		if a.ID != id {
			return false
		}
		target = true
	}
	return target
}

// DeleteUser checks outstanding loans and the admin count inside the deleting transaction.
func (e *Engine) DeleteUser(ctx context.Context, id string) error {
	const op = "delete user"
	return e.store.WithTx(ctx, func(tx Tx) error {
		admins, err := tx.LockAdmins(ctx)
		if err != nil {
			return err
		}
		u, err := tx.LockUser(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountUserLogs(ctx, u.ID, models.LogApproved)
		if err != nil {
			return err
		}
		if n > 0 {
			return newError(ErrConflict, op, "cannot delete user with outstanding loans (%d)", n)
		}
		if u.IsAdmin && len(admins) <= 1 {
			return newError(ErrConflict, op, "cannot delete the last admin account")
		}
		return tx.DeleteUser(ctx, u.ID)
	})
}

// Authenticate matches username/email case-insensitively or LRN exactly.
func (e *Engine) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	const op = "authenticate"
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, newError(ErrUnauthorized, op, "invalid credentials")
	}
	u, err := e.store.FindUserByLogin(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrUnauthorized, op, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !e.hasher.Verify(u.PasswordHash, password) {
		return nil, newError(ErrUnauthorized, op, "invalid credentials")
	}
	if u.Status != models.UserApproved {
		return nil, newError(ErrForbidden, op, "your account has not been approved by an administrator")
	}
	return u, nil
}

// EnsureAdmin seeds the default admin, or repairs it when its role or status drifted.
func (e *Engine) EnsureAdmin(ctx context.Context, seed AdminSeed) (*models.User, bool, error) {
	const op = "ensure admin"
	if err := validateProfile(op, seed.Username, seed.FullName); err != nil {
		return nil, false, err
	}
	var (
		out     *models.User
		created bool
	)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.FindUserByLogin(ctx, seed.Username)
		switch {
		case errors.Is(err, ErrNotFound):
			hash, err := e.hasher.Hash(seed.Password)
			if err != nil {
				return errors.Wrap(err, "hash password")
			}
			u := &models.User{
				ID:           e.newID(),
				Username:     seed.Username,
				FullName:     seed.FullName,
				Email:        seed.Email,
				PasswordHash: hash,
				Status:       models.UserApproved,
			}
			u.SetAdmin(true)
			if err := e.checkUnique(ctx, tx, op, u.Username, u.Email, nil, ""); err != nil {
				return err
			}
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
			out, created = u, true
			return nil
		case err != nil:
			return err
		}
		u, err := tx.LockUser(ctx, existing.ID)
		if err != nil {
			return err
		}
		if u.IsAdmin && u.Role == models.RoleAdmin && u.Status == models.UserApproved {
			out = u
			return nil
		}
		u.SetAdmin(true)
		u.Status = models.UserApproved
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (e *Engine) GetUser(ctx context.Context, id string) (*models.User, error) {
	return e.store.GetUser(ctx, id)
}

func (e *Engine) ListUsers(ctx context.Context, q string, page, size int) (UserPage, error) {
	page, size = NormalizePage(page, size)
	return e.store.ListUsers(ctx, q, page, size)
}

func (e *Engine) TouchUserSeen(ctx context.Context, id string) error {
	return e.store.TouchUserSeen(ctx, id, e.now())
}
