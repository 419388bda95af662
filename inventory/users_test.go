package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_inventory/inventory"
	"lab_inventory/models"
)

func boolp(b bool) *bool { return &b }
func strp(s string) *string { return &s }

func TestUsers_SignupAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	res, err := f.eng.Signup(f.ctx, inventory.SignupInput{
		Username: "Ana", FullName: "Ana Cruz", Email: "ana@lab.io", Password: "pw", LRN: strp(" 123456789012 "), Section: strp("  "),
	})
	require.NoError(t, err)
	assert.Equal(t, models.UserPending, res.User.Status)
	assert.Equal(t, models.RoleMember, res.User.Role)
	assert.False(t, res.User.IsAdmin)
	assert.Equal(t, "123456789012", *res.User.LRN)
	assert.Nil(t, res.User.Section)
	assert.Equal(t, models.NotifyNewUser, res.Notification.Type)
	assert.Equal(t, "New user 'Ana Cruz' requires approval.", res.Notification.Message)
	assert.NotEqual(t, "pw", res.User.PasswordHash)

	_, err = f.eng.Authenticate(f.ctx, "ana", "pw")
	assert.ErrorIs(t, err, inventory.ErrForbidden)

	_, err = f.eng.ApproveUser(f.ctx, res.User.ID)
	require.NoError(t, err)
	for _, login := range []string{"ANA", "Ana@Lab.io", "123456789012"} {
		u, err := f.eng.Authenticate(f.ctx, login, "pw")
		require.NoError(t, err, login)
		assert.Equal(t, res.User.ID, u.ID)
	}

	_, err = f.eng.Authenticate(f.ctx, "ana", "bad")
	assert.ErrorIs(t, err, inventory.ErrUnauthorized)
	_, err = f.eng.Authenticate(f.ctx, "ghost", "pw")
	assert.ErrorIs(t, err, inventory.ErrUnauthorized)
	_, err = f.eng.Authenticate(f.ctx, "", "")
	assert.ErrorIs(t, err, inventory.ErrUnauthorized)
}

func TestUsers_SignupConflictsAndValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Signup(f.ctx, inventory.SignupInput{Username: "ana", FullName: "Ana", Email: "ana@lab.io", Password: "pw", LRN: strp("1")})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   inventory.SignupInput
		kind error
		msg  string
	}{
		{"username", inventory.SignupInput{Username: "ANA", FullName: "x", Email: "x@lab.io", Password: "pw"}, inventory.ErrConflict, "username is already taken"},
		{"email", inventory.SignupInput{Username: "x", FullName: "x", Email: "ANA@lab.io", Password: "pw"}, inventory.ErrConflict, "email is already registered"},
		{"lrn", inventory.SignupInput{Username: "x", FullName: "x", Email: "x@lab.io", Password: "pw", LRN: strp("1")}, inventory.ErrConflict, "LRN is already registered"},
		{"bad email", inventory.SignupInput{Username: "x", FullName: "x", Email: "nope", Password: "pw"}, inventory.ErrValidation, ""},
		{"no password", inventory.SignupInput{Username: "x", FullName: "x", Email: "x@lab.io"}, inventory.ErrValidation, ""},
		{"no name", inventory.SignupInput{Username: "x", Email: "x@lab.io", Password: "pw"}, inventory.ErrValidation, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.eng.Signup(f.ctx, tc.in)
			require.ErrorIs(t, err, tc.kind)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, inventory.Message(err))
			}
		})
	}
}

func TestUsers_ApproveDenyIsIdempotentOverwrite(t *testing.T) {
	f := newFixture(t)
	u := f.member(t, "ana")

	again, err := f.eng.ApproveUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserApproved, again.Status)

	denied, err := f.eng.DenyUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserDenied, denied.Status)

	_, err = f.eng.ApproveUser(f.ctx, "missing")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUsers_DeleteBlockedByOutstandingLoan(t *testing.T) {
	f := newFixture(t)
	u := f.member(t, "ana")
	it := f.item(t, 3)
	l := f.borrow(t, u, it, 1)
	_, err := f.eng.ApproveBorrow(f.ctx, l.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.eng.DeleteUser(f.ctx, u.ID), inventory.ErrConflict)

	_, err = f.eng.CompleteReturn(f.ctx, l.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.eng.DeleteUser(f.ctx, u.ID))
	_, err = f.eng.GetUser(f.ctx, u.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUsers_LastAdminIsProtected(t *testing.T) {
	f := newFixture(t)

	err := f.eng.DeleteUser(f.ctx, f.admin.ID)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	_, err = f.eng.UpdateUser(f.ctx, f.admin.ID, inventory.UserUpdate{Username: "admin", FullName: "Lab Admin", IsAdmin: boolp(false)})
	assert.ErrorIs(t, err, inventory.ErrConflict)

	u := f.member(t, "bo")
	promoted, err := f.eng.UpdateUser(f.ctx, u.ID, inventory.UserUpdate{Username: "bo", FullName: "Bo Reyes", IsAdmin: boolp(true)})
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	require.NoError(t, f.eng.DeleteUser(f.ctx, f.admin.ID))
	assert.ErrorIs(t, f.eng.DeleteUser(f.ctx, u.ID), inventory.ErrConflict)
}

func TestUsers_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.member(t, "ana")
	f.member(t, "bo")

	_, err := f.eng.UpdateUser(f.ctx, u.ID, inventory.UserUpdate{Username: "BO", FullName: "Ana"})
	assert.ErrorIs(t, err, inventory.ErrConflict)

	got, err := f.eng.UpdateUser(f.ctx, u.ID, inventory.UserUpdate{
		Username: "ana", FullName: "Ana Cruz", GradeLevel: strp("Grade 11"), Section: strp("Curie"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", got.FullName)
	assert.Equal(t, "Grade 11", *got.GradeLevel)
	assert.False(t, got.IsAdmin)
}

func TestUsers_EnsureAdminRepairs(t *testing.T) {
	f := newFixture(t)
	seed := inventory.AdminSeed{Username: "admin", FullName: "Lab Admin", Email: "admin@lab.io", Password: "admin123"}

	u, created, err := f.eng.EnsureAdmin(f.ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, f.admin.ID, u.ID)

	f.member(t, "bo")
	_, err = f.eng.DenyUser(f.ctx, f.admin.ID)
	require.NoError(t, err)

	u, created, err = f.eng.EnsureAdmin(f.ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.UserApproved, u.Status)
	assert.True(t, u.IsAdmin)
}

func TestUsers_ListAndTouch(t *testing.T) {
	f := newFixture(t)
	u := f.member(t, "ana")
	f.member(t, "bo")

	page, err := f.eng.ListUsers(f.ctx, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)

	require.NoError(t, f.eng.TouchUserSeen(f.ctx, u.ID))
	got, err := f.eng.GetUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSeenAt)
}

func TestUsers_DeletedBorrowerCannotBeApproved(t *testing.T) {
	f := newFixture(t)
	u := f.member(t, "ana")
	it := f.item(t, 10)
	l := f.borrow(t, u, it, 3)

	require.NoError(t, f.eng.DeleteUser(f.ctx, u.ID))

	_, err := f.eng.ApproveBorrow(f.ctx, l.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	after, err := f.eng.GetItem(f.ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.AvailableQuantity)
	got, err := f.eng.GetLog(f.ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogPending, got.Status)

	// 被拒绝的借用人同样不能获批
	bo := f.member(t, "bo")
	l2 := f.borrow(t, bo, it, 2)
	_, err = f.eng.DenyUser(f.ctx, bo.ID)
	require.NoError(t, err)
	_, err = f.eng.ApproveBorrow(f.ctx, l2.ID)
	assert.ErrorIs(t, err, inventory.ErrInvalidState)

	// 拒绝借用申请仍然可以清理这条记录
	denied, err := f.eng.DenyBorrow(f.ctx, l.ID, "account removed")
	require.NoError(t, err)
	assert.Equal(t, models.LogDenied, denied.Status)
}

func TestUsers_LastApprovedAdminCannotBeDenied(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.DenyUser(f.ctx, f.admin.ID)
	assert.ErrorIs(t, err, inventory.ErrConflict)
	still, err := f.eng.GetUser(f.ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserApproved, still.Status)

	bo := f.member(t, "bo")
	_, err = f.eng.UpdateUser(f.ctx, bo.ID, inventory.UserUpdate{Username: "bo", FullName: "Bo Reyes", IsAdmin: boolp(true)})
	require.NoError(t, err)

	denied, err := f.eng.DenyUser(f.ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserDenied, denied.Status)

	// bo 现在是唯一可登录的管理员
	_, err = f.eng.DenyUser(f.ctx, bo.ID)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	// 恢复后又可以拒绝 bo
	_, err = f.eng.ApproveUser(f.ctx, f.admin.ID)
	require.NoError(t, err)
	_, err = f.eng.DenyUser(f.ctx, bo.ID)
	require.NoError(t, err)
}
