package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_inventory/models"
)

func item(total, available int) *models.Item {
	return &models.Item{ID: "i", Name: "Pipette", TotalQuantity: total, AvailableQuantity: available}
}

func TestReserve(t *testing.T) {
	it := item(5, 3)
	require.NoError(t, reserve(it, 3))
	assert.Equal(t, 0, it.AvailableQuantity)

	err := reserve(it, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, it.AvailableQuantity)

	assert.ErrorIs(t, reserve(item(5, 5), 0), ErrValidation)
}

func TestRelease(t *testing.T) {
	it := item(5, 0)
	require.NoError(t, release(it, 5))
	assert.Equal(t, 5, it.AvailableQuantity)

	err := release(it, 1)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 5, it.AvailableQuantity)

	assert.ErrorIs(t, release(item(5, 1), -2), ErrValidation)
}

func TestAdjustCapacity(t *testing.T) {
	cases := []struct {
		name                string
		total, avail, next  int
		kind                error
		wantTotal, wantAvai int
	}{
		{"grow keeps borrowed", 10, 4, 15, nil, 15, 9},
		{"shrink to borrowed", 10, 4, 6, nil, 6, 0},
		{"below borrowed", 10, 4, 5, ErrInvariantViolation, 10, 4},
		{"negative", 10, 10, -1, ErrValidation, 10, 10},
		{"zero when nothing borrowed", 3, 3, 0, nil, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := item(tc.total, tc.avail)
			err := adjustCapacity(it, tc.next)
			if tc.kind != nil {
				assert.ErrorIs(t, err, tc.kind)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantTotal, it.TotalQuantity)
			assert.Equal(t, tc.wantAvai, it.AvailableQuantity)
		})
	}
}

func TestCheckQuantities(t *testing.T) {
	assert.NoError(t, checkQuantities(item(0, 0)))
	assert.ErrorIs(t, checkQuantities(item(2, 3)), ErrInvariantViolation)
	assert.ErrorIs(t, checkQuantities(item(2, -1)), ErrInvariantViolation)
}

func TestCanTransition(t *testing.T) {
	all := []models.LogStatus{models.LogPending, models.LogApproved, models.LogDenied, models.LogReturned}
	allowed := map[[2]models.LogStatus]bool{
		{models.LogPending, models.LogApproved}:  true,
		{models.LogPending, models.LogDenied}:    true,
		{models.LogApproved, models.LogReturned}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]models.LogStatus{from, to}], canTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_RejectsReturnRecords(t *testing.T) {
	l := &models.Log{ID: "r", Action: models.ActionReturn, Status: models.LogPending}
	assert.ErrorIs(t, transition("x", l, models.LogApproved), ErrInvalidState)
	assert.Equal(t, models.LogPending, l.Status)
}

func TestKindNameAndMessage(t *testing.T) {
	err := newError(ErrConflict, "delete user", "cannot delete the last admin account")
	assert.Equal(t, "conflict", KindName(err))
	assert.Equal(t, "cannot delete the last admin account", Message(err))
	assert.Equal(t, "delete user: cannot delete the last admin account", err.Error())
	assert.Equal(t, "", KindName(assert.AnError))
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)
	p, s = NormalizePage(3, 500)
	assert.Equal(t, 3, p)
	assert.Equal(t, 20, s)
	_, s = NormalizePage(1, 50)
	assert.Equal(t, 50, s)
}
