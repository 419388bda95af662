package db

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"lab_inventory/inventory"
)

// translate maps gorm errors onto the inventory error kinds.
func translate(err error, op, what, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return inventory.NotFoundf(op, "%s %s not found", what, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return inventory.Conflictf(op, "%s already exists", what)
	default:
		return errors.Wrap(err, op)
	}
}

// 主键是 uuid 列，非法 id 直接当作不存在，避免 Postgres 报类型错误
func checkID(op, what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return inventory.NotFoundf(op, "%s %s not found", what, id)
	}
	return nil
}
