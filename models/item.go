// models/item.go
package models

import "time"

const (
	ItemTable       = "lab_items"
	UserTable       = "lab_users"
	LogTable        = "lab_logs"
	SuggestionTable = "lab_suggestions"
	CommentTable    = "lab_comments"
)

// Item 库存条目：total 为容量，available 为当前在库数量
type Item struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"name"`
	Category          string    `gorm:"size:100;not null" json:"category"`
	TotalQuantity     int       `gorm:"not null;check:chk_lab_items_total,total_quantity >= 0" json:"totalQuantity"`
	AvailableQuantity int       `gorm:"not null;check:chk_lab_items_available,available_quantity >= 0 AND available_quantity <= total_quantity" json:"availableQuantity"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Item) TableName() string { return ItemTable }

// BorrowedQuantity is derived, never stored.
func (it Item) BorrowedQuantity() int { return it.TotalQuantity - it.AvailableQuantity }
