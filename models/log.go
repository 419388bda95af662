// models/log.go
package models

import "time"

type LogAction string

const (
	ActionBorrow LogAction = "BORROW"
	ActionReturn LogAction = "RETURN"
)

type LogStatus string

const (
	LogPending  LogStatus = "PENDING"
	LogApproved LogStatus = "APPROVED"
	LogDenied   LogStatus = "DENIED"
	LogReturned LogStatus = "RETURNED"
)

// Log 借还记录（审计用，永不删除）
// BORROW 行经历 PENDING -> APPROVED/DENIED -> RETURNED；
// RETURN 行创建即为 RETURNED，RelatedLogID 指回对应的 BORROW 行。
type Log struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string    `gorm:"type:uuid;index;not null" json:"userId"`
	ItemID          string    `gorm:"type:uuid;index;not null" json:"itemId"`
	Quantity        int       `gorm:"not null;check:chk_lab_logs_quantity,quantity > 0" json:"quantity"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	Action          LogAction `gorm:"size:10;not null" json:"action"`
	Status          LogStatus `gorm:"size:10;not null;index" json:"status"`
	AdminNotes      *string   `gorm:"type:text" json:"adminNotes"`
	RelatedLogID    *string   `gorm:"type:uuid" json:"relatedLogId"`
	ReturnRequested bool      `gorm:"not null;default:false" json:"returnRequested"`
}

func (Log) TableName() string { return LogTable }
