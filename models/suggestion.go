package models

import "time"

type SuggestionType string

const (
	SuggestionItem    SuggestionType = "ITEM"
	SuggestionFeature SuggestionType = "FEATURE"
)

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "PENDING"
	SuggestionApproved SuggestionStatus = "APPROVED"
	SuggestionDenied   SuggestionStatus = "DENIED"
)

type Suggestion struct {
	ID          string           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string           `gorm:"type:uuid;index;not null" json:"userId"`
	Type        SuggestionType   `gorm:"size:10;not null" json:"type"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text;not null" json:"description"`
	Category    *string          `gorm:"size:100" json:"category"`
	Status      SuggestionStatus `gorm:"size:10;not null;default:'PENDING'" json:"status"`
	Timestamp   time.Time        `gorm:"index;not null" json:"timestamp"`
}

func (Suggestion) TableName() string { return SuggestionTable }

// Comment 追加式评论，挂在建议下面
type Comment struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"userId"`
	SuggestionID string    `gorm:"type:uuid;index;not null" json:"suggestionId"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	Timestamp    time.Time `gorm:"index;not null" json:"timestamp"`
}

func (Comment) TableName() string { return CommentTable }
