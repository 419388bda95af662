package models

import "time"

type NotificationType string

const (
	NotifyNewUser          NotificationType = "new_user"
	NotifyNewBorrowRequest NotificationType = "new_borrow_request"
	NotifyReturnRequest    NotificationType = "return_request"
)

// Notification is built on the fly for the caller and never stored.
type Notification struct {
	ID           string           `json:"id"`
	Message      string           `json:"message"`
	Type         NotificationType `json:"type"`
	Read         bool             `json:"read"`
	Timestamp    time.Time        `json:"timestamp"`
	RelatedLogID *string          `json:"relatedLogId"`
}

// Snapshot 全量数据视图（首屏加载、报表使用）
type Snapshot struct {
	Items         []Item         `json:"items"`
	Users         []User         `json:"users"`
	Logs          []Log          `json:"logs"`
	Suggestions   []Suggestion   `json:"suggestions"`
	Comments      []Comment      `json:"comments"`
	Notifications []Notification `json:"notifications"`
}

// Tables 参与迁移的全部表
var Tables = []interface{}{&User{}, &Item{}, &Log{}, &Suggestion{}, &Comment{}}
