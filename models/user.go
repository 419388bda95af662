package models

import (
	"time"
)

type UserStatus string

const (
	UserPending  UserStatus = "PENDING"
	UserApproved UserStatus = "APPROVED"
	UserDenied   UserStatus = "DENIED"
)

type UserRole string

const (
	RoleMember UserRole = "Member"
	RoleAdmin  UserRole = "Admin"
)

// User 账号；IsAdmin 与 Role 必须保持一致
type User struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:80;not null" json:"username"`
	FullName     string     `gorm:"size:120;not null" json:"fullName"`
	Email        string     `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string     `gorm:"type:text;not null" json:"-"`
	LRN          *string    `gorm:"uniqueIndex;size:12" json:"lrn"`
	GradeLevel   *string    `gorm:"size:50" json:"gradeLevel"`
	Section      *string    `gorm:"size:50" json:"section"`
	Role         UserRole   `gorm:"size:20;not null;default:'Member'" json:"role"`
	IsAdmin      bool       `gorm:"not null;default:false;index" json:"isAdmin"`
	Status       UserStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	LastSeenAt   *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }

// SetAdmin keeps role and is_admin in step.
func (u *User) SetAdmin(admin bool) {
	u.IsAdmin = admin
	if admin {
		u.Role = RoleAdmin
	} else {
		u.Role = RoleMember
	}
}
