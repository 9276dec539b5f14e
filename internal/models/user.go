package models

import "time"

// UserAccount is a warehouse operator login. Authentication itself lives in
// utils/middleware; the core only needs the hash and role.
type UserAccount struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);default:'agent'" json:"role"` // admin, agent
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (UserAccount) TableName() string { return "user_accounts" }
