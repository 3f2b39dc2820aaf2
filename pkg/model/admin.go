package model

import "time"

// Admin is a panel operator account.
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	PasswordHash string    `json:"-"`
	IsSudo       bool      `json:"isSudo"`
	CreatedAt    time.Time `json:"createdAt"`
}
