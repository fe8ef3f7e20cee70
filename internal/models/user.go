package models

import "gorm.io/gorm"

// User owns strategies, exchanges and trades. Account management itself
// (passwords, sessions) lives outside this service.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
}
