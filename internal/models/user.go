package models

import (
	"time"
)

// User represents a user in the system. Identity lives with the external
// token issuer; SubjectID is the issuer's stable subject claim.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SubjectID string    `gorm:"uniqueIndex;not null" json:"-"`
	Pseudonym string    `gorm:"size:255" json:"pseudonym"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// UpdatePseudonymRequest is the body of PATCH /me
type UpdatePseudonymRequest struct {
	Pseudonym string `json:"pseudonym" binding:"required,max=64"`
}
