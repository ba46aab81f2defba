package models

import (
	"time"

	"github.com/google/uuid"
)

// User never serialises its password hash or recovery PIN.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Password      string     `json:"-"`
	Pin           *string    `json:"-"`
	PinExpiresAt  *time.Time `json:"-"`
	TotalNotes    int        `json:"total_notes"`
	SharedNotes   int        `json:"shared_notes"`
	FavoriteNotes int        `json:"favorite_notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
