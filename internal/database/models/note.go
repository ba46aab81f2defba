package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Data       json.RawMessage `json:"data,omitempty"`
	IsFavorite bool            `json:"isFavorite"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SharedNote is a note seen through the caller's share of it.
type SharedNote struct {
	Note
	CanEdit bool `json:"can_edit"`
}
