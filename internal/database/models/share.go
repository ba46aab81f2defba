package models

import (
	"time"

	"github.com/google/uuid"
)

// Share is a row of user_note: the recipient UserID may read NoteID and,
// with CanEdit, change its title and content.
type Share struct {
	NoteID    uuid.UUID `json:"note_id"`
	UserID    uuid.UUID `json:"user_id"`
	CanEdit   bool      `json:"can_edit"`
	CreatedAt time.Time `json:"created_at"`
}

type ShareRecipient struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	CanEdit bool      `json:"can_edit"`
}

type SearchResult struct {
	Notes []Note `json:"notes"`
}
