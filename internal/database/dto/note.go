package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateNoteRequest struct {
	Title   string          `json:"title" validate:"required,max=255"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

// UpdateNoteRequest leaves the favorite state untouched when IsFavorite is
// omitted.
type UpdateNoteRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Content    string `json:"content"`
	IsFavorite *bool  `json:"isFavorite"`
}

type ShareNoteRequest struct {
	NoteID  uuid.UUID `json:"noteId" validate:"required"`
	Email   string    `json:"email" validate:"required,email"`
	CanEdit bool      `json:"canEdit"`
}

type UpdatePermissionRequest struct {
	NoteID  uuid.UUID `json:"noteId" validate:"required"`
	UserID  uuid.UUID `json:"userId" validate:"required"`
	CanEdit bool      `json:"canEdit"`
}

type EditSharedNoteRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content"`
}
