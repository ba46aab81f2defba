package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"vance/internal/common"
	"vance/internal/database"
	"vance/internal/database/models"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	// GetByID returns the note whatever its owner; IsFavorite is computed
	// for viewerID.
	GetByID(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*models.Note, error)
	GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Note, error)
	GetAll(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	GetFavorites(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	Update(ctx context.Context, note *models.Note, userID uuid.UUID) error
	UpdateContent(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, title, content string) (*models.Note, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type noteRepository struct {
	db database.DBTX
}

func NewNoteRepository(db database.DBTX) NoteRepository {
	return &noteRepository{db: db}
}

// noteColumns expects the viewer id as the first query argument.
const noteColumns = `
	n.id, n.user_id, n.title, n.content, n.data,
	EXISTS (SELECT 1 FROM note_favorite f WHERE f.note_id = n.id AND f.user_id = $1) AS is_favorite,
	n.created_at, n.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner, note *models.Note, extra ...any) error {
	var data []byte
	dest := append([]any{
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&data,
		&note.IsFavorite,
		&note.CreatedAt,
		&note.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	note.Data = data
	return nil
}

// jsonArg turns an empty payload into SQL NULL.
func jsonArg(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func (r *noteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO note (user_id, title, content, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, note.UserID, note.Title, note.Content, jsonArg(note.Data)).
		Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating note: %w", err)
	}
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*models.Note, error) {
	note := models.Note{}
	query := `SELECT ` + noteColumns + ` FROM note n WHERE n.id = $2`
	err := scanNote(r.db.QueryRowContext(ctx, query, viewerID, id), &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Note, error) {
	note := models.Note{}
	query := `SELECT ` + noteColumns + ` FROM note n WHERE n.user_id = $1 AND n.id = $2`
	err := scanNote(r.db.QueryRowContext(ctx, query, userID, id), &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) GetAll(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM note n WHERE n.user_id = $1 ORDER BY n.created_at`
	return r.list(ctx, query, userID)
}

func (r *noteRepository) GetFavorites(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM note n
		JOIN note_favorite fav ON fav.note_id = n.id AND fav.user_id = $1
		WHERE n.user_id = $1
		ORDER BY n.created_at`
	return r.list(ctx, query, userID)
}

func (r *noteRepository) list(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	result, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying notes: %w", err)
	}
	defer result.Close()

	notes := []models.Note{}
	for result.Next() {
		var note models.Note
		if err := scanNote(result, &note); err != nil {
			return nil, fmt.Errorf("error scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) Update(ctx context.Context, note *models.Note, userID uuid.UUID) error {
	query := `
		UPDATE note
		SET title = $1, content = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND user_id = $4
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, note.Title, note.Content, note.ID, userID).Scan(&note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("error updating note: %w", err)
	}
	return nil
}

func (r *noteRepository) UpdateContent(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, title, content string) (*models.Note, error) {
	note := models.Note{}
	query := `
		UPDATE note
		SET title = $1, content = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, user_id, title, content, data,
			EXISTS (SELECT 1 FROM note_favorite f WHERE f.note_id = note.id AND f.user_id = $4),
			created_at, updated_at`
	err := scanNote(r.db.QueryRowContext(ctx, query, title, content, id, viewerID), &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	query := `DELETE FROM note WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
