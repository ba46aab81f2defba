package repositories

import (
	"context"
	"fmt"
	"vance/internal/common"
	"vance/internal/database"

	"github.com/google/uuid"
)

type FavoriteRepository interface {
	// Add returns common.ErrorConflict when the user already favorited the note.
	Add(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) error
	// Remove reports whether a favorite was removed.
	Remove(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) (bool, error)
	DeleteByNote(ctx context.Context, noteID uuid.UUID) error
}

type favoriteRepository struct {
	db database.DBTX
}

func NewFavoriteRepository(db database.DBTX) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Add(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) error {
	query := `
		INSERT INTO note_favorite (note_id, user_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (note_id, user_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, noteID, userID)
	if err != nil {
		return fmt.Errorf("error adding favorite: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrorConflict
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) (bool, error) {
	query := `DELETE FROM note_favorite WHERE note_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, noteID, userID)
	if err != nil {
		return false, fmt.Errorf("error removing favorite: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *favoriteRepository) DeleteByNote(ctx context.Context, noteID uuid.UUID) error {
	query := `DELETE FROM note_favorite WHERE note_id = $1`
	if _, err := r.db.ExecContext(ctx, query, noteID); err != nil {
		return fmt.Errorf("error deleting favorites: %w", err)
	}
	return nil
}
