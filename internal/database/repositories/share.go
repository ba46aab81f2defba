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

type ShareRepository interface {
	// Create returns common.ErrorConflict when the pair is already shared.
	Create(ctx context.Context, share *models.Share) error
	Get(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) (*models.Share, error)
	CountByNote(ctx context.Context, noteID uuid.UUID) (int, error)
	GetRecipients(ctx context.Context, noteID uuid.UUID) ([]models.ShareRecipient, error)
	GetSharedWith(ctx context.Context, userID uuid.UUID) ([]models.SharedNote, error)
	UpdateCanEdit(ctx context.Context, noteID uuid.UUID, userID uuid.UUID, canEdit bool) error
	DeleteByNote(ctx context.Context, noteID uuid.UUID) (int64, error)
}

type shareRepository struct {
	db database.DBTX
}

func NewShareRepository(db database.DBTX) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO user_note (note_id, user_id, can_edit, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (note_id, user_id) DO NOTHING
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, share.NoteID, share.UserID, share.CanEdit).Scan(&share.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorConflict
	}
	if err != nil {
		return fmt.Errorf("error creating share: %w", err)
	}
	return nil
}

func (r *shareRepository) Get(ctx context.Context, noteID uuid.UUID, userID uuid.UUID) (*models.Share, error) {
	share := models.Share{}
	query := `SELECT note_id, user_id, can_edit, created_at FROM user_note WHERE note_id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, noteID, userID).Scan(&share.NoteID, &share.UserID, &share.CanEdit, &share.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting share: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) CountByNote(ctx context.Context, noteID uuid.UUID) (int, error) {
	var count int
	query := `SELECT count(*) FROM user_note WHERE note_id = $1`
	if err := r.db.QueryRowContext(ctx, query, noteID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting shares: %w", err)
	}
	return count, nil
}

func (r *shareRepository) GetRecipients(ctx context.Context, noteID uuid.UUID) ([]models.ShareRecipient, error) {
	query := `
		SELECT u.id, u.name, u.email, s.can_edit
		FROM user_note s
		JOIN users u ON u.id = s.user_id
		WHERE s.note_id = $1
		ORDER BY s.created_at`
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("error querying share recipients: %w", err)
	}
	defer rows.Close()

	recipients := []models.ShareRecipient{}
	for rows.Next() {
		var recipient models.ShareRecipient
		if err := rows.Scan(&recipient.ID, &recipient.Name, &recipient.Email, &recipient.CanEdit); err != nil {
			return nil, fmt.Errorf("error scanning share recipient: %w", err)
		}
		recipients = append(recipients, recipient)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share recipients: %w", err)
	}
	return recipients, nil
}

func (r *shareRepository) GetSharedWith(ctx context.Context, userID uuid.UUID) ([]models.SharedNote, error) {
	query := `
		SELECT ` + noteColumns + `, s.can_edit
		FROM note n
		JOIN user_note s ON s.note_id = n.id
		WHERE s.user_id = $1
		ORDER BY s.created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying shared notes: %w", err)
	}
	defer rows.Close()

	notes := []models.SharedNote{}
	for rows.Next() {
		var shared models.SharedNote
		if err := scanNote(rows, &shared.Note, &shared.CanEdit); err != nil {
			return nil, fmt.Errorf("error scanning shared note: %w", err)
		}
		notes = append(notes, shared)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared notes: %w", err)
	}
	return notes, nil
}

func (r *shareRepository) UpdateCanEdit(ctx context.Context, noteID uuid.UUID, userID uuid.UUID, canEdit bool) error {
	query := `UPDATE user_note SET can_edit = $1 WHERE note_id = $2 AND user_id = $3`
	result, err := r.db.ExecContext(ctx, query, canEdit, noteID, userID)
	if err != nil {
		return fmt.Errorf("error updating share permission: %w", err)
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

func (r *shareRepository) DeleteByNote(ctx context.Context, noteID uuid.UUID) (int64, error) {
	query := `DELETE FROM user_note WHERE note_id = $1`
	result, err := r.db.ExecContext(ctx, query, noteID)
	if err != nil {
		return 0, fmt.Errorf("error deleting shares: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return rowsAffected, nil
}
