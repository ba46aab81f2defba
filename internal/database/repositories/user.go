package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vance/internal/common"
	"vance/internal/database"
	"vance/internal/database/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	SetPin(ctx context.Context, id uuid.UUID, pin string, expiresAt time.Time) error
	// ClearPin clears the stored PIN only while it still equals pin and
	// reports whether it did.
	ClearPin(ctx context.Context, id uuid.UUID, pin string) (bool, error)

	UpdateTotalNotes(ctx context.Context, id uuid.UUID, increment bool) error
	UpdateSharedNotes(ctx context.Context, id uuid.UUID, increment bool) error
	UpdateFavoriteNotes(ctx context.Context, id uuid.UUID, increment bool) error
	// ReleaseNoteCounters decrements shared_notes of every recipient and
	// favorite_notes of every user who favorited the note.
	ReleaseNoteCounters(ctx context.Context, noteID uuid.UUID) error
}

type userRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password, pin, pin_expires_at, total_notes, shared_notes, favorite_notes, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Pin,
		&user.PinExpiresAt,
		&user.TotalNotes,
		&user.SharedNotes,
		&user.FavoriteNotes,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Password).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorConflict
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	err := scanUser(r.db.QueryRowContext(ctx, query, email), &user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.execOne(ctx, "error updating password", query, passwordHash, id)
}

func (r *userRepository) SetPin(ctx context.Context, id uuid.UUID, pin string, expiresAt time.Time) error {
	query := `UPDATE users SET pin = $1, pin_expires_at = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	return r.execOne(ctx, "error storing pin", query, pin, expiresAt, id)
}

func (r *userRepository) ClearPin(ctx context.Context, id uuid.UUID, pin string) (bool, error) {
	query := `
		UPDATE users
		SET pin = NULL, pin_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND pin = $2`
	result, err := r.db.ExecContext(ctx, query, id, pin)
	if err != nil {
		return false, fmt.Errorf("error clearing pin: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *userRepository) UpdateTotalNotes(ctx context.Context, id uuid.UUID, increment bool) error {
	return r.updateCounter(ctx, "total_notes", id, increment)
}

func (r *userRepository) UpdateSharedNotes(ctx context.Context, id uuid.UUID, increment bool) error {
	return r.updateCounter(ctx, "shared_notes", id, increment)
}

func (r *userRepository) UpdateFavoriteNotes(ctx context.Context, id uuid.UUID, increment bool) error {
	return r.updateCounter(ctx, "favorite_notes", id, increment)
}

// column is always one of the constants above, never user input.
func (r *userRepository) updateCounter(ctx context.Context, column string, id uuid.UUID, increment bool) error {
	delta := -1
	if increment {
		delta = 1
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = GREATEST(%[1]s + $1, 0), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`, column)
	return r.execOne(ctx, "error updating "+column, query, delta, id)
}

func (r *userRepository) ReleaseNoteCounters(ctx context.Context, noteID uuid.UUID) error {
	shared := `
		UPDATE users SET shared_notes = GREATEST(shared_notes - 1, 0)
		WHERE id IN (SELECT user_id FROM user_note WHERE note_id = $1)`
	if _, err := r.db.ExecContext(ctx, shared, noteID); err != nil {
		return fmt.Errorf("error updating shared_notes: %w", err)
	}

	favorites := `
		UPDATE users SET favorite_notes = GREATEST(favorite_notes - 1, 0)
		WHERE id IN (SELECT user_id FROM note_favorite WHERE note_id = $1)`
	if _, err := r.db.ExecContext(ctx, favorites, noteID); err != nil {
		return fmt.Errorf("error updating favorite_notes: %w", err)
	}
	return nil
}

// execOne runs an update that must hit exactly one user row.
func (r *userRepository) execOne(ctx context.Context, errMsg, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
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
