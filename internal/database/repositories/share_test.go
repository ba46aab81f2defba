package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"vance/internal/common"
	"vance/internal/database/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO user_note .* ON CONFLICT \(note_id, user_id\) DO NOTHING RETURNING created_at`).
		WithArgs(noteID, userID, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	share := &models.Share{NoteID: noteID, UserID: userID}
	require.NoError(t, repo.Create(context.Background(), share))
	assert.Equal(t, now, share.CreatedAt)

	// conflict: DO NOTHING returns no row
	mock.ExpectQuery(`INSERT INTO user_note`).
		WithArgs(noteID, userID, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	assert.ErrorIs(t, repo.Create(context.Background(), share), common.ErrorConflict)
}

func TestShareGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM user_note WHERE note_id = \$1 AND user_id = \$2`).
		WithArgs(noteID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "user_id", "can_edit", "created_at"}).
			AddRow(noteID.String(), userID.String(), true, time.Now()))

	share, err := repo.Get(context.Background(), noteID, userID)
	require.NoError(t, err)
	assert.True(t, share.CanEdit)

	mock.ExpectQuery(`FROM user_note`).WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), noteID, userID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestShareCountByNote(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM user_note WHERE note_id = \$1`).
		WithArgs(noteID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByNote(context.Background(), noteID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestShareGetRecipients(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID, bob := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT u.id, u.name, u.email, s.can_edit FROM user_note s JOIN users u`).
		WithArgs(noteID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "can_edit"}).
			AddRow(bob.String(), "Bob", "b@x.com", false))

	recipients, err := repo.GetRecipients(context.Background(), noteID)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, models.ShareRecipient{ID: bob, Name: "Bob", Email: "b@x.com"}, recipients[0])
}

func TestShareGetSharedWith(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	owner, bob, noteID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	cols := append(append([]string{}, noteRowColumns...), "can_edit")
	mock.ExpectQuery(`JOIN user_note s ON s.note_id = n.id WHERE s.user_id = \$1`).
		WithArgs(bob).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(noteID.String(), owner.String(), "Groceries", "milk,eggs", nil, false, now, now, true))

	notes, err := repo.GetSharedWith(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, owner, notes[0].UserID)
	assert.True(t, notes[0].CanEdit)
}

func TestShareUpdateCanEdit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE user_note SET can_edit = \$1 WHERE note_id = \$2 AND user_id = \$3`).
		WithArgs(true, noteID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCanEdit(context.Background(), noteID, userID, true))

	mock.ExpectExec(`UPDATE user_note`).
		WithArgs(true, noteID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateCanEdit(context.Background(), noteID, userID, true), common.ErrorNotFound)
}

func TestShareDeleteByNote(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShareRepository(db)
	noteID := uuid.New()

	mock.ExpectExec(`DELETE FROM user_note WHERE note_id = \$1`).
		WithArgs(noteID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByNote(context.Background(), noteID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
