package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE users SET total_notes = total_notes + 1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
			panic("kaboom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	called := false
	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestHealth(t *testing.T) {
	db, mock := newMockDB(t)
	svc := &service{db: db, dbName: "vance"}

	mock.ExpectPing()
	stats := svc.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Contains(t, stats, "open_connections")

	mock.ExpectPing().WillReturnError(errors.New("down"))
	stats = svc.Health(context.Background())
	assert.Equal(t, "down", stats["status"])
	assert.Equal(t, "database unreachable", stats["error"])
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", migrateURL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}
