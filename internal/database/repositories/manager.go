package repositories

import "vance/internal/database"

// Manager vends repositories bound to either the pool or a transaction.
type Manager interface {
	Users(db database.DBTX) UserRepository
	Notes(db database.DBTX) NoteRepository
	Shares(db database.DBTX) ShareRepository
	Favorites(db database.DBTX) FavoriteRepository
	Search(db database.DBTX) SearchRepository
}

type postgresManager struct{}

func NewManager() Manager {
	return postgresManager{}
}

func (postgresManager) Users(db database.DBTX) UserRepository         { return NewUserRepository(db) }
func (postgresManager) Notes(db database.DBTX) NoteRepository         { return NewNoteRepository(db) }
func (postgresManager) Shares(db database.DBTX) ShareRepository       { return NewShareRepository(db) }
func (postgresManager) Favorites(db database.DBTX) FavoriteRepository { return NewFavoriteRepository(db) }
func (postgresManager) Search(db database.DBTX) SearchRepository      { return NewSearchRepository(db) }
