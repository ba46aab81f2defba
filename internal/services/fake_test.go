package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"vance/internal/common"
	"vance/internal/config"
	"vance/internal/database"
	"vance/internal/database/models"
	"vance/internal/database/repositories"
	"vance/internal/mailer"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type pairKey struct {
	note uuid.UUID
	user uuid.UUID
}

// memStore is an in-memory repositories.Manager. Transactions are not
// modelled: the sqlmock handle only records Begin/Commit/Rollback.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	notes     map[uuid.UUID]*models.Note
	shares    map[pairKey]*models.Share
	favorites map[pairKey]bool
	seq       int
	fail      map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]*models.User{},
		notes:     map[uuid.UUID]*models.Note{},
		shares:    map[pairKey]*models.Share{},
		favorites: map[pairKey]bool{},
		fail:      map[string]error{},
	}
}

func (s *memStore) Users(database.DBTX) repositories.UserRepository         { return memUsers{s} }
func (s *memStore) Notes(database.DBTX) repositories.NoteRepository         { return memNotes{s} }
func (s *memStore) Shares(database.DBTX) repositories.ShareRepository       { return memShares{s} }
func (s *memStore) Favorites(database.DBTX) repositories.FavoriteRepository { return memFavorites{s} }
func (s *memStore) Search(database.DBTX) repositories.SearchRepository      { return memSearch{s} }

// tick returns a strictly increasing timestamp so listings keep insertion order.
func (s *memStore) tick() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, s.seq, 0, time.UTC)
}

func (s *memStore) user(id uuid.UUID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) shareCount(noteID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.shares {
		if k.note == noteID {
			n++
		}
	}
	return n
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return common.ErrorConflict
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetAll(context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []models.User{}
	for _, u := range r.s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r memUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(u *models.User) { u.Password = passwordHash })
}

func (r memUsers) SetPin(_ context.Context, id uuid.UUID, pin string, expiresAt time.Time) error {
	return r.update(id, func(u *models.User) { u.Pin, u.PinExpiresAt = &pin, &expiresAt })
}

func (r memUsers) ClearPin(_ context.Context, id uuid.UUID, pin string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Pin == nil || *u.Pin != pin {
		return false, nil
	}
	u.Pin, u.PinExpiresAt = nil, nil
	return true, nil
}

func (r memUsers) UpdateTotalNotes(_ context.Context, id uuid.UUID, increment bool) error {
	if err := r.s.fail["UpdateTotalNotes"]; err != nil {
		return err
	}
	return r.update(id, func(u *models.User) { bump(&u.TotalNotes, increment) })
}

func (r memUsers) UpdateSharedNotes(_ context.Context, id uuid.UUID, increment bool) error {
	return r.update(id, func(u *models.User) { bump(&u.SharedNotes, increment) })
}

func (r memUsers) UpdateFavoriteNotes(_ context.Context, id uuid.UUID, increment bool) error {
	return r.update(id, func(u *models.User) { bump(&u.FavoriteNotes, increment) })
}

func (r memUsers) ReleaseNoteCounters(_ context.Context, noteID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.shares {
		if u, ok := r.s.users[k.user]; ok && k.note == noteID {
			bump(&u.SharedNotes, false)
		}
	}
	for k := range r.s.favorites {
		if u, ok := r.s.users[k.user]; ok && k.note == noteID {
			bump(&u.FavoriteNotes, false)
		}
	}
	return nil
}

func (r memUsers) update(id uuid.UUID, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func bump(counter *int, increment bool) {
	if increment {
		*counter++
	} else if *counter > 0 {
		*counter--
	}
}

type memNotes struct{ s *memStore }

func (r memNotes) Create(_ context.Context, note *models.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	note.ID = uuid.New()
	note.CreatedAt = r.s.tick()
	note.UpdatedAt = note.CreatedAt
	stored := *note
	r.s.notes[note.ID] = &stored
	return nil
}

// view copies a stored note with IsFavorite computed for viewer. Callers
// hold the lock.
func (r memNotes) view(n *models.Note, viewer uuid.UUID) models.Note {
	out := *n
	out.IsFavorite = r.s.favorites[pairKey{n.ID, viewer}]
	return out
}

func (r memNotes) GetByID(_ context.Context, id uuid.UUID, viewerID uuid.UUID) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := r.view(n, viewerID)
	return &out, nil
}

func (r memNotes) GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Note, error) {
	n, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return n, nil
}

func (r memNotes) GetAll(_ context.Context, userID uuid.UUID) ([]models.Note, error) {
	return r.list(func(n *models.Note) bool { return n.UserID == userID }, userID), nil
}

func (r memNotes) GetFavorites(_ context.Context, userID uuid.UUID) ([]models.Note, error) {
	return r.list(func(n *models.Note) bool {
		return n.UserID == userID && r.s.favorites[pairKey{n.ID, userID}]
	}, userID), nil
}

func (r memNotes) list(keep func(n *models.Note) bool, viewer uuid.UUID) []models.Note {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notes := []models.Note{}
	for _, n := range r.s.notes {
		if keep(n) {
			notes = append(notes, r.view(n, viewer))
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })
	return notes
}

func (r memNotes) Update(_ context.Context, note *models.Note, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[note.ID]
	if !ok || n.UserID != userID {
		return common.ErrorNotFound
	}
	n.Title, n.Content = note.Title, note.Content
	n.UpdatedAt = r.s.tick()
	note.UpdatedAt = n.UpdatedAt
	return nil
}

func (r memNotes) UpdateContent(_ context.Context, id uuid.UUID, viewerID uuid.UUID, title, content string) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	n.Title, n.Content = title, content
	n.UpdatedAt = r.s.tick()
	out := r.view(n, viewerID)
	return &out, nil
}

func (r memNotes) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.notes, id)
	return nil
}

type memShares struct{ s *memStore }

func (r memShares) Create(_ context.Context, share *models.Share) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{share.NoteID, share.UserID}
	if _, ok := r.s.shares[key]; ok {
		return common.ErrorConflict
	}
	share.CreatedAt = r.s.tick()
	stored := *share
	r.s.shares[key] = &stored
	return nil
}

func (r memShares) Get(_ context.Context, noteID uuid.UUID, userID uuid.UUID) (*models.Share, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[pairKey{noteID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *sh
	return &out, nil
}

func (r memShares) CountByNote(_ context.Context, noteID uuid.UUID) (int, error) {
	return r.s.shareCount(noteID), nil
}

func (r memShares) GetRecipients(_ context.Context, noteID uuid.UUID) ([]models.ShareRecipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recipients := []models.ShareRecipient{}
	for k, sh := range r.s.shares {
		if k.note != noteID {
			continue
		}
		u := r.s.users[k.user]
		recipients = append(recipients, models.ShareRecipient{ID: u.ID, Name: u.Name, Email: u.Email, CanEdit: sh.CanEdit})
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].Email < recipients[j].Email })
	return recipients, nil
}

func (r memShares) GetSharedWith(_ context.Context, userID uuid.UUID) ([]models.SharedNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notes := []models.SharedNote{}
	for k, sh := range r.s.shares {
		if k.user != userID {
			continue
		}
		n := memNotes{r.s}.view(r.s.notes[k.note], userID)
		notes = append(notes, models.SharedNote{Note: n, CanEdit: sh.CanEdit})
	}
	return notes, nil
}

func (r memShares) UpdateCanEdit(_ context.Context, noteID uuid.UUID, userID uuid.UUID, canEdit bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[pairKey{noteID, userID}]
	if !ok {
		return common.ErrorNotFound
	}
	sh.CanEdit = canEdit
	return nil
}

func (r memShares) DeleteByNote(_ context.Context, noteID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.shares {
		if k.note == noteID {
			delete(r.s.shares, k)
			n++
		}
	}
	return n, nil
}

type memFavorites struct{ s *memStore }

func (r memFavorites) Add(_ context.Context, noteID uuid.UUID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{noteID, userID}
	if r.s.favorites[key] {
		return common.ErrorConflict
	}
	r.s.favorites[key] = true
	return nil
}

func (r memFavorites) Remove(_ context.Context, noteID uuid.UUID, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{noteID, userID}
	if !r.s.favorites[key] {
		return false, nil
	}
	delete(r.s.favorites, key)
	return true, nil
}

func (r memFavorites) DeleteByNote(_ context.Context, noteID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.favorites {
		if k.note == noteID {
			delete(r.s.favorites, k)
		}
	}
	return nil
}

type memSearch struct{ s *memStore }

// SearchQuery matches every word as a case-insensitive substring.
func (r memSearch) SearchQuery(_ context.Context, query string, userID uuid.UUID) (*models.SearchResult, error) {
	words := strings.Fields(strings.ToLower(query))
	notes := memNotes{r.s}.list(func(n *models.Note) bool {
		_, shared := r.s.shares[pairKey{n.ID, userID}]
		if n.UserID != userID && !shared {
			return false
		}
		text := strings.ToLower(n.Title + " " + n.Content)
		for _, w := range words {
			if !strings.Contains(text, w) {
				return false
			}
		}
		return true
	}, userID)
	return &models.SearchResult{Notes: notes}, nil
}

type fakeMailer struct {
	sent []mailer.PinMessage
	err  error
}

func (f *fakeMailer) SendPin(_ context.Context, msg mailer.PinMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	mailer   *fakeMailer
	accounts *AccountService
	notes    *NoteService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireMinutes: 60},
		Pin: config.PinConfig{TTLMinutes: 10},
	}
	store := newMemStore()
	m := &fakeMailer{}
	accounts := NewAccountService(db, store, m, cfg)
	return &testEnv{
		db:       db,
		mock:     mock,
		store:    store,
		mailer:   m,
		accounts: accounts,
		notes:    NewNoteService(db, store, accounts),
	}
}

func (e *testEnv) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e *testEnv) expectRollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}

func (e *testEnv) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, e.mock.ExpectationsWereMet())
}
