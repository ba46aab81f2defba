package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"vance/internal/common"
	"vance/internal/database"
	"vance/internal/database/dto"
	"vance/internal/database/models"
	"vance/internal/database/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NoteService implements note CRUD, sharing and favorites. Every operation
// that touches more than one row runs in a single transaction.
type NoteService struct {
	db          *sql.DB
	repomanager repositories.Manager
	accounts    *AccountService
}

func NewNoteService(db *sql.DB, m repositories.Manager, accounts *AccountService) *NoteService {
	return &NoteService{db: db, repomanager: m, accounts: accounts}
}

func (s *NoteService) CreateNote(ctx context.Context, userID uuid.UUID, req dto.CreateNoteRequest) (*models.Note, error) {
	note := &models.Note{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Data:    req.Data,
	}

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		if err := s.repomanager.Notes(tx).Create(ctx, note); err != nil {
			return err
		}
		if err := s.accounts.UpdateUserTotalNotes(ctx, tx, userID, true); err != nil {
			return fmt.Errorf("error updating total notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote changes title and content of a note the caller owns and, when
// requested, toggles the caller's favorite on it.
func (s *NoteService) UpdateNote(ctx context.Context, userID, noteID uuid.UUID, req dto.UpdateNoteRequest) (*models.Note, error) {
	var note *models.Note
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		notes := s.repomanager.Notes(tx)

		var err error
		note, err = notes.GetOwned(ctx, noteID, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotOwned
			}
			return err
		}

		note.Title, note.Content = req.Title, req.Content
		if err := notes.Update(ctx, note, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotOwned
			}
			return err
		}

		if req.IsFavorite == nil || *req.IsFavorite == note.IsFavorite {
			return nil
		}
		if err := s.setFavorite(ctx, tx, noteID, userID, *req.IsFavorite); err != nil {
			return err
		}
		note.IsFavorite = *req.IsFavorite
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) setFavorite(ctx context.Context, tx database.DBTX, noteID, userID uuid.UUID, favorite bool) error {
	favorites := s.repomanager.Favorites(tx)
	if favorite {
		if err := favorites.Add(ctx, noteID, userID); err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrAlreadyFavorited
			}
			return err
		}
		return s.accounts.UpdateUserFavoriteNotes(ctx, tx, userID, true)
	}

	removed, err := favorites.Remove(ctx, noteID, userID)
	if err != nil || !removed {
		return err
	}
	return s.accounts.UpdateUserFavoriteNotes(ctx, tx, userID, false)
}

// DeleteNote removes a note the caller owns together with its shares and
// favorites, and releases the counters they held.
func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		if _, err := s.repomanager.Notes(tx).GetOwned(ctx, noteID, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotFound
			}
			return err
		}

		if err := s.repomanager.Users(tx).ReleaseNoteCounters(ctx, noteID); err != nil {
			return err
		}
		removed, err := s.repomanager.Shares(tx).DeleteByNote(ctx, noteID)
		if err != nil {
			return err
		}
		if err := s.repomanager.Favorites(tx).DeleteByNote(ctx, noteID); err != nil {
			return err
		}
		if err := s.repomanager.Notes(tx).Delete(ctx, noteID, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotFound
			}
			return err
		}
		if err := s.accounts.UpdateUserTotalNotes(ctx, tx, userID, false); err != nil {
			return fmt.Errorf("error updating total notes: %w", err)
		}

		logrus.WithFields(logrus.Fields{"note_id": noteID, "shares_removed": removed}).Info("note deleted")
		return nil
	})
}

func (s *NoteService) GetNotes(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	return s.repomanager.Notes(s.db).GetAll(ctx, userID)
}

// GetFavoriteNotes returns the user's own notes the user has favorited.
func (s *NoteService) GetFavoriteNotes(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	return s.repomanager.Notes(s.db).GetFavorites(ctx, userID)
}

// ShareNote grants the user registered under req.Email access to a note
// owned by ownerID.
func (s *NoteService) ShareNote(ctx context.Context, ownerID uuid.UUID, req dto.ShareNoteRequest) (*models.Share, error) {
	share := &models.Share{NoteID: req.NoteID, CanEdit: req.CanEdit}

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		note, err := s.repomanager.Notes(tx).GetByID(ctx, req.NoteID, ownerID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotFound
			}
			return err
		}
		// foreign notes are reported as missing
		if note.UserID != ownerID {
			return common.ErrNoteNotFound
		}

		recipient, err := s.repomanager.Users(tx).GetByEmail(ctx, normalizeEmail(req.Email))
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrRecipientNotFound
			}
			return err
		}
		if recipient.ID == ownerID {
			return common.ErrShareWithSelf
		}

		share.UserID = recipient.ID
		if err := s.repomanager.Shares(tx).Create(ctx, share); err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrAlreadyShared
			}
			return err
		}
		return s.accounts.UpdateUserSharedNotes(ctx, tx, recipient.ID)
	})
	if err != nil {
		return nil, err
	}
	return share, nil
}

// GetSharedNoteUsers lists the recipients of a note owned by the caller. An
// unshared note yields an empty list.
func (s *NoteService) GetSharedNoteUsers(ctx context.Context, callerID, noteID uuid.UUID) ([]models.ShareRecipient, error) {
	if err := s.ensureOwned(ctx, s.db, noteID, callerID); err != nil {
		return nil, err
	}
	return s.repomanager.Shares(s.db).GetRecipients(ctx, noteID)
}

func (s *NoteService) UpdateNotePermission(ctx context.Context, callerID uuid.UUID, req dto.UpdatePermissionRequest) error {
	if err := s.ensureOwned(ctx, s.db, req.NoteID, callerID); err != nil {
		return err
	}
	err := s.repomanager.Shares(s.db).UpdateCanEdit(ctx, req.NoteID, req.UserID, req.CanEdit)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrShareNotFound
	}
	return err
}

// EditSharedNote lets a recipient holding edit rights change the title and
// content of a note shared with them.
func (s *NoteService) EditSharedNote(ctx context.Context, callerID, noteID uuid.UUID, req dto.EditSharedNoteRequest) (*models.Note, error) {
	shares := s.repomanager.Shares(s.db)

	count, err := shares.CountByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, common.ErrShareNotFound
	}

	share, err := shares.Get(ctx, noteID, callerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrEditForbidden
		}
		return nil, err
	}
	if !share.CanEdit {
		return nil, common.ErrEditForbidden
	}

	note, err := s.repomanager.Notes(s.db).UpdateContent(ctx, noteID, callerID, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

func (s *NoteService) GetSharedNotes(ctx context.Context, userID uuid.UUID) ([]models.SharedNote, error) {
	return s.repomanager.Shares(s.db).GetSharedWith(ctx, userID)
}

// FavoriteNote adds the note to the caller's favorites. The caller must own
// the note or be one of its recipients.
func (s *NoteService) FavoriteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		note, err := s.repomanager.Notes(tx).GetByID(ctx, noteID, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoteNotFound
			}
			return err
		}
		if note.UserID != userID {
			if _, err := s.repomanager.Shares(tx).Get(ctx, noteID, userID); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrNoteNotFound
				}
				return err
			}
		}
		if note.IsFavorite {
			return common.ErrAlreadyFavorited
		}
		return s.setFavorite(ctx, tx, noteID, userID, true)
	})
}

// SearchNotes runs a prefix full-text search over the notes the user owns or
// that are shared with them.
func (s *NoteService) SearchNotes(ctx context.Context, userID uuid.UUID, query string) ([]models.Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &common.Error{Kind: common.ErrorValidation, Message: "search query is required"}
	}
	result, err := s.repomanager.Search(s.db).SearchQuery(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return result.Notes, nil
}

func (s *NoteService) ensureOwned(ctx context.Context, db database.DBTX, noteID, userID uuid.UUID) error {
	if _, err := s.repomanager.Notes(db).GetOwned(ctx, noteID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNoteNotFound
		}
		return err
	}
	return nil
}
