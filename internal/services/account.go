// Package services holds the account and note business logic. Services own
// transaction boundaries; repositories only run single statements.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"vance/internal/auth"
	"vance/internal/common"
	"vance/internal/config"
	"vance/internal/database"
	"vance/internal/database/dto"
	"vance/internal/database/models"
	"vance/internal/database/repositories"
	"vance/internal/mailer"
	"vance/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AccountService handles signup, login and password recovery, and maintains
// the per-user note counters.
type AccountService struct {
	db          *sql.DB
	repomanager repositories.Manager
	mailer      mailer.Sender
	jwtSecret   []byte
	tokenTTL    time.Duration
	pinTTL      time.Duration
	now         func() time.Time
}

func NewAccountService(db *sql.DB, m repositories.Manager, sender mailer.Sender, cfg *config.Config) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		mailer:      sender,
		jwtSecret:   []byte(cfg.JWT.Secret),
		tokenTTL:    cfg.TokenTTL(),
		pinTTL:      cfg.PinTTL(),
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup stores a new user and returns its id.
func (s *AccountService) Signup(ctx context.Context, req dto.SignupRequest) (uuid.UUID, error) {
	repo := s.repomanager.Users(s.db)
	email := normalizeEmail(req.Email)

	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return uuid.Nil, common.ErrEmailTaken
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return uuid.Nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Name: strings.TrimSpace(req.Name), Email: email, Password: hash}
	if err := repo.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, common.ErrorConflict) {
			return uuid.Nil, common.ErrEmailTaken
		}
		return uuid.Nil, err
	}

	logrus.WithField("user_id", user.ID).Info("user signed up")
	return user.ID, nil
}

// Login verifies the credentials and returns the user with a session token.
// Unknown email and wrong password fail with the same error.
func (s *AccountService) Login(ctx context.Context, req dto.LoginCredentials) (*models.User, string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("error looking up user: %w", err)
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", common.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("error generating token: %w", err)
	}
	return user, token, nil
}

// ForgotPassword issues a fresh PIN to the user and mails it.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)
	user, err := s.userByEmail(ctx, repo, email)
	if err != nil {
		return err
	}

	pin, err := utils.GeneratePin()
	if err != nil {
		return fmt.Errorf("error generating pin: %w", err)
	}
	if err := repo.SetPin(ctx, user.ID, pin, s.now().Add(s.pinTTL)); err != nil {
		return fmt.Errorf("error storing pin: %w", err)
	}

	return s.mailer.SendPin(ctx, mailer.PinMessage{
		To:        user.Email,
		Name:      user.Name,
		Pin:       pin,
		ExpiresIn: s.pinTTL,
	})
}

// ValidatePin consumes the user's PIN. A PIN validates at most once and not
// after it expired.
func (s *AccountService) ValidatePin(ctx context.Context, req dto.ValidatePinRequest) error {
	repo := s.repomanager.Users(s.db)
	user, err := s.userByEmail(ctx, repo, req.Email)
	if err != nil {
		return err
	}

	if user.Pin == nil || !utils.PinsEqual(*user.Pin, req.Pin) {
		return common.ErrInvalidPin
	}
	if user.PinExpiresAt != nil && !s.now().Before(*user.PinExpiresAt) {
		return common.ErrInvalidPin
	}

	cleared, err := repo.ClearPin(ctx, user.ID, req.Pin)
	if err != nil {
		return fmt.Errorf("error clearing pin: %w", err)
	}
	if !cleared {
		return common.ErrInvalidPin
	}
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	repo := s.repomanager.Users(s.db)
	user, err := s.userByEmail(ctx, repo, req.Email)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	logrus.WithField("user_id", user.ID).Info("password reset")
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repomanager.Users(s.db).GetAll(ctx)
}

// UpdateUserTotalNotes moves the user's total_notes counter by one.
func (s *AccountService) UpdateUserTotalNotes(ctx context.Context, db database.DBTX, userID uuid.UUID, increment bool) error {
	return s.counterErr(s.repomanager.Users(db).UpdateTotalNotes(ctx, userID, increment))
}

// UpdateUserSharedNotes bumps the recipient's shared_notes counter.
func (s *AccountService) UpdateUserSharedNotes(ctx context.Context, db database.DBTX, userID uuid.UUID) error {
	return s.counterErr(s.repomanager.Users(db).UpdateSharedNotes(ctx, userID, true))
}

func (s *AccountService) UpdateUserFavoriteNotes(ctx context.Context, db database.DBTX, userID uuid.UUID, increment bool) error {
	return s.counterErr(s.repomanager.Users(db).UpdateFavoriteNotes(ctx, userID, increment))
}

func (s *AccountService) counterErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrUserNotFound
	}
	return err
}

func (s *AccountService) userByEmail(ctx context.Context, repo repositories.UserRepository, email string) (*models.User, error) {
	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	return user, nil
}
