package server

import (
	"context"
	"time"
	"vance/internal/config"
	"vance/internal/database"
	"vance/internal/database/dto"
	"vance/internal/database/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AccountService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (uuid.UUID, error)
	Login(ctx context.Context, req dto.LoginCredentials) (*models.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ValidatePin(ctx context.Context, req dto.ValidatePinRequest) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type NoteService interface {
	CreateNote(ctx context.Context, userID uuid.UUID, req dto.CreateNoteRequest) (*models.Note, error)
	UpdateNote(ctx context.Context, userID, noteID uuid.UUID, req dto.UpdateNoteRequest) (*models.Note, error)
	DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error
	GetNotes(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	GetFavoriteNotes(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	ShareNote(ctx context.Context, ownerID uuid.UUID, req dto.ShareNoteRequest) (*models.Share, error)
	GetSharedNoteUsers(ctx context.Context, callerID, noteID uuid.UUID) ([]models.ShareRecipient, error)
	UpdateNotePermission(ctx context.Context, callerID uuid.UUID, req dto.UpdatePermissionRequest) error
	EditSharedNote(ctx context.Context, callerID, noteID uuid.UUID, req dto.EditSharedNoteRequest) (*models.Note, error)
	GetSharedNotes(ctx context.Context, userID uuid.UUID) ([]models.SharedNote, error)
	FavoriteNote(ctx context.Context, userID, noteID uuid.UUID) error
	SearchNotes(ctx context.Context, userID uuid.UUID, query string) ([]models.Note, error)
}

type FiberServer struct {
	*fiber.App

	db        database.Service
	accounts  AccountService
	notes     NoteService
	jwtSecret []byte
}

func New(cfg *config.Config, db database.Service, accounts AccountService, notes NoteService) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: cfg.Server.AppName,
			AppName:      cfg.Server.AppName,
			UnescapePath: true,
			ErrorHandler: errorHandler,
		}),
		db:        db,
		accounts:  accounts,
		notes:     notes,
		jwtSecret: []byte(cfg.JWT.Secret),
	}

	server.App.Use(recover.New())
	server.App.Use(favicon.New())
	server.App.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		MaxAge:       3600,
	}))
	server.App.Use(requestLogger)
	if cfg.Server.Pprof {
		server.App.Use(pprof.New())
	}

	server.RegisterFiberRoutes()
	return server
}

// requestLogger writes one structured log line per request.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	entry := logrus.WithFields(logrus.Fields{
		"status_code": status,
		"latency":     time.Since(start),
		"client_ip":   c.IP(),
		"method":      c.Method(),
		"path":        c.Path(),
	})
	if err != nil {
		entry = entry.WithField("error", err.Error())
	}
	entry.Info("HTTP Request")
	return err
}
