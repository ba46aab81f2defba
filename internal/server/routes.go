package server

import (
	"errors"
	"vance/internal/auth"
	"vance/internal/common"
	"vance/internal/database/dto"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidSession = &common.Error{Kind: common.ErrorForbidden, Message: "invalid or expired token"}

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api")
	api.Post("/signup", s.signup)
	api.Post("/login", s.login)
	api.Get("/forgot-password/:email/code", s.forgotPassword)
	api.Post("/validate-pin", s.validatePin)
	api.Post("/reset-password", s.resetPassword)

	authRequired := s.authRequired()
	api.Get("/users", authRequired, s.listUsers)

	notes := api.Group("/notes", authRequired)
	notes.Post("/", s.createNote)
	notes.Get("/", s.getNotes)
	notes.Post("/get", s.getNotes)
	notes.Get("/search", s.searchNotes)
	notes.Get("/shared", s.getSharedNotes)
	notes.Post("/share", s.shareNote)
	notes.Post("/shared/permission", s.updateNotePermission)
	notes.Get("/shared/:noteId/users", s.getSharedNoteUsers)
	notes.Put("/shared/:id", s.editSharedNote)
	notes.Get("/favorites/:userId", s.getFavoriteNotes)
	notes.Put("/:id", s.updateNote)
	notes.Delete("/:id", s.deleteNote)
	notes.Post("/:id/favorite", s.favoriteNote)
}

// authRequired verifies the bearer token: a missing or malformed header is
// answered with 401, a bad signature or an expired token with 403.
func (s *FiberServer) authRequired() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: s.jwtSecret},
		Claims:     &auth.Claims{},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return respondError(c, fiber.StatusUnauthorized, common.ErrorUnauthorized.Error(), "missing or malformed token")
			}
			return respondError(c, fiber.StatusForbidden, common.ErrorForbidden.Error(), errInvalidSession.Message)
		},
	})
}

// callerID returns the user id from the verified token.
func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errInvalidSession
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return uuid.Nil, errInvalidSession
	}
	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil, errInvalidSession
	}
	return id, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}

// parseBody decodes the JSON body into req and validates it.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return badRequest("invalid request body")
	}
	return dto.Validate(req)
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := s.db.Health(c.UserContext())
	status := fiber.StatusOK
	if health["status"] != "up" {
		status = fiber.StatusServiceUnavailable
	}
	return respond(c, status, "", health)
}

func (s *FiberServer) signup(c *fiber.Ctx) error {
	req := dto.SignupRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	id, err := s.accounts.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "user created successfully", fiber.Map{"id": id})
}

func (s *FiberServer) login(c *fiber.Ctx) error {
	credentials := dto.LoginCredentials{}
	if err := parseBody(c, &credentials); err != nil {
		return err
	}
	user, token, err := s.accounts.Login(c.UserContext(), credentials)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"user": user, "token": token})
}

func (s *FiberServer) forgotPassword(c *fiber.Ctx) error {
	req := dto.ForgotPasswordRequest{}
	if err := c.ParamsParser(&req); err != nil {
		return badRequest("invalid email")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	if err := s.accounts.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "pin sent to email", nil)
}

func (s *FiberServer) validatePin(c *fiber.Ctx) error {
	req := dto.ValidatePinRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.accounts.ValidatePin(c.UserContext(), req); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "pin validated", nil)
}

func (s *FiberServer) resetPassword(c *fiber.Ctx) error {
	req := dto.ResetPasswordRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.accounts.ResetPassword(c.UserContext(), req); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "password updated", nil)
}

func (s *FiberServer) listUsers(c *fiber.Ctx) error {
	users, err := s.accounts.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", users)
}
