package server

import (
	"errors"
	"vance/internal/common"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Error   *string `json:"error"`
	Status  int     `json:"status"`
	Message string  `json:"message,omitempty"`
	Data    any     `json:"data"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

func respondError(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(Response{Error: &kind, Status: status, Message: message})
}

var errorKinds = []struct {
	kind   error
	status int
}{
	{common.ErrorNotFound, fiber.StatusNotFound},
	{common.ErrorConflict, fiber.StatusConflict},
	{common.ErrorValidation, fiber.StatusBadRequest},
	{common.ErrorUnauthorized, fiber.StatusUnauthorized},
	{common.ErrorForbidden, fiber.StatusForbidden},
}

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return fiber.StatusInternalServerError
}

// errorHandler turns handler errors into the response envelope. Unknown
// errors are logged and answered with a generic 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return respondError(c, fe.Code, utils.StatusMessage(fe.Code), fe.Message)
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			message := k.kind.Error()
			var domainErr *common.Error
			if errors.As(err, &domainErr) {
				message = domainErr.Message
			}
			return respondError(c, k.status, k.kind.Error(), message)
		}
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return respondError(c, fiber.StatusInternalServerError, common.ErrorInternal.Error(), "internal server error")
}

func badRequest(message string) error {
	return &common.Error{Kind: common.ErrorValidation, Message: message}
}
