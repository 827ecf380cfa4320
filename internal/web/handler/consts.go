package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath prefixes the JSON endpoints of signed-in principals.
	APIPath = RootPath + "api"

	// ErrNilDepsFatalLogMsg is used if app or deps are nil.
	ErrNilDepsFatalLogMsg = "app or handler deps are nil"
)

// ErrNilDeps is returned by Init when app or deps are missing.
var ErrNilDeps = errors.New(ErrNilDepsFatalLogMsg)

// Error writes a JSON error body.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// BadRequest writes the validation errors of err, or a generic message.
func BadRequest(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Error(c, fiber.StatusBadRequest, "invalid request")
	}

	fields := make(fiber.Map, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request", "fields": fields})
}

// SafeRedirect returns target when it is a local absolute path, fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}

	return target
}
