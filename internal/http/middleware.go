package http

import (
	"strconv"
	"strings"

	"chessagent/internal/a2a"
	"chessagent/internal/core"
	"chessagent/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/lixenwraith/auth"
)

// TokenValidator validates bearer tokens and returns the subject.
type TokenValidator func(token string) (subject string, claims map[string]any, err error)

// HS256Validator checks tokens minted by the token command.
func HS256Validator(secret []byte) TokenValidator {
	return func(token string) (string, map[string]any, error) {
		return auth.ValidateHS256Token(secret, token)
	}
}

// AuthRequired enforces bearer authentication on the RPC endpoint
func AuthRequired(validateToken TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(
				a2a.NewError(nil, core.NewInvalidRequest("missing authorization token")))
		}

		subject, _, err := validateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(
				a2a.NewError(nil, core.NewInvalidRequest("invalid or expired token")))
		}

		c.Locals("subject", subject)
		return c.Next()
	}
}

// extractBearerToken extracts the token from an Authorization header
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// requestMetrics counts requests by method and status.
func requestMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.RecordHTTP(c.Method(), strconv.Itoa(status))
		return err
	}
}
