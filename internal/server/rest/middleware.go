package rest

import (
	"time"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const requestIDKey = "request_id"

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// bearer returns the token of the Authorization header or errNotAuthenticated.
func bearer(c *fiber.Ctx) (string, error) {
	token := common.BearerToken(c.Get(common.AuthorizationHeaderName))
	if token == "" {
		return "", errNotAuthenticated
	}
	return token, nil
}

// accessLog writes one line per request and records the request metrics.
// Errors are rendered here so that the logged status is the one sent.
func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()

	if chainErr := c.Next(); chainErr != nil {
		if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	elapsed := time.Since(start)
	status := c.Response().StatusCode()
	route := c.Route().Path

	s.metrics.ObserveRequest(c.Method(), route, status, elapsed)

	args := []any{
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"latency", elapsed,
		"ip", c.IP(),
		"request_id", requestID(c),
	}
	switch {
	case status >= fiber.StatusInternalServerError:
		s.logger.Error(c.UserContext(), "HTTP request processed", args...)
	case status >= fiber.StatusBadRequest:
		s.logger.Warn(c.UserContext(), "HTTP request processed", args...)
	default:
		s.logger.Info(c.UserContext(), "HTTP request processed", args...)
	}

	return nil
}

// authLimiter limits /auth requests per client IP and minute.
func (s *Server) authLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        s.authRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{Message: msgTooManyRequests})
		},
	})
}
