package rest

import (
	"errors"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/gofiber/fiber/v2"
)

const (
	msgInternal         = "internal error"
	msgNotAuthenticated = "Not authenticated"
	msgBadRequest       = "Некорректные данные запроса."
	msgTooManyRequests  = "Слишком много запросов."
)

// businessErrors maps account and token errors to the text shown to users.
// All of them are answered with 400.
var businessErrors = []struct {
	err error
	msg string
}{
	{common.ErrDuplicateAccount, "Пользователь с таким email уже зарегистрирован."},
	{common.ErrInvalidActivationCode, "Неверный код активации."},
	{common.ErrInvalidCredentials, "Неверные данные для входа."},
	{common.ErrAccountNotActive, "Аккаунт не активирован."},
	{common.ErrAccountNotFound, "Аккаунт не найден."},
	{common.ErrInvalidToken, "Невалидный токен."},
}

var errNotAuthenticated = errors.New("missing bearer token")

// badRequest reports a body that cannot be decoded or lacks required fields.
func badRequest() error {
	return fiber.NewError(fiber.StatusUnprocessableEntity, msgBadRequest)
}

func businessMessage(err error) (string, bool) {
	for _, be := range businessErrors {
		if errors.Is(err, be.err) {
			return be.msg, true
		}
	}
	return "", false
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if msg, ok := businessMessage(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Message: msg})
	}

	if errors.Is(err, errNotAuthenticated) {
		c.Set(fiber.HeaderWWWAuthenticate, common.BearerScheme)
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Message: msgNotAuthenticated})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorResponse{Message: fe.Message})
	}

	logging.LogError(c.UserContext(), s.logger.With("request_id", requestID(c)), "request failed", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Message: msgInternal})
}
