package rest

import (
	"encoding/json"

	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

// maxPasswordBytes is the longest password bcrypt accepts.
const maxPasswordBytes = 72

func decode(c *fiber.Ctx, v any) error {
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return badRequest()
	}
	return nil
}

func present(fields ...*string) bool {
	for _, f := range fields {
		if f == nil {
			return false
		}
	}
	return true
}

func validPassword(p string) bool {
	return p != "" && len(p) <= maxPasswordBytes
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registrationRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.Email, req.Password, req.Name) || !validPassword(*req.Password) {
		return badRequest()
	}

	u, err := s.accounts.Register(c.UserContext(), *req.Email, *req.Name, *req.Password)
	if err != nil {
		return err
	}
	return c.JSON(tempTokenResponse{Email: u.Email, TempToken: u.TempToken})
}

func (s *Server) confirmRegistration(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	var req activationCodeRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.ActivationCode) {
		return badRequest()
	}

	if err := s.accounts.ConfirmRegistration(c.UserContext(), token, *req.ActivationCode); err != nil {
		return err
	}
	return c.JSON(emptyResponse{})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.Email, req.Password) {
		return badRequest()
	}

	u, err := s.accounts.Login(c.UserContext(), *req.Email, *req.Password)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (s *Server) requestReset(c *fiber.Ctx) error {
	var req emailRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.Email) {
		return badRequest()
	}

	if err := s.accounts.RequestPasswordReset(c.UserContext(), *req.Email); err != nil {
		return err
	}
	return c.JSON(emptyResponse{})
}

func (s *Server) confirmResetCode(c *fiber.Ctx) error {
	var req resetCodeRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.Email, req.ActivationCode) {
		return badRequest()
	}

	u, err := s.accounts.ConfirmResetCode(c.UserContext(), *req.Email, *req.ActivationCode)
	if err != nil {
		return err
	}
	return c.JSON(tempTokenResponse{Email: u.Email, TempToken: u.TempToken})
}

func (s *Server) setNewPassword(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	var req newPasswordRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if !present(req.Password) || !validPassword(*req.Password) {
		return badRequest()
	}

	if err := s.accounts.SetNewPassword(c.UserContext(), token, *req.Password); err != nil {
		return err
	}
	return c.JSON(emptyResponse{})
}

func (s *Server) getSelf(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	u, err := s.accounts.GetSelf(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (s *Server) updateSelf(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	var req userUpdateRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	var patch models.UserPatch
	if req.Name != nil {
		patch.Name = *req.Name
	}
	if req.Email != nil {
		patch.Email = *req.Email
	}
	if req.Password != nil {
		if len(*req.Password) > maxPasswordBytes {
			return badRequest()
		}
		patch.Password = *req.Password
	}

	u, err := s.accounts.UpdateSelf(c.UserContext(), token, patch)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(u))
}

func (s *Server) deleteSelf(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	if err := s.accounts.DeleteSelf(c.UserContext(), token); err != nil {
		return err
	}
	return c.JSON(emptyResponse{})
}

func (s *Server) listQuests(c *fiber.Ctx) error {
	quests, err := s.catalog.ListQuests(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toQuestsResponse(quests))
}

func (s *Server) getProgress(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	items, err := s.progress.Get(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(toProgressResponse(items))
}

func (s *Server) replaceProgress(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	var req progressRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	items := make([]models.Progress, 0, len(req.Progress))
	for _, p := range req.Progress {
		if p.QuestID == nil || p.LocationID == nil {
			return badRequest()
		}
		items = append(items, models.Progress{QuestID: *p.QuestID, LocationID: *p.LocationID})
	}

	stored, err := s.progress.Replace(c.UserContext(), token, items)
	if err != nil {
		return err
	}
	return c.JSON(toProgressResponse(stored))
}
