package rest

func (s *Server) registerRoutes() {
	auth := s.app.Group("/auth")
	if s.authRateLimit > 0 {
		auth.Use(s.authLimiter())
	}
	auth.Post("/registration", s.register)
	auth.Post("/registration/confirm", s.confirmRegistration)
	auth.Post("/login", s.login)
	auth.Post("/reset", s.requestReset)
	auth.Post("/reset/code", s.confirmResetCode)
	auth.Post("/reset/new", s.setNewPassword)

	users := s.app.Group("/users")
	users.Get("/me", s.getSelf)
	users.Patch("/me", s.updateSelf)
	users.Delete("/me", s.deleteSelf)

	s.app.Get("/quests", s.listQuests)

	s.app.Get("/progress", s.getProgress)
	s.app.Post("/progress", s.replaceProgress)
}
