// Package rest exposes the account, progress and catalog operations over
// HTTP with JSON bodies.
package rest

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/dmitrijs2005/questkeeper/internal/server/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const shutdownTimeout = 10 * time.Second

type AccountService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	ConfirmRegistration(ctx context.Context, tempToken, code string) error
	Login(ctx context.Context, email, password string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmResetCode(ctx context.Context, email, code string) (*models.User, error)
	SetNewPassword(ctx context.Context, tempToken, password string) error
	GetSelf(ctx context.Context, token string) (*models.User, error)
	UpdateSelf(ctx context.Context, token string, patch models.UserPatch) (*models.User, error)
	DeleteSelf(ctx context.Context, token string) error
}

type ProgressService interface {
	Get(ctx context.Context, token string) ([]models.Progress, error)
	Replace(ctx context.Context, token string, items []models.Progress) ([]models.Progress, error)
}

type CatalogService interface {
	ListQuests(ctx context.Context) ([]models.Quest, error)
}

type Server struct {
	address       string
	logger        logging.Logger
	accounts      AccountService
	progress      ProgressService
	catalog       CatalogService
	metrics       *observability.Metrics
	authRateLimit int
	app           *fiber.App
}

// NewServer builds the HTTP application. metrics may be nil.
// authRateLimit is the number of /auth requests allowed per client IP and
// minute; 0 disables the limit.
func NewServer(a string, l logging.Logger, accounts AccountService, progress ProgressService,
	catalog CatalogService, m *observability.Metrics, authRateLimit int) *Server {
	s := &Server{
		address:       a,
		logger:        l,
		accounts:      accounts,
		progress:      progress,
		catalog:       catalog,
		metrics:       m,
		authRateLimit: authRateLimit,
	}

	app := fiber.New(fiber.Config{
		AppName:               "questkeeper",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Header:     common.RequestIDHeaderName,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	// accessLog wraps recover so recovered panics are still logged and counted.
	app.Use(s.accessLog)
	app.Use(recover.New())
	app.Use(cors.New())

	s.app = app
	s.registerRoutes()

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled and then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()
	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := s.app.ShutdownWithContext(shutdownCtx)

	// Serve may not have picked up ln yet when shutdown ran
	_ = ln.Close()
	<-errCh

	if shutdownErr != nil {
		return shutdownErr
	}
	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}
