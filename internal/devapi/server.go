// Package devapi serves the task service's HTTP surface from memory. It backs
// the tasksync-devapi binary and the end-to-end tests of the client.
package devapi

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tgienger/tasksync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a Server
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
	Logger     *slog.Logger
	// Handlers run before the routes, e.g. a request logger
	Middleware []fiber.Handler
}

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type user struct {
	ID           string
	Username     string
	PasswordHash string
}

// Server is an in-memory task service
type Server struct {
	app        *fiber.App
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	log        *slog.Logger
	now        func() time.Time
	requests   atomic.Int64

	mu           sync.Mutex
	users        map[string]user
	tasks        map[string][]models.Task
	accessEpoch  int
	refreshEpoch int
}

// New creates a server with its routes registered
func New(cfg Config) *Server {
	s := &Server{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		cost:       cfg.BcryptCost,
		log:        cfg.Logger,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		users:      make(map[string]user),
		tasks:      make(map[string][]models.Task),
	}
	if len(s.secret) == 0 {
		s.secret = []byte("tasksync-dev-secret")
	}
	if s.accessTTL <= 0 {
		s.accessTTL = time.Hour
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "tasksync-devapi",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(func(c *fiber.Ctx) error {
		s.requests.Add(1)
		return c.Next()
	})
	for _, mw := range cfg.Middleware {
		s.app.Use(mw)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")
	api.Post("/auth/sign-up", s.signUp)
	api.Post("/auth/login", s.login)
	api.Post("/auth/refresh", s.refresh)

	api.Get("/tasks", s.requireAccess, s.listTasks)
	api.Post("/tasks", s.requireAccess, s.createTask)
	api.Delete("/tasks", s.requireAccess, s.deleteAllTasks)
	api.Post("/tasks/create-many", s.requireAccess, s.createManyTasks)
	api.Get("/tasks/:id", s.requireAccess, s.getTask)
	api.Patch("/tasks/:id", s.requireAccess, s.updateTask)
	api.Delete("/tasks/:id", s.requireAccess, s.deleteTask)
}

// App exposes the fiber application
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// RequestCount returns how many requests the server has handled
func (s *Server) RequestCount() int64 { return s.requests.Load() }

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens keep working.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.accessEpoch++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshEpoch++
	s.mu.Unlock()
}

// Transport returns a RoundTripper that hands requests straight to the fiber
// app without opening a socket.
func (s *Server) Transport() http.RoundTripper {
	return transport{app: s.app}
}

type transport struct {
	app *fiber.App
}

func (t transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
	})
}

func reply(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: kind, Message: message})
}
