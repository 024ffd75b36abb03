// Package api serves the questplan HTTP API.
package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/assistant"
	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/export"
	"github.com/p-blackswan/questplan/internal/metrics"
	"github.com/p-blackswan/questplan/internal/notify"
	"github.com/p-blackswan/questplan/internal/requestid"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

// Store is the data layer behind the API.
type Store interface {
	CreateProject(ctx context.Context, userID string, in store.CreateProjectInput) (*roadmap.Project, error)
	ListProjects(ctx context.Context, userID string) ([]store.ProjectEntry, error)
	GetProject(ctx context.Context, userID string, projectID int64) (*store.ProjectEntry, error)
	UpdateProject(ctx context.Context, userID string, projectID int64, in store.UpdateProjectInput) (*roadmap.Project, error)
	DeleteProject(ctx context.Context, userID string, projectID int64) error
	ImportPlan(ctx context.Context, userID string, plan roadmap.Plan) (*roadmap.Project, error)

	ListMembers(ctx context.Context, userID string, projectID int64) ([]roadmap.Member, error)
	SetMember(ctx context.Context, userID string, projectID int64, memberID string, role roadmap.Role) (*roadmap.Member, error)
	RemoveMember(ctx context.Context, userID string, projectID int64, memberID string) error

	CreateTask(ctx context.Context, userID string, in store.CreateTaskInput) (*roadmap.Task, error)
	GetTask(ctx context.Context, userID string, projectID, taskID int64) (*roadmap.Task, error)
	ListTasks(ctx context.Context, userID string, projectID int64, filter store.TaskFilter) ([]roadmap.Task, error)
	UpdateTask(ctx context.Context, userID string, in store.UpdateTaskInput) (*store.TaskUpdate, error)
	DeleteTask(ctx context.Context, userID string, projectID, taskID int64) error

	CreatePhase(ctx context.Context, userID string, in store.CreatePhaseInput) (*roadmap.Phase, error)
	ListPhases(ctx context.Context, userID string, projectID int64) ([]roadmap.Phase, error)
	UpdatePhase(ctx context.Context, userID string, in store.UpdatePhaseInput) (*roadmap.Phase, error)
	DeletePhase(ctx context.Context, userID string, projectID, phaseID int64) (int64, error)

	AddDependency(ctx context.Context, userID string, projectID, taskID, predecessorID int64) (*roadmap.Dependency, error)
	RemoveDependency(ctx context.Context, userID string, projectID, dependencyID int64) error
	ListDependencies(ctx context.Context, userID string, projectID int64) ([]roadmap.Dependency, error)

	CreateMemoryItem(ctx context.Context, userID string, in store.CreateMemoryInput) (*roadmap.MemoryItem, error)
	ListMemoryItems(ctx context.Context, userID string, projectID int64, typ roadmap.MemoryType) ([]roadmap.MemoryItem, error)
	UpdateMemoryItem(ctx context.Context, userID string, in store.UpdateMemoryInput) (*roadmap.MemoryItem, error)
	DeleteMemoryItem(ctx context.Context, userID string, projectID, itemID int64) error

	Snapshot(ctx context.Context, userID string, projectID int64) (*roadmap.Snapshot, error)
}

// Exporter publishes a roadmap to GitHub.
type Exporter interface {
	Export(ctx context.Context, snap *roadmap.Snapshot, target export.Target) (*export.Summary, error)
}

// Config holds HTTP server settings.
type Config struct {
	ListenAddr      string
	CORSOrigins     []string
	TLSCert         string
	TLSKey          string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Deps are the collaborators the handlers use. Assistant and Exporter may be
// nil when the language model or GitHub is not configured.
type Deps struct {
	Store     Store
	Auth      *auth.Authenticator
	Assistant *assistant.Assistant
	Catalog   *assistant.Catalog
	Exporter  Exporter
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Server is the public API Fiber application.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger zerolog.Logger
}

// NewServer creates and configures the API server.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger.With().Str("component", "api").Logger()
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Catalog == nil {
		deps.Catalog = assistant.MustDefaultCatalog()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	app := fiber.New(fiber.Config{
		AppName:               "questplan",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           30 * time.Second,
		BodyLimit:             1 << 20,
	})

	s := &Server{app: app, cfg: cfg, logger: logger}
	s.setupMiddleware(deps)
	s.setupRoutes(&handlers{
		store:     deps.Store,
		assistant: deps.Assistant,
		catalog:   deps.Catalog,
		exporter:  deps.Exporter,
		notifier:  deps.Notifier,
		logger:    logger,
		now:       deps.Now,
	}, deps.Auth)
	return s
}

func (s *Server) setupMiddleware(deps Deps) {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	s.app.Use(func(c *fiber.Ctx) error {
		id := requestid.Accept(c.Get(requestid.Header))
		c.Set(requestid.Header, id)
		c.Locals("request_id", id)
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), id))
		return c.Next()
	})

	if len(s.cfg.CORSOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(s.cfg.CORSOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}))
	}

	// Metrics and access log. The error handler has already written the
	// response when Next returns an error, so the status is final here.
	m := deps.Metrics
	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := s.app.ErrorHandler(c, err); herr != nil {
				return herr
			}
		}
		status := c.Response().StatusCode()
		route := c.Route().Path
		m.RecordHTTP(route, c.Method(), statusLabel(status), time.Since(start))
		s.logger.Debug().
			Str("method", c.Method()).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", requestID(c)).
			Msg("api request")
		return nil
	})
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

func (s *Server) setupRoutes(h *handlers, authn *auth.Authenticator) {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1", authn.Fiber())
	if s.cfg.RateLimitMax > 0 {
		v1.Use(limiter.New(limiter.Config{
			Max:        s.cfg.RateLimitMax,
			Expiration: s.cfg.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				if p, ok := auth.FromContext(c.UserContext()); ok {
					return "user:" + p.UserID
				}
				return "ip:" + c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return problemResponse(c, fiber.StatusTooManyRequests, "rate_limited", "Too many requests, slow down")
			},
		}))
	}

	// Conversation
	v1.Post("/chat", h.Chat)
	v1.Post("/plans/generate", h.GeneratePlan)
	v1.Get("/hints", h.Hints)
	v1.Get("/languages", h.Languages)

	// Projects and membership
	v1.Get("/projects", h.ListProjects)
	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects/:id", h.GetProject)
	v1.Patch("/projects/:id", h.UpdateProject)
	v1.Delete("/projects/:id", h.DeleteProject)
	v1.Get("/projects/:id/brief", h.GetBrief)
	v1.Put("/projects/:id/brief", h.UpdateBrief)
	v1.Put("/projects/:id/prompt", h.UpdatePrompt)
	v1.Get("/projects/:id/members", h.ListMembers)
	v1.Put("/projects/:id/members/:userId", h.SetMember)
	v1.Delete("/projects/:id/members/:userId", h.RemoveMember)

	// Tasks, phases, dependencies
	v1.Get("/projects/:id/tasks", h.ListTasks)
	v1.Post("/projects/:id/tasks", h.CreateTask)
	v1.Get("/projects/:id/tasks/:taskId", h.GetTask)
	v1.Patch("/projects/:id/tasks/:taskId", h.UpdateTask)
	v1.Delete("/projects/:id/tasks/:taskId", h.DeleteTask)
	v1.Get("/projects/:id/phases", h.ListPhases)
	v1.Post("/projects/:id/phases", h.CreatePhase)
	v1.Patch("/projects/:id/phases/:phaseId", h.UpdatePhase)
	v1.Delete("/projects/:id/phases/:phaseId", h.DeletePhase)
	v1.Get("/projects/:id/dependencies", h.ListDependencies)
	v1.Post("/projects/:id/dependencies", h.AddDependency)
	v1.Delete("/projects/:id/dependencies/:depId", h.RemoveDependency)

	// Memory panel
	v1.Get("/projects/:id/memory", h.ListMemory)
	v1.Post("/projects/:id/memory", h.CreateMemory)
	v1.Patch("/projects/:id/memory/:itemId", h.UpdateMemory)
	v1.Delete("/projects/:id/memory/:itemId", h.DeleteMemory)

	// Derived views and export
	v1.Get("/projects/:id/roadmap", h.Roadmap)
	v1.Get("/projects/:id/stats", h.Stats)
	v1.Get("/projects/:id/blocked", h.BlockedTasks)
	v1.Post("/projects/:id/export/github", h.ExportGitHub)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Bool("tls", s.cfg.TLSCert != "").Msg("API server starting")
	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		return s.app.ListenTLS(addr, s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("API server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}
