package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskman/internal/taskapi/auth/oidc"
	"taskman/internal/taskapi/config"
	"taskman/internal/taskapi/domain"
	"taskman/internal/taskapi/repo/postgres"
	"taskman/internal/taskapi/usecase"
)

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	authenticator domain.Authenticator
	tasks         *usecase.TaskService
	users         *usecase.UserService
}

type ServerDeps struct {
	Authenticator domain.Authenticator
	Tasks         *usecase.TaskService
	Users         *usecase.UserService
	Logger        *slog.Logger
}

// NewServer wires the resource API: postgres store, token verification
// against the issuer, and the task and user services.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := postgres.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	if cfg.SeedDemoData {
		if err := postgres.Seed(context.Background(), store.DB); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo data seeded")
	}

	authenticator, err := oidc.NewAuthenticator(cfg)
	if err != nil {
		return nil, fmt.Errorf("init authenticator: %w", err)
	}

	return NewServerWithDeps(cfg, ServerDeps{
		Authenticator: authenticator,
		Tasks:         usecase.NewTaskService(postgres.NewTaskRepository(store.DB), logger),
		Users:         usecase.NewUserService(postgres.NewUserRepository(store.DB), logger),
		Logger:        logger,
	}), nil
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		logger:        deps.Logger,
		authenticator: deps.Authenticator,
		tasks:         deps.Tasks,
		users:         deps.Users,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":5002"
	}
	s.logger.Info("taskapi listening", "addr", addr)
	return s.r.Run(addr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.r.Group("/v1")
	v1.POST("/users/register", s.handleRegister)

	authed := v1.Group("", s.requireAuth())
	authed.GET("/users/me", s.handleCurrentUser)
	authed.GET("/users/:id", s.handleGetUser)
	authed.POST("/users/validate", s.requireMachineClient(), s.handleValidateCredentials)

	tasks := authed.Group("/tasks")
	tasks.POST("", s.handleCreateTask)
	tasks.GET("", s.handleListTasks)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PUT("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)
	tasks.POST("/:id/toggle", s.handleToggleTask)
}
