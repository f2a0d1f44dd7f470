package config

import (
	"context"
	"fmt"
	"os"

	"NexaVoice/database/postgres"
	voiceHandler "NexaVoice/internal/api/voice/handler"
	voiceRepository "NexaVoice/internal/api/voice/repository"
	voiceService "NexaVoice/internal/api/voice/service"
	"NexaVoice/internal/middleware"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/nlp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	db           *sqlx.DB
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	localStore   kvstore.Store
	closeStore   func() error
	voiceConfig  voiceService.VoiceConfig
	voiceOptions []voiceService.Option
	voiceService voiceService.IVoiceService
	handlers     []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.localStore == nil {
		server.localStore = kvstore.NewMemory()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithDB uses an already opened database, e.g. SQLite for local runs.
func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

func WithLocalStore() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before local store")
		}
		store, closeFn, err := NewLocalStore(s.log)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		s.localStore = store
		s.closeStore = closeFn
		return nil
	}
}

func WithVoiceConfig(cfg voiceService.VoiceConfig, opts ...voiceService.Option) ServerOption {
	return func(s *Server) error {
		s.voiceConfig = cfg
		s.voiceOptions = opts
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log,
			middleware.WithRateLimit(float64(envInt("RATE_LIMIT_PER_SECOND", 50)), envInt("RATE_LIMIT_BURST", 100)),
		)
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	// Voice Domain
	voiceRepo := voiceRepository.New(s.db, s.log)
	if err := voiceRepo.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate voice tables: %w", err)
	}
	s.voiceService = voiceService.NewVoiceService(s.log, voiceRepo, s.localStore, nlp.NewProcessor(), s.voiceConfig, s.voiceOptions...)
	voiceHandlers := voiceHandler.New(s.log, s.validator, s.middleware, s.voiceService)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, voiceHandlers)
	return nil
}

// Sweep runs the idle assistant sweeper until ctx is done.
func (s *Server) Sweep(ctx context.Context) error {
	return s.voiceService.Run(ctx)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)
	router := s.engine.Group("/api")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, then flushes the assistants.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.voiceService != nil {
		s.voiceService.Close(ctx)
	}
	if s.closeStore != nil {
		if closeErr := s.closeStore(); closeErr != nil {
			s.log.WithField("error", closeErr.Error()).Warn("Failed to close local store")
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.log.WithField("error", closeErr.Error()).Warn("Failed to close database")
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
