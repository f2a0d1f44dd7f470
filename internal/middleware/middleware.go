package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRequestRate  = 50
	defaultRequestBurst = 100
	defaultLimiterIdle  = 10 * time.Minute
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewTokenMiddleware(ctx *fiber.Ctx) error
	NewLoggingMiddleware(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

type middleware struct {
	token               *tokenMiddleware
	rateLimitter        *rateLimiter
	loggingMiddleware   *loggingMiddleware
	requestIDMiddleware fiber.Handler
	log                 *logrus.Logger
}

type config struct {
	requestRate  rate.Limit
	requestBurst int
	limiterIdle  time.Duration
}

type Option func(*config)

// WithRateLimit sets the sustained requests per second and burst allowed
// per caller on rate limited routes.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) {
		if perSecond > 0 {
			c.requestRate = rate.Limit(perSecond)
		}
		if burst > 0 {
			c.requestBurst = burst
		}
	}
}

// WithLimiterIdle sets how long an unused caller bucket is kept.
func WithLimiterIdle(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.limiterIdle = d
		}
	}
}

func New(logger *logrus.Logger, opts ...Option) Middleware {
	cfg := config{
		requestRate:  defaultRequestRate,
		requestBurst: defaultRequestBurst,
		limiterIdle:  defaultLimiterIdle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &middleware{
		token:               newTokenMiddleware(),
		rateLimitter:        newRateLimiter(cfg.requestRate, cfg.requestBurst, cfg.limiterIdle),
		loggingMiddleware:   newLoggingMiddleware(logger),
		requestIDMiddleware: NewRequestIDMiddleware(),
		log:                 logger,
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}
