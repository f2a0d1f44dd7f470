package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrTooManyRequests = &response.Error{
	Status: http.StatusTooManyRequests,
	Reason: "RATE_LIMITED",
	Err:    errors.New("too many requests"),
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	bucket    map[string]*bucket
	rate      rate.Limit
	burstSize int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
	mutex     *sync.Mutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int, idle time.Duration) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*bucket),
		rate:      reqRate,
		burstSize: burstSize,
		idle:      idle,
		now:       time.Now,
		mutex:     &sync.Mutex{},
	}
}

// GetLimiterFrom returns the caller's bucket. Buckets unused for longer than
// the idle window are dropped at most once per window.
func (r *rateLimiter) GetLimiterFrom(key string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if now.Sub(r.lastPrune) >= r.idle {
		for k, b := range r.bucket {
			if now.Sub(b.lastSeen) >= r.idle {
				delete(r.bucket, k)
			}
		}
		r.lastPrune = now
	}

	b, exist := r.bucket[key]
	if !exist {
		b = &bucket{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.bucket[key] = b
	}
	b.lastSeen = now

	return b.limiter
}

func (r *rateLimiter) size() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.bucket)
}

// retryAfter is the whole number of seconds until one more token is available.
func (r *rateLimiter) retryAfter() int {
	if r.rate <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(r.rate)))
}

// callerKey throttles authenticated users by id and everyone else by IP.
func callerKey(ctx *fiber.Ctx) string {
	if user, ok := ctx.Locals("user").(entity.UserLoginData); ok && user.ID != "" {
		return "user:" + user.ID
	}
	return "ip:" + ctx.IP()
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	key := callerKey(ctx)
	limiter := m.rateLimitter.GetLimiterFrom(key)

	if !limiter.Allow() {
		m.log.WithFields(logrus.Fields{
			"request_id": m.GetRequestID(ctx),
			"caller":     key,
			"path":       ctx.Path(),
		}).Warn("Too many requests")

		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(m.rateLimitter.retryAfter()))
		return ctx.Status(fiber.StatusTooManyRequests).JSON(ErrTooManyRequests.Body(m.GetRequestID(ctx)))
	}

	return ctx.Next()
}
