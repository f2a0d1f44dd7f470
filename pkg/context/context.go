package context

import (
	"context"

	"NexaVoice/internal/entity"

	"github.com/gofiber/fiber/v2"
)

type key int

const (
	requestIDKey key = iota
	userIDKey
)

// RequestIDHeader is both the header and the fiber local holding the request id.
const RequestIDHeader = "X-Request-ID"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the authenticated user, or "" for anonymous calls.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// FromFiberCtx detaches the request id and caller from the fiber context so
// they outlive the handler.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := context.Background()

	requestID, ok := c.Locals(RequestIDHeader).(string)
	if !ok || requestID == "" {
		requestID = c.Get(RequestIDHeader)
	}
	if requestID != "" {
		ctx = WithRequestID(ctx, requestID)
	}

	if user, ok := c.Locals("user").(entity.UserLoginData); ok && user.ID != "" {
		ctx = WithUserID(ctx, user.ID)
	}

	return ctx
}
