package middleware

import (
	"strings"

	"NexaVoice/internal/entity"
	jwtPkg "NexaVoice/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	tokenQueryParam   = "token"
)

type tokenMiddleware struct {
}

func newTokenMiddleware() *tokenMiddleware {
	return &tokenMiddleware{}
}

func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	authHeader := ctx.Get("Authorization")

	m.log.WithFields(logrus.Fields{
		"path":      ctx.Path(),
		"method":    ctx.Method(),
		"client_ip": clientIP,
	}).Debug("Incoming request")

	var userToken *jwt.Token
	var err error

	switch {
	case authHeader == "" && websocket.IsWebSocketUpgrade(ctx) && ctx.Query(tokenQueryParam) != "":
		userToken, err = jwtPkg.VerifyToken(ctx.Query(tokenQueryParam), AccessTokenSecret)
	case authHeader == "":
		m.log.WithFields(logrus.Fields{
			"error": "Authorization header is missing",
		}).Warn("Authorization header check")
		return unauthorized(ctx)
	case !strings.HasPrefix(authHeader, "Bearer "):
		m.log.WithFields(logrus.Fields{
			"error": "Authorization header format is invalid",
		}).Warn("Authorization header check")
		return unauthorized(ctx)
	default:
		userToken, err = jwtPkg.VerifyTokenHeader(ctx, AccessTokenSecret)
	}

	if err != nil {
		m.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(logrus.Fields{
			"error": "Invalid token claims",
		}).Warn("Token claims check")
		return unauthorized(ctx)
	}

	id, idOK := claims["id"].(string)
	email, emailOK := claims["email"].(string)
	username, usernameOK := claims["username"].(string)
	if !idOK || !emailOK || !usernameOK || id == "" {
		m.log.WithFields(logrus.Fields{
			"error": "Token claims are missing required fields",
		}).Warn("Token claims check")
		return unauthorized(ctx)
	}

	ctx.Locals("user", entity.UserLoginData{
		ID:       id,
		Email:    email,
		Username: username,
	})

	m.log.WithField("user_id", id).Debug("Authentication successful")
	return ctx.Next()
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}
