package config

import (
	"errors"

	"NexaVoice/internal/middleware"
	"NexaVoice/pkg/response"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "NexaVoice",
			BodyLimit:         30 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: true,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler: func(ctx *fiber.Ctx, err error) error {
				requestID, _ := ctx.Locals(middleware.RequestIDKey).(string)

				var respErr *response.Error
				if errors.As(err, &respErr) {
					return ctx.Status(respErr.Status).JSON(respErr.Body(requestID))
				}

				code := response.StatusOf(err)
				var fe *fiber.Error
				if errors.As(err, &fe) {
					code = fe.Code
				}
				if code >= fiber.StatusInternalServerError {
					logger.WithFields(logrus.Fields{
						"request_id": requestID,
						"path":       ctx.Path(),
						"error":      err.Error(),
					}).Error("Unhandled error")
				}
				return ctx.Status(code).JSON(response.Body{Error: err.Error(), RequestID: requestID})
			},
		})

	return app
}
