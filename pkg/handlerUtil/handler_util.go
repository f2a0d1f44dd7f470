package handlerUtil

import (
	"errors"

	"NexaVoice/internal/assistant"
	"NexaVoice/internal/feedback"
	"NexaVoice/pkg/log"
	"NexaVoice/pkg/response"
	"NexaVoice/pkg/speech"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

var assistantErrors = []mapping{
	{assistant.ErrSessionActive, fiber.StatusConflict, "SESSION_ACTIVE", "A voice session is already active"},
	{assistant.ErrWakeWordDisabled, fiber.StatusConflict, "WAKE_WORD_DISABLED", "Wake word detection is disabled"},
	{assistant.ErrInvalidPermission, fiber.StatusBadRequest, "INVALID_PERMISSION", "Invalid microphone permission"},
	{assistant.ErrUnsupportedLanguage, fiber.StatusBadRequest, "UNSUPPORTED_LANGUAGE", "Unsupported language"},
	{assistant.ErrNoFeedbackSink, fiber.StatusServiceUnavailable, "FEEDBACK_UNAVAILABLE", "Feedback is not available"},
	{speech.ErrNotListening, fiber.StatusConflict, "NOT_LISTENING", "No voice session is waiting for a result"},
	{speech.ErrBusy, fiber.StatusConflict, "RECOGNITION_BUSY", "A recognition session is already active"},
}

var feedbackErrors = []mapping{
	{feedback.ErrMissingCommand, fiber.StatusBadRequest, "MISSING_COMMAND", "Command is required"},
	{feedback.ErrMissingSuggestion, fiber.StatusBadRequest, "MISSING_SUGGESTION", "Suggested command is required"},
	{feedback.ErrInvalidPriority, fiber.StatusBadRequest, "INVALID_PRIORITY", "Priority must be between 1 and 5"},
	{feedback.ErrInvalidVote, fiber.StatusBadRequest, "INVALID_VOTE", "Vote must be +1 or -1"},
	{feedback.ErrInvalidStatus, fiber.StatusBadRequest, "INVALID_STATUS", "Invalid suggestion status"},
	{feedback.ErrInvalidRating, fiber.StatusBadRequest, "INVALID_RATING", "Rating must be between 1 and 5"},
	{feedback.ErrFeedbackNotFound, fiber.StatusNotFound, "FEEDBACK_NOT_FOUND", "Feedback not found"},
	{feedback.ErrSuggestionNotFound, fiber.StatusNotFound, "SUGGESTION_NOT_FOUND", "Suggestion not found"},
	{feedback.ErrRemoteDisabled, fiber.StatusServiceUnavailable, "REMOTE_DISABLED", "Remote feedback endpoint not configured"},
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"status":     respErr.Status,
			"code":       respErr.Reason,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Status).JSON(respErr.Body(requestID))
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return h.HandleValidationError(c, requestID, err, path)
	}

	// Assistant domain errors
	for _, m := range assistantErrors {
		if errors.Is(err, m.target) {
			return h.respond(c, requestID, err, path, operation, m)
		}
	}

	// Feedback domain errors
	for _, m := range feedbackErrors {
		if errors.Is(err, m.target) {
			return h.respond(c, requestID, err, path, operation, m)
		}
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(response.Body{
		Error:     "An unexpected error occurred",
		RequestID: requestID,
	})
}

func (h *ErrorHandler) respond(c *fiber.Ctx, requestID string, err error, path string, operation string, m mapping) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Warn(m.message)

	return c.Status(m.status).JSON(response.Body{
		Error:     m.message,
		Code:      m.code,
		RequestID: requestID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(response.Body{
		Error:     "Validation failed: " + err.Error(),
		Code:      "VALIDATION_ERROR",
		RequestID: requestID,
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(response.Body{
		Error:     message,
		Code:      "UNAUTHORIZED",
		RequestID: requestID,
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
