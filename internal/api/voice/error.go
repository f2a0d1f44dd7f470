package voice

import (
	"net/http"

	"NexaVoice/pkg/response"
)

var (
	ErrMissingFields      = response.NewError(http.StatusBadRequest, "MISSING_FIELDS", "Missing required fields: command, rating, sessionId")
	ErrInvalidRating      = response.NewError(http.StatusBadRequest, "INVALID_RATING", "Rating must be between 1 and 5")
	ErrInvalidDateRange   = response.NewError(http.StatusBadRequest, "INVALID_DATE_RANGE", "invalid export date range")
	ErrFeedbackNotFound   = response.NewError(http.StatusNotFound, "FEEDBACK_NOT_FOUND", "Feedback not found")
	ErrSessionNotFound    = response.NewError(http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
	ErrInvalidAudioFile   = response.NewError(http.StatusBadRequest, "INVALID_AUDIO", "invalid audio file")
	ErrAudioFileTooLarge  = response.NewError(http.StatusBadRequest, "AUDIO_TOO_LARGE", "audio file too large")
	ErrTranscriberMissing = response.NewError(http.StatusNotImplemented, "RECOGNITION_NOT_CONFIGURED", "server-side recognition is not configured")
	ErrRecognitionFailed  = response.NewError(http.StatusBadGateway, "RECOGNITION_FAILED", "failed to transcribe audio")
	ErrExportFailed       = response.NewError(http.StatusInternalServerError, "EXPORT_FAILED", "failed to export feedback")
)
