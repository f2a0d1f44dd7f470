package voice

import (
	"NexaVoice/internal/analytics"
	"NexaVoice/internal/assistant"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
)

type SubmitFeedbackRequest struct {
	Command        string                 `json:"command"`
	Action         string                 `json:"action"`
	Rating         int                    `json:"rating"`
	Comment        string                 `json:"comment"`
	ExpectedAction string                 `json:"expectedAction"`
	FeedbackType   entity.FeedbackType    `json:"feedbackType" validate:"omitempty,oneof=positive negative suggestion success error"`
	Confidence     float64                `json:"confidence" validate:"gte=0,lte=1"`
	SessionID      string                 `json:"sessionId"`
	Context        map[string]interface{} `json:"context"`
	Timestamp      int64                  `json:"timestamp"`
	UserAgent      string                 `json:"userAgent"`
	AutoGenerated  bool                   `json:"autoGenerated"`
}

type SubmitFeedbackResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ResolveFeedbackRequest struct {
	Resolution string `json:"resolution" validate:"required,max=1000"`
}

type ExportFeedbackRequest struct {
	Format  string               `json:"format" validate:"required,oneof=csv json"`
	Filters entity.ExportFilters `json:"filters"`
}

type SuggestionsResponse struct {
	Suggestions []entity.CommandSuggestion `json:"suggestions"`
}

type ActivateRequest struct {
	Trigger     assistant.Trigger `json:"trigger" validate:"omitempty,oneof=manual wake-word"`
	CurrentPath string            `json:"currentPath" validate:"omitempty,startswith=/"`
}

// ActivateResponse reports unmet preconditions as Activated=false with the
// message that was toasted to the user.
type ActivateResponse struct {
	Activated bool               `json:"activated"`
	Session   *assistant.Session `json:"session,omitempty"`
	Message   string             `json:"message,omitempty"`
}

type DeactivateRequest struct {
	Reason string `json:"reason"`
}

type DeactivateResponse struct {
	Deactivated bool `json:"deactivated"`
}

type RecognitionResultRequest struct {
	Transcript string  `json:"transcript" validate:"required,max=500"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type RecognitionErrorRequest struct {
	Code    string `json:"code" validate:"required"`
	Message string `json:"message"`
}

type WakeRequest struct {
	Transcript string  `json:"transcript" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type WakeResponse struct {
	Detected bool `json:"detected"`
}

type CancelTimeoutRequest struct {
	Reason string `json:"reason"`
}

type CancelTimeoutResponse struct {
	Cancelled bool `json:"cancelled"`
}

type PermissionRequest struct {
	Permission assistant.Permission `json:"permission" validate:"required,oneof=prompt granted denied"`
}

type PathRequest struct {
	Path string `json:"path" validate:"required,startswith=/"`
}

type SupportedRequest struct {
	Supported bool `json:"supported"`
}

type FeedbackRequest struct {
	CommandID      string                 `json:"commandId"`
	Command        string                 `json:"command" validate:"required"`
	Action         string                 `json:"action"`
	Rating         int                    `json:"rating" validate:"omitempty,min=1,max=5"`
	Confidence     float64                `json:"confidence" validate:"gte=0,lte=1"`
	FeedbackType   entity.FeedbackType    `json:"feedbackType" validate:"omitempty,oneof=positive negative suggestion success error"`
	Comment        string                 `json:"comment" validate:"max=2000"`
	ExpectedAction string                 `json:"expectedAction"`
	Context        map[string]interface{} `json:"context"`
}

type VoteRequest struct {
	Vote int `json:"vote" validate:"required,oneof=1 -1"`
}

type SuggestionStatusRequest struct {
	Status entity.SuggestionStatus `json:"status" validate:"required,oneof=pending reviewed implemented rejected"`
	Notes  string                  `json:"notes"`
}

type SpeakRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// RecognitionResponse is the outcome of a server-side recognized clip.
type RecognitionResponse struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type AnalyticsResponse struct {
	Usage    analytics.Summary  `json:"usage"`
	Feedback feedback.Analytics `json:"feedback"`
}

type SessionHistoryResponse struct {
	Sessions []entity.VoiceSession `json:"sessions"`
	Total    int                   `json:"total"`
}
