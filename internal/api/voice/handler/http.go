package voiceHandler

import (
	voiceService "NexaVoice/internal/api/voice/service"
	"NexaVoice/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type VoiceHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	voiceService voiceService.IVoiceService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	vs voiceService.IVoiceService,
) *VoiceHandler {
	return &VoiceHandler{
		log:          log,
		validator:    validate,
		middleware:   middleware,
		voiceService: vs,
	}
}

func (h *VoiceHandler) Start(srv fiber.Router) {
	voice := srv.Group("/voice")

	// Feedback API used by the clients' feedback sinks
	voice.Post("/feedback", h.middleware.NewRateLimiter, h.SubmitFeedback)
	voice.Get("/feedback/session/:id", h.FeedbackBySession)
	voice.Get("/feedback/analytics", h.FeedbackAnalytics)
	voice.Post("/feedback/export", h.ExportFeedback)
	voice.Put("/feedback/:id/resolve", h.middleware.NewTokenMiddleware, h.ResolveFeedback)
	voice.Get("/suggestions", h.CommandSuggestions)

	assistant := voice.Group("/assistant")
	assistant.Use(h.middleware.NewTokenMiddleware)

	assistant.Get("/ws", h.upgrade, websocket.New(h.Stream))

	// Session
	assistant.Get("/state", h.GetState)
	assistant.Post("/activate", h.Activate)
	assistant.Post("/deactivate", h.Deactivate)
	assistant.Post("/result", h.PushResult)
	assistant.Post("/audio", h.RecognizeAudio)
	assistant.Post("/recognition-error", h.PushError)
	assistant.Post("/wake", h.middleware.NewRateLimiter, h.FeedWakeTranscript)
	assistant.Post("/timeout/cancel", h.CancelTimeout)

	// Settings and environment
	assistant.Put("/settings", h.UpdateSettings)
	assistant.Put("/permission", h.SetPermission)
	assistant.Put("/path", h.SetPath)
	assistant.Put("/supported", h.SetSupported)
	assistant.Post("/clear-error", h.ClearError)
	assistant.Post("/speak", h.Speak)
	assistant.Get("/commands", h.Commands)

	// Local feedback and suggestions
	assistant.Post("/feedback", h.CollectFeedback)
	assistant.Get("/feedback", h.LocalFeedback)
	assistant.Post("/feedback/sync", h.SyncFeedback)
	assistant.Post("/suggestions", h.SubmitSuggestion)
	assistant.Get("/suggestions", h.Suggestions)
	assistant.Post("/suggestions/:id/vote", h.VoteOnSuggestion)
	assistant.Put("/suggestions/:id/status", h.UpdateSuggestionStatus)

	assistant.Get("/analytics", h.Analytics)
	assistant.Get("/sessions", h.SessionHistory)
}
