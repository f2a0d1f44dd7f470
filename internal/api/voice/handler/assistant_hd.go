package voiceHandler

import (
	"errors"
	"strconv"
	"time"

	"NexaVoice/internal/api/voice"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
	contextPkg "NexaVoice/pkg/context"
	"NexaVoice/pkg/handlerUtil"
	jwtPkg "NexaVoice/pkg/jwt"
	"NexaVoice/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

type request struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	errHandler *handlerUtil.ErrorHandler
	user       entity.UserLoginData
}

// begin opens an authenticated request scope. When ok is false the
// unauthorized response has already been written.
func (h *VoiceHandler) begin(ctx *fiber.Ctx, operation string, timeout time.Duration) (r request, ok bool, err error) {
	r.id = h.middleware.GetRequestID(ctx)
	r.ctx, r.cancel = context.WithTimeout(contextPkg.FromFiberCtx(ctx), timeout)
	r.errHandler = handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": r.id,
		"path":       ctx.Path(),
		"operation":  operation,
	}).Debug("Processing assistant request")

	r.user, err = jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		r.cancel()
		return r, false, r.errHandler.HandleUnauthorized(ctx, r.id, "Unauthorized")
	}
	return r, true, nil
}

func (r request) reply(ctx *fiber.Ctx, status int, data interface{}) error {
	select {
	case <-r.ctx.Done():
		return r.errHandler.HandleRequestTimeout(ctx)
	default:
		return r.errHandler.HandleSuccess(ctx, status, data)
	}
}

// parse binds and validates the body. When ok is false the validation
// response has already been written.
func (h *VoiceHandler) parse(ctx *fiber.Ctx, r request, out interface{}) (ok bool, err error) {
	if err := ctx.BodyParser(out); err != nil {
		return false, r.errHandler.HandleValidationError(ctx, r.id, err, ctx.Path())
	}
	if err := h.validator.Struct(out); err != nil {
		return false, r.errHandler.HandleValidationError(ctx, r.id, err, ctx.Path())
	}
	return true, nil
}

func (h *VoiceHandler) GetState(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "get_state", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	return r.reply(ctx, fiber.StatusOK, h.voiceService.State(r.ctx, r.user.ID))
}

func (h *VoiceHandler) Activate(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "activate", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.ActivateRequest
	if len(ctx.Body()) > 0 {
		if ok, err := h.parse(ctx, r, &req); !ok {
			return err
		}
	}

	res, err := h.voiceService.Activate(r.ctx, r.user.ID, req)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "activate")
	}

	return r.reply(ctx, fiber.StatusOK, res)
}

func (h *VoiceHandler) Deactivate(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "deactivate", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.DeactivateRequest
	if len(ctx.Body()) > 0 {
		if ok, err := h.parse(ctx, r, &req); !ok {
			return err
		}
	}

	return r.reply(ctx, fiber.StatusOK, h.voiceService.Deactivate(r.ctx, r.user.ID, req.Reason))
}

func (h *VoiceHandler) PushResult(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "push_result", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.RecognitionResultRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	if err := h.voiceService.PushResult(r.ctx, r.user.ID, req); err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "push_result")
	}

	return r.reply(ctx, fiber.StatusAccepted, fiber.Map{"accepted": true})
}

func (h *VoiceHandler) PushError(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "push_error", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.RecognitionErrorRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	if err := h.voiceService.PushError(r.ctx, r.user.ID, req); err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "push_error")
	}

	return r.reply(ctx, fiber.StatusAccepted, fiber.Map{"accepted": true})
}

func (h *VoiceHandler) RecognizeAudio(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "recognize_audio", 30*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	audioFile, err := ctx.FormFile("audio")
	if err != nil {
		return r.errHandler.HandleValidationError(ctx, r.id,
			errors.New("audio file is required"), ctx.Path())
	}

	res, err := h.voiceService.RecognizeAudio(r.ctx, r.user.ID, audioFile)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "recognize_audio")
	}

	return r.reply(ctx, fiber.StatusOK, res)
}

func (h *VoiceHandler) FeedWakeTranscript(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "wake_transcript", 5*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.WakeRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	return r.reply(ctx, fiber.StatusOK, h.voiceService.FeedWakeTranscript(r.ctx, r.user.ID, req))
}

func (h *VoiceHandler) CancelTimeout(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "cancel_timeout", 5*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.CancelTimeoutRequest
	if len(ctx.Body()) > 0 {
		if ok, err := h.parse(ctx, r, &req); !ok {
			return err
		}
	}

	return r.reply(ctx, fiber.StatusOK, h.voiceService.CancelTimeout(r.ctx, r.user.ID, req.Reason))
}

// UpdateSettings merges the body over the current settings.
func (h *VoiceHandler) UpdateSettings(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "update_settings", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	settings := h.voiceService.State(r.ctx, r.user.ID).Settings
	if ok, err := h.parse(ctx, r, &settings); !ok {
		return err
	}

	state, err := h.voiceService.UpdateSettings(r.ctx, r.user.ID, settings)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "update_settings")
	}

	return r.reply(ctx, fiber.StatusOK, state)
}

func (h *VoiceHandler) SetPermission(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "set_permission", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.PermissionRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	state, err := h.voiceService.SetPermission(r.ctx, r.user.ID, req.Permission)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "set_permission")
	}

	return r.reply(ctx, fiber.StatusOK, state)
}

func (h *VoiceHandler) SetPath(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "set_path", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.PathRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	return r.reply(ctx, fiber.StatusOK, h.voiceService.SetPath(r.ctx, r.user.ID, req.Path))
}

func (h *VoiceHandler) SetSupported(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "set_supported", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.SupportedRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	return r.reply(ctx, fiber.StatusOK, h.voiceService.SetSupported(r.ctx, r.user.ID, req.Supported))
}

func (h *VoiceHandler) ClearError(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "clear_error", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	return r.reply(ctx, fiber.StatusOK, h.voiceService.ClearError(r.ctx, r.user.ID))
}

func (h *VoiceHandler) Speak(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "speak", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.SpeakRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	h.voiceService.Speak(r.ctx, r.user.ID, req.Text)

	return r.reply(ctx, fiber.StatusAccepted, fiber.Map{"accepted": true})
}

func (h *VoiceHandler) Commands(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "commands", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	return r.reply(ctx, fiber.StatusOK, fiber.Map{"commands": h.voiceService.Commands(r.ctx)})
}

func (h *VoiceHandler) CollectFeedback(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "collect_feedback", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.FeedbackRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	record, err := h.voiceService.CollectFeedback(r.ctx, r.user.ID, req)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "collect_feedback")
	}

	return r.reply(ctx, fiber.StatusCreated, record)
}

func (h *VoiceHandler) LocalFeedback(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "local_feedback", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	filter, err := feedbackFilter(ctx)
	if err != nil {
		return r.errHandler.HandleValidationError(ctx, r.id, err, ctx.Path())
	}

	records, err := h.voiceService.LocalFeedback(r.ctx, r.user.ID, filter)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "local_feedback")
	}

	return r.reply(ctx, fiber.StatusOK, fiber.Map{
		"feedback": records,
		"total":    len(records),
	})
}

func (h *VoiceHandler) SyncFeedback(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "sync_feedback", 30*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	res, err := h.voiceService.SyncFeedback(r.ctx, r.user.ID)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "sync_feedback")
	}

	return r.reply(ctx, fiber.StatusOK, res)
}

func (h *VoiceHandler) SubmitSuggestion(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "submit_suggestion", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req entity.SuggestionInput
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	suggestion, err := h.voiceService.SubmitSuggestion(r.ctx, r.user.ID, req)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "submit_suggestion")
	}

	return r.reply(ctx, fiber.StatusCreated, suggestion)
}

func (h *VoiceHandler) Suggestions(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "suggestions", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	filter := feedback.SuggestionFilter{
		Category: ctx.Query("category"),
		Status:   entity.SuggestionStatus(ctx.Query("status")),
		Priority: ctx.QueryInt("priority", 0),
	}

	suggestions, err := h.voiceService.Suggestions(r.ctx, r.user.ID, filter)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "suggestions")
	}

	return r.reply(ctx, fiber.StatusOK, fiber.Map{
		"suggestions": suggestions,
		"total":       len(suggestions),
	})
}

func (h *VoiceHandler) VoteOnSuggestion(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "vote_suggestion", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.VoteRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	suggestion, err := h.voiceService.VoteOnSuggestion(r.ctx, r.user.ID, ctx.Params("id"), req.Vote)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "vote_suggestion")
	}

	return r.reply(ctx, fiber.StatusOK, suggestion)
}

func (h *VoiceHandler) UpdateSuggestionStatus(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "update_suggestion_status", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	var req voice.SuggestionStatusRequest
	if ok, err := h.parse(ctx, r, &req); !ok {
		return err
	}

	suggestion, err := h.voiceService.UpdateSuggestionStatus(r.ctx, r.user.ID, ctx.Params("id"), req)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "update_suggestion_status")
	}

	return r.reply(ctx, fiber.StatusOK, suggestion)
}

func (h *VoiceHandler) Analytics(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "analytics", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	res, err := h.voiceService.Analytics(r.ctx, r.user.ID)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "analytics")
	}

	return r.reply(ctx, fiber.StatusOK, res)
}

func (h *VoiceHandler) SessionHistory(ctx *fiber.Ctx) error {
	r, ok, err := h.begin(ctx, "session_history", 10*time.Second)
	if !ok {
		return err
	}
	defer r.cancel()

	page, err := strconv.Atoi(ctx.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	res, err := h.voiceService.SessionHistory(r.ctx, r.user.ID, page, limit)
	if err != nil {
		return r.errHandler.Handle(ctx, r.id, err, ctx.Path(), "session_history")
	}

	return r.reply(ctx, fiber.StatusOK, fiber.Map{
		"sessions": res.Sessions,
		"total":    res.Total,
		"page":     page,
		"limit":    limit,
	})
}

// feedbackFilter reads type, rating, start, end and resolved from the query.
// Dates are RFC3339.
func feedbackFilter(ctx *fiber.Ctx) (feedback.Filter, error) {
	filter := feedback.Filter{
		Type:   entity.FeedbackType(ctx.Query("type")),
		Rating: ctx.QueryInt("rating", 0),
	}

	if v := ctx.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("start must be an RFC3339 timestamp")
		}
		filter.Start = t
	}
	if v := ctx.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("end must be an RFC3339 timestamp")
		}
		filter.End = t
	}
	if v := ctx.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("resolved must be a boolean")
		}
		filter.Resolved = &resolved
	}

	return filter, nil
}
