package voiceService

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"NexaVoice/internal/analytics"
	"NexaVoice/internal/api/voice"
	"NexaVoice/internal/assistant"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
	contextPkg "NexaVoice/pkg/context"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/speech"
	"NexaVoice/pkg/utils"

	"github.com/sirupsen/logrus"
)

// userAssistant is everything one user's voice session needs.
type userAssistant struct {
	controller *assistant.Controller
	bridge     *speech.Bridge
	feedback   *feedback.Service
	tracker    *analytics.Tracker
	hub        *assistant.Hub
	sessions   *sessionLog
	lastSeen   time.Time
}

// assistantFor returns the user's assistant, building it on first use.
func (s *voiceService) assistantFor(userID string) *userAssistant {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ua, ok := s.assistants[userID]; ok {
		ua.lastSeen = s.now()
		return ua
	}

	store := kvstore.WithPrefix(s.store, "user:"+userID+":")

	var remote feedback.Remote = localRemote{s: s, userID: userID}
	if s.config.RemoteURL != "" {
		remote = feedback.NewClient(s.config.RemoteURL)
	}

	ua := &userAssistant{
		bridge:   speech.NewBridge(true),
		feedback: feedback.New(store, s.log, feedback.WithRemote(remote)),
		tracker:  analytics.New(store, s.log),
		hub:      assistant.NewHub(),
		lastSeen: s.now(),
	}
	ua.sessions = &sessionLog{
		userID:  userID,
		tracker: ua.tracker,
		repo:    s.voiceRepo,
		log:     s.log,
	}
	ua.controller = assistant.New(assistant.Config{
		UserID:                userID,
		Settings:              s.config.Defaults,
		AutoFeedbackThreshold: s.config.AutoFeedbackThreshold,
		CountdownInterval:     s.config.CountdownInterval,
	}, ua.bridge, s.processor, s.log,
		assistant.WithPublisher(ua.hub),
		assistant.WithFeedback(ua.feedback),
		assistant.WithAnalytics(ua.sessions),
		assistant.WithSynthesizer(s.newSynth()),
	)

	s.assistants[userID] = ua

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"total":   len(s.assistants),
	}).Debug("Voice assistant created")

	return ua
}

func (s *voiceService) State(ctx context.Context, userID string) assistant.State {
	return s.assistantFor(userID).controller.State()
}

// Activate reports unmet preconditions as Activated=false rather than as an
// error; the same message was toasted to the user's subscribers.
func (s *voiceService) Activate(ctx context.Context, userID string, req voice.ActivateRequest) (voice.ActivateResponse, error) {
	ua := s.assistantFor(userID)

	if req.CurrentPath != "" {
		ua.controller.SetPath(req.CurrentPath)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = assistant.TriggerManual
	}

	sess, err := ua.controller.Activate(ctx, trigger)
	switch {
	case errors.Is(err, assistant.ErrUnavailable), errors.Is(err, assistant.ErrPermissionDenied):
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"user_id":    userID,
			"reason":     err.Error(),
		}).Info("Voice activation rejected")
		return voice.ActivateResponse{Activated: false, Message: err.Error()}, nil
	case err != nil:
		return voice.ActivateResponse{}, err
	}

	return voice.ActivateResponse{Activated: true, Session: &sess}, nil
}

func (s *voiceService) Deactivate(ctx context.Context, userID string, reason string) voice.DeactivateResponse {
	if reason == "" {
		reason = assistant.ReasonManual
	}
	ended := s.assistantFor(userID).controller.Deactivate(ctx, reason)
	return voice.DeactivateResponse{Deactivated: ended}
}

func (s *voiceService) PushResult(ctx context.Context, userID string, req voice.RecognitionResultRequest) error {
	return s.assistantFor(userID).bridge.Push(speech.RecognitionResult{
		Transcript: req.Transcript,
		Confidence: req.Confidence,
	})
}

func (s *voiceService) PushError(ctx context.Context, userID string, req voice.RecognitionErrorRequest) error {
	return s.assistantFor(userID).bridge.Fail(req.Code, req.Message)
}

// RecognizeAudio transcribes an uploaded clip server-side and hands the
// outcome to the waiting session exactly as a browser result would be.
func (s *voiceService) RecognizeAudio(ctx context.Context, userID string, file *multipart.FileHeader) (voice.RecognitionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.transcriber == nil {
		return voice.RecognitionResponse{}, voice.ErrTranscriberMissing
	}

	if err := s.utils.ValidateAudioFile(file); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid audio file")
		if errors.Is(err, utils.ErrFileTooLarge) {
			return voice.RecognitionResponse{}, voice.ErrAudioFileTooLarge
		}
		return voice.RecognitionResponse{}, voice.ErrInvalidAudioFile
	}

	ua := s.assistantFor(userID)
	if !ua.bridge.Listening() {
		return voice.RecognitionResponse{}, speech.ErrNotListening
	}

	f, err := file.Open()
	if err != nil {
		return voice.RecognitionResponse{}, voice.ErrInvalidAudioFile
	}
	defer f.Close()

	result, err := s.transcriber.Transcribe(ctx, f, file.Filename)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err.Error(),
		}).Error("Failed to transcribe audio")

		code, msg := speech.CodeNetwork, err.Error()
		var recErr *speech.RecognitionError
		if errors.As(err, &recErr) {
			code, msg = recErr.Code, recErr.Message
		}
		if failErr := ua.bridge.Fail(code, msg); failErr != nil {
			s.log.WithField("error", failErr.Error()).Debug("No session waiting for the recognition error")
		}
		return voice.RecognitionResponse{}, voice.ErrRecognitionFailed
	}

	if err := ua.bridge.Push(result); err != nil {
		return voice.RecognitionResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    userID,
		"confidence": result.Confidence,
	}).Info("Audio clip recognized")

	return voice.RecognitionResponse{
		Transcript: result.Transcript,
		Confidence: result.Confidence,
	}, nil
}

func (s *voiceService) FeedWakeTranscript(ctx context.Context, userID string, req voice.WakeRequest) voice.WakeResponse {
	detected := s.assistantFor(userID).controller.FeedWakeTranscript(req.Transcript, req.Confidence)
	return voice.WakeResponse{Detected: detected}
}

func (s *voiceService) CancelTimeout(ctx context.Context, userID string, reason string) voice.CancelTimeoutResponse {
	if reason == "" {
		reason = "user"
	}
	return voice.CancelTimeoutResponse{Cancelled: s.assistantFor(userID).controller.CancelTimeout(reason)}
}

func (s *voiceService) UpdateSettings(ctx context.Context, userID string, settings assistant.Settings) (assistant.State, error) {
	return s.assistantFor(userID).controller.UpdateSettings(ctx, settings)
}

func (s *voiceService) SetPermission(ctx context.Context, userID string, permission assistant.Permission) (assistant.State, error) {
	return s.assistantFor(userID).controller.SetPermission(permission)
}

func (s *voiceService) SetPath(ctx context.Context, userID string, path string) assistant.State {
	return s.assistantFor(userID).controller.SetPath(path)
}

// SetSupported records whether the user's browser can recognize speech.
func (s *voiceService) SetSupported(ctx context.Context, userID string, supported bool) assistant.State {
	ua := s.assistantFor(userID)
	ua.bridge.SetSupported(supported)
	return ua.controller.SetSupported(supported)
}

func (s *voiceService) ClearError(ctx context.Context, userID string) assistant.State {
	return s.assistantFor(userID).controller.ClearError()
}

func (s *voiceService) Speak(ctx context.Context, userID string, text string) {
	s.assistantFor(userID).controller.Speak(ctx, text)
}

func (s *voiceService) Commands(ctx context.Context) []string {
	return s.processor.Phrases()
}

func (s *voiceService) CollectFeedback(ctx context.Context, userID string, req voice.FeedbackRequest) (entity.FeedbackRecord, error) {
	return s.assistantFor(userID).controller.CollectFeedback(ctx, entity.FeedbackInput{
		CommandID:      req.CommandID,
		Command:        req.Command,
		Action:         req.Action,
		Rating:         req.Rating,
		Confidence:     req.Confidence,
		FeedbackType:   req.FeedbackType,
		Comment:        req.Comment,
		ExpectedAction: req.ExpectedAction,
		Context:        req.Context,
	})
}

func (s *voiceService) LocalFeedback(ctx context.Context, userID string, filter feedback.Filter) ([]entity.FeedbackRecord, error) {
	return s.assistantFor(userID).feedback.Feedback(ctx, filter)
}

func (s *voiceService) SyncFeedback(ctx context.Context, userID string) (feedback.SyncResult, error) {
	return s.assistantFor(userID).feedback.SyncQueuedFeedback(ctx)
}

func (s *voiceService) SubmitSuggestion(ctx context.Context, userID string, in entity.SuggestionInput) (entity.Suggestion, error) {
	return s.assistantFor(userID).controller.SubmitSuggestion(ctx, in)
}

func (s *voiceService) VoteOnSuggestion(ctx context.Context, userID string, id string, vote int) (entity.Suggestion, error) {
	return s.assistantFor(userID).controller.VoteOnSuggestion(ctx, id, vote)
}

func (s *voiceService) UpdateSuggestionStatus(ctx context.Context, userID string, id string, req voice.SuggestionStatusRequest) (entity.Suggestion, error) {
	return s.assistantFor(userID).feedback.UpdateSuggestionStatus(ctx, id, req.Status, req.Notes)
}

func (s *voiceService) Suggestions(ctx context.Context, userID string, filter feedback.SuggestionFilter) ([]entity.Suggestion, error) {
	return s.assistantFor(userID).feedback.Suggestions(ctx, filter)
}

func (s *voiceService) Analytics(ctx context.Context, userID string) (voice.AnalyticsResponse, error) {
	ua := s.assistantFor(userID)

	usage, err := ua.tracker.Summary(ctx)
	if err != nil {
		return voice.AnalyticsResponse{}, err
	}
	fb, err := ua.feedback.Analytics(ctx)
	if err != nil {
		return voice.AnalyticsResponse{}, err
	}
	return voice.AnalyticsResponse{Usage: usage, Feedback: fb}, nil
}

func (s *voiceService) SessionHistory(ctx context.Context, userID string, page, limit int) (voice.SessionHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return voice.SessionHistoryResponse{}, err
	}

	sessions, total, err := repo.Sessions.GetSessionsByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"user_id":    userID,
			"error":      err.Error(),
		}).Error("Failed to load session history")
		return voice.SessionHistoryResponse{}, err
	}

	return voice.SessionHistoryResponse{Sessions: sessions, Total: total}, nil
}

// Subscribe streams the user's assistant events. The current state is
// queued first so a new subscriber never starts blank.
func (s *voiceService) Subscribe(ctx context.Context, userID string, buffer int) (<-chan assistant.Event, func()) {
	ua := s.assistantFor(userID)
	events, unsubscribe := ua.hub.Subscribe(buffer)

	state := ua.controller.State()
	ua.hub.Publish(assistant.Event{
		Type:      assistant.EventState,
		Data:      assistant.StateChange{Phase: state.Phase(), State: state},
		Timestamp: s.now(),
	})

	return events, func() {
		unsubscribe()
		s.touch(userID)
	}
}

func (s *voiceService) touch(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ua, ok := s.assistants[userID]; ok {
		ua.lastSeen = s.now()
	}
}

// Run closes idle assistants until ctx is done. An assistant is idle when
// it has no session, no subscribers and has not been used for IdleTimeout.
func (s *voiceService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *voiceService) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.config.IdleTimeout)

	s.mu.Lock()
	var idle []*userAssistant
	for userID, ua := range s.assistants {
		if ua.lastSeen.After(cutoff) || ua.hub.Subscribers() > 0 || ua.controller.State().Session != nil {
			continue
		}
		idle = append(idle, ua)
		delete(s.assistants, userID)
	}
	s.mu.Unlock()

	for _, ua := range idle {
		ua.controller.Close(ctx)
		ua.feedback.Wait()
		ua.sessions.Wait()
	}

	if len(idle) > 0 {
		s.log.WithField("closed", len(idle)).Info("Idle voice assistants closed")
	}
}

// Close shuts down every assistant and waits for pending feedback delivery
// and session writes.
func (s *voiceService) Close(ctx context.Context) {
	s.mu.Lock()
	all := make([]*userAssistant, 0, len(s.assistants))
	for userID, ua := range s.assistants {
		all = append(all, ua)
		delete(s.assistants, userID)
	}
	s.mu.Unlock()

	for _, ua := range all {
		ua.controller.Close(ctx)
		ua.feedback.Wait()
		ua.sessions.Wait()
	}
}
