package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"
	"NexaVoice/pkg/wakeword"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnavailable         = errors.New("voice assistant is not available")
	ErrPermissionDenied    = errors.New("microphone access denied")
	ErrSessionActive       = errors.New("a voice session is already active")
	ErrWakeWordDisabled    = errors.New("wake word detection is disabled")
	ErrInvalidPermission   = errors.New("invalid microphone permission")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoFeedbackSink      = errors.New("no feedback sink configured")
)

const (
	ReasonManual    = "manual"
	ReasonTimeout   = "timeout"
	ReasonCompleted = "completed"
	ReasonError     = "error"
	ReasonCommand   = "voice-command"
	ReasonDisabled  = "disabled"
	ReasonShutdown  = "shutdown"

	DefaultAutoFeedbackThreshold = 0.8
	DefaultWakeDisplay           = 3 * time.Second

	releaseWait = time.Second

	wakeReply     = "Yes?"
	wakeReplyRate = 1.2

	msgUnavailable   = "Voice assistant is not available"
	msgPermission    = "Microphone access denied. Please enable microphone permissions."
	msgUnsupported   = "Speech recognition not supported in this browser"
	msgTimedOut      = "Voice assistant timed out"
	msgProcessFailed = "Failed to process voice command"
	msgApology       = "Sorry, I had trouble processing that command."
)

// Analytics receives session, command and failure events.
type Analytics interface {
	TrackSessionStart(ctx context.Context, session entity.VoiceSession)
	TrackSessionEnd(ctx context.Context, sessionID, reason string)
	TrackCommand(ctx context.Context, cmd entity.CommandEntry)
	TrackFailure(ctx context.Context, failure entity.FailureEntry)
}

// FeedbackSink stores explicit and auto-generated feedback.
type FeedbackSink interface {
	CollectFeedback(ctx context.Context, in entity.FeedbackInput) (entity.FeedbackRecord, error)
	SubmitSuggestion(ctx context.Context, in entity.SuggestionInput) (entity.Suggestion, error)
	VoteOnSuggestion(ctx context.Context, id string, vote int) (entity.Suggestion, error)
}

type Config struct {
	UserID      string
	Settings    Settings
	Permission  Permission
	CurrentPath string

	// AutoFeedbackThreshold is the confidence above which a resolved
	// command is recorded as 5-star success feedback.
	AutoFeedbackThreshold float64
	WakeDisplay           time.Duration
	CountdownInterval     time.Duration
}

type Option func(*Controller)

func WithSynthesizer(s speech.Synthesizer) Option {
	return func(c *Controller) {
		c.synth = s
	}
}

func WithFeedback(f FeedbackSink) Option {
	return func(c *Controller) {
		c.feedback = f
	}
}

func WithAnalytics(a Analytics) Option {
	return func(c *Controller) {
		c.analytics = a
	}
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

func WithHooks(h nlp.Hooks) Option {
	return func(c *Controller) {
		c.hooks = h
	}
}

// WithRouter replaces the default router, which only emits navigate events.
func WithRouter(r nlp.Router) Option {
	return func(c *Controller) {
		c.router = r
	}
}

func WithDetector(d *wakeword.Detector) Option {
	return func(c *Controller) {
		c.detector = d
	}
}

// Controller owns the voice session lifecycle for one user.
type Controller struct {
	log        *logrus.Logger
	store      *Store
	recognizer speech.Recognizer
	processor  nlp.ICommandProcessor
	synth      speech.Synthesizer
	feedback   FeedbackSink
	analytics  Analytics
	publisher  Publisher
	router     nlp.Router
	hooks      nlp.Hooks
	detector   *wakeword.Detector
	supervisor *Supervisor
	validate   *validator.Validate

	userID      string
	threshold   float64
	wakeDisplay time.Duration
	now         func() time.Time

	// mu serialises activation and deactivation
	mu             sync.Mutex
	gen            uint64
	listenCancel   context.CancelFunc
	listenReleased chan struct{} // closed once Listen has returned

	wakeMu    sync.Mutex
	wakeTimer *time.Timer

	wg sync.WaitGroup
}

func New(cfg Config, recognizer speech.Recognizer, processor nlp.ICommandProcessor, logger *logrus.Logger, opts ...Option) *Controller {
	settings := cfg.Settings
	if settings.WakeWord == "" {
		settings = DefaultSettings()
	}
	permission := cfg.Permission
	if !permission.Valid() {
		permission = PermissionPrompt
	}

	c := &Controller{
		log:         logger,
		recognizer:  recognizer,
		processor:   processor,
		validate:    validator.New(),
		userID:      cfg.UserID,
		threshold:   cfg.AutoFeedbackThreshold,
		wakeDisplay: cfg.WakeDisplay,
		now:         time.Now,
		store: NewStore(State{
			Supported:   recognizer.Supported(),
			CurrentPath: cfg.CurrentPath,
			Permission:  permission,
			Settings:    settings,
		}),
	}
	if c.threshold <= 0 {
		c.threshold = DefaultAutoFeedbackThreshold
	}
	if c.wakeDisplay <= 0 {
		c.wakeDisplay = DefaultWakeDisplay
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.router == nil {
		c.router = clientRouter{c: c}
	}
	if c.detector == nil {
		c.detector = wakeword.New(wakeword.Config{
			WakeWord:    settings.WakeWord,
			Sensitivity: settings.WakeWordSensitivity,
		}, logger)
	}
	c.detector.OnDetected(c.onWakeWord)
	c.detector.OnError(c.onWakeError)

	c.supervisor = NewSupervisor(SupervisorConfig{
		Duration:    settings.Timeout(),
		Interval:    cfg.CountdownInterval,
		OnTimeout:   c.onTimeout,
		OnCountdown: c.onCountdown,
		OnCancelled: c.onCancelled,
	})

	return c
}

func (c *Controller) State() State {
	return c.store.State()
}

// Activate opens a new session. Unmet preconditions produce a toast for
// manual activation and are silent for wake-word activation; the returned
// error says which one failed.
func (c *Controller) Activate(ctx context.Context, trigger Trigger) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.store.State()
	if !st.Settings.Enabled || !c.recognizer.Supported() {
		c.rejectActivation(trigger, msgUnavailable)
		return Session{}, ErrUnavailable
	}
	if st.Permission == PermissionDenied {
		c.rejectActivation(trigger, msgPermission)
		return Session{}, ErrPermissionDenied
	}
	if st.Session != nil {
		return *st.Session, ErrSessionActive
	}

	now := c.now()
	sess := Session{
		ID:          newSessionID(trigger, now),
		Trigger:     trigger,
		StartedAt:   now,
		CurrentPath: st.CurrentPath,
	}

	if c.listenReleased != nil {
		select {
		case <-c.listenReleased:
		case <-time.After(releaseWait):
			c.log.Warn("Previous recognition did not release in time")
		}
	}

	if err := c.recognizer.Begin(); err != nil {
		if errors.Is(err, speech.ErrUnsupported) {
			c.rejectActivation(trigger, msgUnavailable)
			return Session{}, ErrUnavailable
		}
		return Session{}, err
	}

	c.gen++
	gen := c.gen
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	released := make(chan struct{})
	c.listenCancel = cancel
	c.listenReleased = released

	state := c.store.Dispatch(startSession(sess), setListening(true), setTimeout(true))

	if c.analytics != nil {
		c.analytics.TrackSessionStart(ctx, entity.VoiceSession{
			ID:          sess.ID,
			UserID:      c.userID,
			Trigger:     string(trigger),
			CurrentPath: sess.CurrentPath,
			StartedAt:   sess.StartedAt,
		})
	}

	c.wg.Add(1)
	go c.listen(listenCtx, gen, sess, released)
	c.supervisor.Start()
	c.publishState(state)

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"trigger":    trigger,
		"user_id":    c.userID,
	}).Info("Voice session activated")

	if trigger == TriggerWakeWord {
		c.speakAsync(wakeReply, wakeReplyRate)
	}

	return sess, nil
}

func (c *Controller) rejectActivation(trigger Trigger, msg string) {
	if trigger == TriggerWakeWord {
		c.log.WithField("reason", msg).Debug("Wake word activation skipped")
		return
	}
	c.toast(ToastError, msg)
}

func newSessionID(trigger Trigger, t time.Time) string {
	if trigger == TriggerWakeWord {
		return fmt.Sprintf("wake_word_session_%d", t.UnixMilli())
	}
	return fmt.Sprintf("voice_session_%d", t.UnixMilli())
}

// Deactivate ends the current session. Calling it while idle only resets
// the wake-word indicator. It reports whether a session was ended.
func (c *Controller) Deactivate(ctx context.Context, reason string) bool {
	return c.deactivate(ctx, reason, 0)
}

// deactivate ends the session when gen is 0 or still current.
func (c *Controller) deactivate(ctx context.Context, reason string, gen uint64) bool {
	c.mu.Lock()
	if gen != 0 && c.gen != gen {
		c.mu.Unlock()
		return false
	}

	st := c.store.State()
	if st.Session == nil && !st.Listening && !st.Processing {
		state := c.store.Dispatch(setWakeWord{})
		c.mu.Unlock()
		if st.WakeWordDetected {
			c.publishState(state)
		}
		return false
	}

	c.gen++
	if c.listenCancel != nil {
		c.listenCancel()
		c.listenCancel = nil
	}
	c.supervisor.Stop()
	state := c.store.Dispatch(endSession{}, setListening(false), setProcessing(false), setTimeout(false), setWakeWord{})
	c.mu.Unlock()

	if st.Session != nil {
		if c.analytics != nil {
			c.analytics.TrackSessionEnd(ctx, st.Session.ID, reason)
		}
		c.log.WithFields(logrus.Fields{
			"session_id": st.Session.ID,
			"reason":     reason,
		}).Info("Voice session deactivated")
	}
	c.publishState(state)
	return true
}

// CancelTimeout stops the countdown and, through the cancel callback,
// ends the session. It reports false when no countdown was running.
func (c *Controller) CancelTimeout(reason string) bool {
	if reason == "" {
		reason = ReasonManual
	}
	return c.supervisor.Cancel(reason)
}

func (c *Controller) onTimeout() {
	if c.deactivate(context.Background(), ReasonTimeout, 0) {
		c.toast(ToastInfo, msgTimedOut)
	}
}

func (c *Controller) onCancelled(reason string) {
	c.deactivate(context.Background(), reason, 0)
}

func (c *Controller) onCountdown(cd Countdown) {
	c.publish(EventCountdown, cd)
}

func (c *Controller) listen(ctx context.Context, gen uint64, sess Session, released chan struct{}) {
	defer c.wg.Done()

	res, err := c.recognizer.Listen(ctx)
	close(released)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.recognitionFailed(gen, sess, err)
		return
	}
	c.process(gen, sess, res)
}

func (c *Controller) recognitionFailed(gen uint64, sess Session, err error) {
	code := "unknown"
	var re *speech.RecognitionError
	if errors.As(err, &re) {
		code = re.Code
	}

	ctx := context.Background()
	st := c.store.State()
	if c.analytics != nil {
		c.analytics.TrackFailure(ctx, entity.FailureEntry{
			Type:        entity.FailureRecognition,
			Error:       code,
			SessionID:   sess.ID,
			CurrentPath: st.CurrentPath,
			Timestamp:   c.now().UnixMilli(),
		})
	}

	var actions []Action
	var msg string
	switch {
	case speech.IsPermissionDenied(err):
		msg = msgPermission
		actions = append(actions, setPermission(PermissionDenied))
	case errors.Is(err, speech.ErrUnsupported):
		msg = msgUnsupported
		actions = append(actions, setSupported(false))
	default:
		msg = "Speech recognition error: " + code
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.supervisor.Stop()
	c.store.Dispatch(append(actions, setListening(false), setError(msg))...)
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"error":      err.Error(),
	}).Warn("Speech recognition failed")

	c.toast(ToastError, msg)
	c.deactivate(ctx, ReasonError, gen)
}

func (c *Controller) process(gen uint64, sess Session, res speech.RecognitionResult) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.supervisor.Stop()
	state := c.store.Dispatch(setListening(false), setTimeout(false), setProcessing(true), setCommand(res.Transcript))
	c.mu.Unlock()
	c.publishState(state)

	ctx := context.Background()
	started := c.now()

	action := c.processor.Process(res.Transcript, res.Confidence, state.Settings.EnabledCommandTypes)
	response, err := c.processor.Execute(ctx, action, c.execContext(state))
	elapsed := c.now().Sub(started).Milliseconds()

	if err != nil {
		c.commandFailed(ctx, sess, state, action, err)
	} else {
		c.commandSucceeded(ctx, sess, state, action, response, elapsed)
	}

	c.publishState(c.store.Dispatch(setProcessing(false)))
	c.deactivate(ctx, ReasonCompleted, gen)
}

func (c *Controller) commandSucceeded(ctx context.Context, sess Session, state State, action nlp.CommandAction, response string, elapsed int64) {
	kind := actionKind(action)

	if c.analytics != nil {
		c.analytics.TrackCommand(ctx, entity.CommandEntry{
			UserID:       c.userID,
			Command:      action.Transcript,
			Action:       kind,
			ActionType:   string(action.Type),
			Response:     response,
			Success:      !action.IsUnknown(),
			Confidence:   action.Confidence,
			ResponseTime: elapsed,
			SessionID:    sess.ID,
			CurrentPath:  state.CurrentPath,
			Timestamp:    c.now().UnixMilli(),
		})
	}

	if c.feedback != nil && action.Confidence > c.threshold && !action.IsUnknown() {
		_, err := c.feedback.CollectFeedback(ctx, entity.FeedbackInput{
			Command:      feedbackCommand(action.Transcript),
			Action:       kind,
			Rating:       5,
			Confidence:   action.Confidence,
			FeedbackType: entity.FeedbackSuccess,
			SessionID:    sess.ID,
			Context: map[string]interface{}{
				"currentPath":  state.CurrentPath,
				"responseTime": elapsed,
			},
			AutoGenerated: true,
		})
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"error":      err.Error(),
			}).Warn("Failed to record automatic feedback")
		}
	}

	c.publishState(c.store.Dispatch(setResponse(response)))
	c.speak(ctx, response, 1)
	c.toast(ToastSuccess, "Voice command: "+action.Transcript)

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"action":     kind,
		"confidence": action.Confidence,
	}).Info("Voice command processed")
}

// feedbackCommand is the form commands are recorded in feedback.
func feedbackCommand(transcript string) string {
	return strings.ToLower(strings.TrimSpace(transcript))
}

func (c *Controller) commandFailed(ctx context.Context, sess Session, state State, action nlp.CommandAction, err error) {
	kind := actionKind(action)

	c.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"action":     kind,
		"error":      err.Error(),
	}).Error("Voice command execution failed")

	if c.analytics != nil {
		c.analytics.TrackFailure(ctx, entity.FailureEntry{
			Type:           entity.FailureProcessing,
			Error:          err.Error(),
			RecognizedText: action.Transcript,
			Confidence:     action.Confidence,
			SessionID:      sess.ID,
			CurrentPath:    state.CurrentPath,
			Timestamp:      c.now().UnixMilli(),
		})
	}

	if c.feedback != nil {
		_, ferr := c.feedback.CollectFeedback(ctx, entity.FeedbackInput{
			Command:       feedbackCommand(action.Transcript),
			Action:        kind,
			Rating:        1,
			Confidence:    action.Confidence,
			FeedbackType:  entity.FeedbackError,
			Comment:       err.Error(),
			SessionID:     sess.ID,
			Context:       map[string]interface{}{"currentPath": state.CurrentPath},
			AutoGenerated: true,
		})
		if ferr != nil {
			c.log.WithField("error", ferr.Error()).Warn("Failed to record error feedback")
		}
	}

	c.publishState(c.store.Dispatch(setResponse(msgApology), setError(msgProcessFailed)))
	c.speak(ctx, msgApology, 1)
	c.toast(ToastError, msgProcessFailed)
}

func actionKind(action nlp.CommandAction) string {
	if action.Action == nil {
		return string(nlp.CategoryUnknown)
	}
	return action.Action.Kind()
}

func (c *Controller) execContext(state State) nlp.ExecContext {
	hooks := c.hooks
	if hooks.OnStopListening == nil {
		hooks.OnStopListening = func(ctx context.Context) error {
			c.Deactivate(ctx, ReasonCommand)
			return nil
		}
	}
	if hooks.OnOpenVoiceSettings == nil {
		hooks.OnOpenVoiceSettings = func(context.Context) error {
			c.publish(EventNavigate, Navigation{Action: "open-voice-settings"})
			return nil
		}
	}
	return nlp.ExecContext{
		Router:       c.router,
		CurrentPath:  state.CurrentPath,
		LastResponse: state.LastResponse,
		Hooks:        hooks,
	}
}

// FeedWakeTranscript checks one continuous transcript for the wake word.
func (c *Controller) FeedWakeTranscript(transcript string, confidence float64) bool {
	if !c.store.State().Settings.WakeWordEnabled {
		return false
	}
	return c.detector.Feed(transcript, confidence)
}

// StartWakeWord runs the monitor over a continuous transcript source.
func (c *Controller) StartWakeWord(ctx context.Context, source speech.TranscriptSource) error {
	if !c.store.State().Settings.WakeWordEnabled {
		return ErrWakeWordDisabled
	}
	return c.detector.Start(ctx, source)
}

func (c *Controller) StopWakeWord() {
	c.detector.Stop()
}

func (c *Controller) onWakeWord(det wakeword.Detection) {
	state := c.store.Dispatch(setWakeWord{detected: true, confidence: det.Confidence})
	c.publish(EventWakeWord, det)
	c.publishState(state)
	c.scheduleWakeReset()

	if !state.Settings.WakeWordEnabled {
		return
	}
	if _, err := c.Activate(context.Background(), TriggerWakeWord); err != nil {
		c.log.WithField("error", err.Error()).Debug("Wake word did not open a session")
	}
}

func (c *Controller) scheduleWakeReset() {
	c.wakeMu.Lock()
	defer c.wakeMu.Unlock()

	if c.wakeTimer != nil {
		c.wakeTimer.Stop()
	}
	c.wakeTimer = time.AfterFunc(c.wakeDisplay, func() {
		c.publishState(c.store.Dispatch(setWakeWord{}))
	})
}

func (c *Controller) onWakeError(err error) {
	actions := []Action{setError(err.Error())}
	if speech.IsPermissionDenied(err) {
		actions = append(actions, setPermission(PermissionDenied))
	}
	c.publishState(c.store.Dispatch(actions...))
}

// UpdateSettings validates and applies new settings to every component.
func (c *Controller) UpdateSettings(ctx context.Context, s Settings) (State, error) {
	if err := c.validate.Struct(s); err != nil {
		return State{}, err
	}
	if !slices.Contains(SupportedLanguages, s.CurrentLanguage) {
		return State{}, ErrUnsupportedLanguage
	}

	prev := c.store.State().Settings
	state := c.store.Dispatch(setSettings(s))

	c.detector.SetWakeWord(s.WakeWord)
	c.detector.SetSensitivity(s.WakeWordSensitivity)
	c.supervisor.SetDuration(s.Timeout())

	if prev.WakeWordEnabled && !s.WakeWordEnabled {
		c.detector.Stop()
	}
	if prev.Enabled && !s.Enabled {
		c.Deactivate(ctx, ReasonDisabled)
		state = c.store.State()
	}

	c.publishState(state)
	return state, nil
}

func (c *Controller) SetPermission(p Permission) (State, error) {
	if !p.Valid() {
		return State{}, ErrInvalidPermission
	}
	state := c.store.Dispatch(setPermission(p))
	c.publishState(state)
	return state, nil
}

func (c *Controller) SetPath(path string) State {
	state := c.store.Dispatch(setPath(path))
	c.publishState(state)
	return state
}

func (c *Controller) SetSupported(supported bool) State {
	state := c.store.Dispatch(setSupported(supported))
	c.publishState(state)
	return state
}

func (c *Controller) ClearError() State {
	state := c.store.Dispatch(setError(""))
	c.publishState(state)
	return state
}

// CollectFeedback records user feedback against the current session.
func (c *Controller) CollectFeedback(ctx context.Context, in entity.FeedbackInput) (entity.FeedbackRecord, error) {
	if c.feedback == nil {
		return entity.FeedbackRecord{}, ErrNoFeedbackSink
	}
	st := c.store.State()
	if in.SessionID == "" && st.Session != nil {
		in.SessionID = st.Session.ID
	}
	if in.Context == nil {
		in.Context = map[string]interface{}{}
	}
	if _, ok := in.Context["currentPath"]; !ok {
		in.Context["currentPath"] = st.CurrentPath
	}
	return c.feedback.CollectFeedback(ctx, in)
}

func (c *Controller) SubmitSuggestion(ctx context.Context, in entity.SuggestionInput) (entity.Suggestion, error) {
	if c.feedback == nil {
		return entity.Suggestion{}, ErrNoFeedbackSink
	}
	st := c.store.State()
	if in.SessionID == "" && st.Session != nil {
		in.SessionID = st.Session.ID
	}
	if in.Context == nil {
		in.Context = map[string]interface{}{"currentPath": st.CurrentPath}
	}
	return c.feedback.SubmitSuggestion(ctx, in)
}

func (c *Controller) VoteOnSuggestion(ctx context.Context, id string, vote int) (entity.Suggestion, error) {
	if c.feedback == nil {
		return entity.Suggestion{}, ErrNoFeedbackSink
	}
	return c.feedback.VoteOnSuggestion(ctx, id, vote)
}

// Speak renders text with the current language and volume. Nothing is
// spoken when the volume is zero.
func (c *Controller) Speak(ctx context.Context, text string) {
	c.speak(ctx, text, 1)
}

func (c *Controller) speak(ctx context.Context, text string, rate float64) {
	st := c.store.State()
	if c.synth == nil || text == "" || st.Settings.FeedbackVolume <= 0 {
		return
	}

	c.synth.Cancel()
	audio, err := c.synth.Speak(ctx, speech.Utterance{
		Text:   text,
		Lang:   st.Settings.CurrentLanguage,
		Volume: st.Settings.FeedbackVolume,
		Rate:   rate,
		Pitch:  1,
	})
	if err != nil {
		c.log.WithField("error", err.Error()).Warn("Speech synthesis failed")
		return
	}
	c.publish(EventSpeech, audio)
}

func (c *Controller) speakAsync(text string, rate float64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.speak(context.Background(), text, rate)
	}()
}

// Close ends any session, stops the wake-word monitor and waits for
// background work.
func (c *Controller) Close(ctx context.Context) {
	c.Deactivate(ctx, ReasonShutdown)
	c.detector.Stop()

	c.wakeMu.Lock()
	if c.wakeTimer != nil {
		c.wakeTimer.Stop()
	}
	c.wakeMu.Unlock()

	if c.synth != nil {
		c.synth.Cancel()
	}
	c.wg.Wait()
}

func (c *Controller) toast(level ToastLevel, msg string) {
	c.publish(EventToast, Toast{Level: level, Message: msg})
}

func (c *Controller) publishState(s State) {
	c.publish(EventState, StateChange{Phase: s.Phase(), State: s})
}

func (c *Controller) publish(t EventType, data interface{}) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(Event{Type: t, Data: data, Timestamp: c.now()})
}

// clientRouter turns navigation commands into events for the client.
type clientRouter struct {
	c *Controller
}

func (r clientRouter) Navigate(_ context.Context, path string) error {
	r.c.store.Dispatch(setPath(path))
	r.c.publish(EventNavigate, Navigation{Action: "push", Path: path})
	return nil
}

func (r clientRouter) Back(context.Context) error {
	r.c.publish(EventNavigate, Navigation{Action: "back"})
	return nil
}

func (r clientRouter) Reload(context.Context) error {
	r.c.publish(EventNavigate, Navigation{Action: "reload"})
	return nil
}
