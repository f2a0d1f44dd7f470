package assistant

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calls struct {
	feedback    []entity.FeedbackInput
	suggestions []entity.SuggestionInput
	starts      []entity.VoiceSession
	ends        []string
	commands    []entity.CommandEntry
	failures    []entity.FailureEntry
	utterances  []speech.Utterance
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	calls
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) CollectFeedback(_ context.Context, in entity.FeedbackInput) (entity.FeedbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, in)
	return entity.FeedbackRecord{ID: "fb", Command: in.Command, Rating: in.Rating}, nil
}

func (r *recorder) SubmitSuggestion(_ context.Context, in entity.SuggestionInput) (entity.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggestions = append(r.suggestions, in)
	return entity.Suggestion{ID: "sg", SuggestedCommand: in.SuggestedCommand, SessionID: in.SessionID}, nil
}

func (r *recorder) VoteOnSuggestion(_ context.Context, id string, vote int) (entity.Suggestion, error) {
	return entity.Suggestion{ID: id, Votes: vote}, nil
}

func (r *recorder) TrackSessionStart(_ context.Context, s entity.VoiceSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, s)
}

func (r *recorder) TrackSessionEnd(_ context.Context, _ string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, reason)
}

func (r *recorder) TrackCommand(_ context.Context, cmd entity.CommandEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *recorder) TrackFailure(_ context.Context, f entity.FailureEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recorder) Speak(_ context.Context, u speech.Utterance) (speech.Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utterances = append(r.utterances, u)
	return speech.Audio{Utterance: u}, nil
}

func (r *recorder) Cancel() {}

func (r *recorder) toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Toast
	for _, e := range r.events {
		if e.Type == EventToast {
			out = append(out, e.Data.(Toast))
		}
	}
	return out
}

func (r *recorder) eventsOf(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) snapshot() calls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return calls{
		feedback:   append([]entity.FeedbackInput(nil), r.feedback...),
		starts:     append([]entity.VoiceSession(nil), r.starts...),
		ends:       append([]string(nil), r.ends...),
		commands:   append([]entity.CommandEntry(nil), r.commands...),
		failures:   append([]entity.FailureEntry(nil), r.failures...),
		utterances: append([]speech.Utterance(nil), r.utterances...),
	}
}

type failingRouter struct{}

func (failingRouter) Navigate(context.Context, string) error { return errors.New("router exploded") }
func (failingRouter) Back(context.Context) error             { return nil }
func (failingRouter) Reload(context.Context) error           { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newController(t *testing.T, cfg Config, opts ...Option) (*Controller, *speech.Bridge, *recorder) {
	t.Helper()
	bridge := speech.NewBridge(true)
	rec := &recorder{}

	if cfg.CountdownInterval == 0 {
		cfg.CountdownInterval = 10 * time.Millisecond
	}
	if cfg.CurrentPath == "" {
		cfg.CurrentPath = "/clients"
	}

	all := append([]Option{
		WithPublisher(rec),
		WithFeedback(rec),
		WithAnalytics(rec),
		WithSynthesizer(rec),
	}, opts...)

	c := New(cfg, bridge, nlp.NewProcessor(), quietLogger(), all...)
	t.Cleanup(func() { c.Close(context.Background()) })
	return c, bridge, rec
}

func waitIdle(t *testing.T, c *Controller) State {
	t.Helper()
	require.Eventually(t, func() bool {
		st := c.State()
		return st.Session == nil && !st.Listening && !st.Processing
	}, 2*time.Second, 5*time.Millisecond)
	return c.State()
}

func TestActivatePreconditions(t *testing.T) {
	settings := DefaultSettings()
	settings.Enabled = false
	c, _, rec := newController(t, Config{Settings: settings})

	_, err := c.Activate(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrUnavailable)
	require.Len(t, rec.toasts(), 1)
	assert.Equal(t, Toast{Level: ToastError, Message: "Voice assistant is not available"}, rec.toasts()[0])

	// wake-word activation fails silently
	_, err = c.Activate(context.Background(), TriggerWakeWord)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, rec.toasts(), 1)

	denied, _, rec2 := newController(t, Config{Permission: PermissionDenied})
	_, err = denied.Activate(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	require.Len(t, rec2.toasts(), 1)
	assert.Equal(t, "Microphone access denied. Please enable microphone permissions.", rec2.toasts()[0].Message)
	assert.Nil(t, denied.State().Session)
}

func TestActivateUnsupportedRecognizer(t *testing.T) {
	c, bridge, _ := newController(t, Config{})
	bridge.SetSupported(false)

	_, err := c.Activate(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestActivateTwiceKeepsOneSession(t *testing.T) {
	c, bridge, rec := newController(t, Config{})
	ctx := context.Background()

	first, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "voice_session_"))
	assert.Equal(t, "/clients", first.CurrentPath)

	second, err := c.Activate(ctx, TriggerManual)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, first.ID, second.ID)

	require.True(t, bridge.Listening())
	st := c.State()
	assert.Equal(t, PhaseListening, st.Phase())
	assert.True(t, st.TimeoutActive)
	assert.Len(t, rec.snapshot().starts, 1)
}

func TestResultRightAfterActivateIsAccepted(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		c, bridge, rec := newController(t, Config{})

		_, err := c.Activate(ctx, TriggerManual)
		require.NoError(t, err)
		require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "go to dashboard", Confidence: 0.95}))

		st := waitIdle(t, c)
		assert.Equal(t, "/dashboard", st.CurrentPath)
		assert.Equal(t, []string{ReasonCompleted}, rec.snapshot().ends)
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	c, bridge, rec := newController(t, Config{})
	ctx := context.Background()

	assert.False(t, c.Deactivate(ctx, ReasonManual))

	_, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())

	assert.True(t, c.Deactivate(ctx, ReasonManual))
	assert.False(t, c.Deactivate(ctx, ReasonManual))

	st := c.State()
	assert.Equal(t, PhaseIdle, st.Phase())
	assert.False(t, st.TimeoutActive)
	assert.Equal(t, []string{ReasonManual}, rec.snapshot().ends)
	require.Eventually(t, func() bool { return !bridge.Listening() }, time.Second, 5*time.Millisecond)

	// a new session can start once the old one is gone
	_, err = c.Activate(ctx, TriggerManual)
	require.NoError(t, err)
}

func TestNavigationCommandFlow(t *testing.T) {
	c, bridge, rec := newController(t, Config{})
	ctx := context.Background()

	sess, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "go to dashboard", Confidence: 0.95}))

	st := waitIdle(t, c)
	assert.Equal(t, "go to dashboard", st.LastCommand)
	assert.Equal(t, "Navigating to the dashboard.", st.LastResponse)
	assert.Equal(t, "/dashboard", st.CurrentPath)
	assert.Empty(t, st.Error)

	navs := rec.eventsOf(EventNavigate)
	require.Len(t, navs, 1)
	assert.Equal(t, Navigation{Action: "push", Path: "/dashboard"}, navs[0].Data)

	snap := rec.snapshot()
	require.Len(t, snap.feedback, 1)
	fb := snap.feedback[0]
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, entity.FeedbackSuccess, fb.FeedbackType)
	assert.True(t, fb.AutoGenerated)
	assert.Equal(t, "go to dashboard", fb.Command)
	assert.Equal(t, sess.ID, fb.SessionID)

	require.Len(t, snap.commands, 1)
	assert.True(t, snap.commands[0].Success)
	assert.Equal(t, "navigate", snap.commands[0].Action)
	assert.Equal(t, string(nlp.CategoryNavigation), snap.commands[0].ActionType)
	assert.Equal(t, []string{ReasonCompleted}, snap.ends)

	require.Len(t, snap.utterances, 1)
	assert.Equal(t, "Navigating to the dashboard.", snap.utterances[0].Text)
	assert.Equal(t, 0.8, snap.utterances[0].Volume)

	assert.Contains(t, rec.toasts(), Toast{Level: ToastSuccess, Message: "Voice command: go to dashboard"})
}

func TestLowConfidenceSkipsAutoFeedback(t *testing.T) {
	c, bridge, rec := newController(t, Config{})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "go to dashboard", Confidence: 0.8}))

	waitIdle(t, c)
	assert.Empty(t, rec.snapshot().feedback)
}

func TestUnknownCommandCompletes(t *testing.T) {
	c, bridge, rec := newController(t, Config{})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "asdkjasd", Confidence: 0.9}))

	st := waitIdle(t, c)
	assert.Empty(t, st.Error)
	assert.True(t, strings.HasPrefix(st.LastResponse, "I didn't understand"))

	snap := rec.snapshot()
	assert.Empty(t, snap.feedback)
	assert.Empty(t, snap.failures)
	require.Len(t, snap.commands, 1)
	assert.False(t, snap.commands[0].Success)
	for _, u := range snap.utterances {
		assert.NotEqual(t, "Sorry, I had trouble processing that command.", u.Text)
	}
}

func TestExecutionErrorApologises(t *testing.T) {
	c, bridge, rec := newController(t, Config{}, WithRouter(failingRouter{}))

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: " Go to Dashboard ", Confidence: 0.95}))

	st := waitIdle(t, c)
	assert.Equal(t, "Sorry, I had trouble processing that command.", st.LastResponse)
	assert.Equal(t, "Failed to process voice command", st.Error)
	assert.Equal(t, PhaseError, st.Phase())

	snap := rec.snapshot()
	require.Len(t, snap.feedback, 1)
	assert.Equal(t, 1, snap.feedback[0].Rating)
	assert.Equal(t, "go to dashboard", snap.feedback[0].Command)
	assert.Equal(t, entity.FeedbackError, snap.feedback[0].FeedbackType)
	assert.Equal(t, "router exploded", snap.feedback[0].Comment)
	assert.True(t, snap.feedback[0].AutoGenerated)

	require.Len(t, snap.failures, 1)
	assert.Equal(t, entity.FailureProcessing, snap.failures[0].Type)
	require.Len(t, snap.utterances, 1)
	assert.Equal(t, "Sorry, I had trouble processing that command.", snap.utterances[0].Text)
	assert.Contains(t, rec.toasts(), Toast{Level: ToastError, Message: "Failed to process voice command"})

	c.ClearError()
	assert.Equal(t, PhaseIdle, c.State().Phase())
}

func TestTimeoutFiresOnce(t *testing.T) {
	settings := DefaultSettings()
	settings.ListeningTimeout = 60
	c, bridge, rec := newController(t, Config{Settings: settings})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)

	st := waitIdle(t, c)
	assert.Equal(t, PhaseIdle, st.Phase())
	require.Eventually(t, func() bool { return !bridge.Listening() }, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	var timeouts int
	for _, toast := range rec.toasts() {
		if toast.Message == "Voice assistant timed out" {
			timeouts++
		}
	}
	assert.Equal(t, 1, timeouts)
	assert.Equal(t, []string{ReasonTimeout}, rec.snapshot().ends)
	assert.NotEmpty(t, rec.eventsOf(EventCountdown))
}

func TestCancelTimeoutEndsSession(t *testing.T) {
	c, _, rec := newController(t, Config{})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.True(t, c.CancelTimeout("user"))
	assert.False(t, c.CancelTimeout("user"))

	st := c.State()
	assert.Nil(t, st.Session)
	assert.Equal(t, []string{"user"}, rec.snapshot().ends)
	for _, toast := range rec.toasts() {
		assert.NotEqual(t, "Voice assistant timed out", toast.Message)
	}
}

func TestRecognitionPermissionDenied(t *testing.T) {
	c, bridge, rec := newController(t, Config{})
	ctx := context.Background()

	_, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Fail(speech.CodeNotAllowed, ""))

	st := waitIdle(t, c)
	assert.Equal(t, PermissionDenied, st.Permission)
	assert.Equal(t, PhaseError, st.Phase())
	assert.Contains(t, rec.toasts(), Toast{Level: ToastError, Message: "Microphone access denied. Please enable microphone permissions."})

	snap := rec.snapshot()
	require.Len(t, snap.failures, 1)
	assert.Equal(t, entity.FailureRecognition, snap.failures[0].Type)
	assert.Equal(t, speech.CodeNotAllowed, snap.failures[0].Error)
	assert.Equal(t, []string{ReasonError}, snap.ends)

	_, err = c.Activate(ctx, TriggerManual)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestRecognitionTransientError(t *testing.T) {
	c, bridge, rec := newController(t, Config{})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Fail(speech.CodeNoSpeech, ""))

	st := waitIdle(t, c)
	assert.Equal(t, PermissionPrompt, st.Permission)
	assert.Equal(t, "Speech recognition error: no-speech", st.Error)
	assert.Contains(t, rec.toasts(), Toast{Level: ToastError, Message: "Speech recognition error: no-speech"})

	// the next activation clears the error
	_, err = c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Empty(t, c.State().Error)
}

func TestStopListeningCommand(t *testing.T) {
	c, bridge, rec := newController(t, Config{})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "stop listening", Confidence: 0.9}))

	waitIdle(t, c)
	require.Eventually(t, func() bool {
		return c.State().LastResponse == "Stopping voice recognition."
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{ReasonCommand}, rec.snapshot().ends)
}

func TestWakeWordActivatesSession(t *testing.T) {
	c, bridge, rec := newController(t, Config{WakeDisplay: 50 * time.Millisecond})

	assert.False(t, c.FeedWakeTranscript("good morning", 0.95))
	assert.True(t, c.FeedWakeTranscript("hey nexa", 0.9))

	st := c.State()
	require.NotNil(t, st.Session)
	assert.Equal(t, TriggerWakeWord, st.Session.Trigger)
	assert.True(t, strings.HasPrefix(st.Session.ID, "wake_word_session_"))
	assert.True(t, st.WakeWordDetected)
	assert.Equal(t, 0.9, st.WakeWordConfidence)
	assert.Len(t, rec.eventsOf(EventWakeWord), 1)
	require.True(t, bridge.Listening())

	require.Eventually(t, func() bool {
		for _, u := range rec.snapshot().utterances {
			if u.Text == "Yes?" && u.Rate == 1.2 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !c.State().WakeWordDetected }, time.Second, 5*time.Millisecond)
	// indicator reset leaves the session alone
	assert.NotNil(t, c.State().Session)
}

func TestWakeWordIgnoredWhenDisabled(t *testing.T) {
	settings := DefaultSettings()
	settings.WakeWordEnabled = false
	c, _, _ := newController(t, Config{Settings: settings})

	assert.False(t, c.FeedWakeTranscript("hey nexa", 0.99))
	assert.Nil(t, c.State().Session)
	assert.ErrorIs(t, c.StartWakeWord(context.Background(), nil), ErrWakeWordDisabled)
}

func TestSilentWhenVolumeZero(t *testing.T) {
	settings := DefaultSettings()
	settings.FeedbackVolume = 0
	c, bridge, rec := newController(t, Config{Settings: settings})

	_, err := c.Activate(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, bridge.Listening())
	require.NoError(t, bridge.Push(speech.RecognitionResult{Transcript: "refresh", Confidence: 0.9}))

	waitIdle(t, c)
	assert.Empty(t, rec.snapshot().utterances)
}

func TestUpdateSettings(t *testing.T) {
	c, _, _ := newController(t, Config{})
	ctx := context.Background()

	bad := DefaultSettings()
	bad.WakeWordSensitivity = 1.5
	_, err := c.UpdateSettings(ctx, bad)
	assert.Error(t, err)

	bad = DefaultSettings()
	bad.ListeningTimeout = 0
	_, err = c.UpdateSettings(ctx, bad)
	assert.Error(t, err)

	bad = DefaultSettings()
	bad.CurrentLanguage = "ja-JP"
	_, err = c.UpdateSettings(ctx, bad)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	good := DefaultSettings()
	good.WakeWord = "Hello Computer"
	good.CurrentLanguage = "fr-FR"
	good.EnabledCommandTypes = []nlp.Category{nlp.CategoryNavigation}
	st, err := c.UpdateSettings(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, "fr-FR", st.Settings.CurrentLanguage)

	word, _, _ := c.detector.Status()
	assert.Equal(t, "hello computer", word)
}

func TestDisablingEndsSession(t *testing.T) {
	c, _, rec := newController(t, Config{})
	ctx := context.Background()

	_, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)

	s := DefaultSettings()
	s.Enabled = false
	st, err := c.UpdateSettings(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, st.Session)
	assert.Equal(t, []string{ReasonDisabled}, rec.snapshot().ends)
}

func TestPermissionAndPath(t *testing.T) {
	c, _, _ := newController(t, Config{})

	_, err := c.SetPermission("maybe")
	assert.ErrorIs(t, err, ErrInvalidPermission)

	st, err := c.SetPermission(PermissionGranted)
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, st.Permission)

	assert.Equal(t, "/invoices", c.SetPath("/invoices").CurrentPath)
}

func TestCollectFeedbackFillsSession(t *testing.T) {
	c, _, rec := newController(t, Config{})
	ctx := context.Background()

	sess, err := c.Activate(ctx, TriggerManual)
	require.NoError(t, err)

	_, err = c.CollectFeedback(ctx, entity.FeedbackInput{Command: "open invoices", Rating: 2, Comment: "went to clients"})
	require.NoError(t, err)
	sg, err := c.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "show overdue"})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sg.SessionID)

	snap := rec.snapshot()
	require.Len(t, snap.feedback, 1)
	assert.Equal(t, sess.ID, snap.feedback[0].SessionID)
	assert.Equal(t, "/clients", snap.feedback[0].Context["currentPath"])
}
