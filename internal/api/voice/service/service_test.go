package voiceService

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"NexaVoice/internal/api/voice"
	voiceRepository "NexaVoice/internal/api/voice/repository"
	"NexaVoice/internal/assistant"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type fakeTranscriber struct {
	result speech.RecognitionResult
	err    error
}

func (f fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) (speech.RecognitionResult, error) {
	if _, err := io.ReadAll(audio); err != nil {
		return speech.RecognitionResult{}, err
	}
	return f.result, f.err
}

func newTestService(t *testing.T, opts ...Option) *voiceService {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := voiceRepository.New(db, logger)
	require.NoError(t, repo.Migrate(context.Background()))

	svc := NewVoiceService(logger, repo, kvstore.NewMemory(), nlp.NewProcessor(), VoiceConfig{
		CountdownInterval: 10 * time.Millisecond,
	}, opts...).(*voiceService)
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

func audioHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="audio"; filename="` + name + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["audio"][0]
}

func TestSubmitFeedbackValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  voice.SubmitFeedbackRequest
		want error
	}{
		{"missing command", voice.SubmitFeedbackRequest{Rating: 4, SessionID: "s"}, voice.ErrMissingFields},
		{"missing rating", voice.SubmitFeedbackRequest{Command: "help", SessionID: "s"}, voice.ErrMissingFields},
		{"missing session", voice.SubmitFeedbackRequest{Command: "help", Rating: 4}, voice.ErrMissingFields},
		{"rating too high", voice.SubmitFeedbackRequest{Command: "help", Rating: 6, SessionID: "s"}, voice.ErrInvalidRating},
		{"rating negative", voice.SubmitFeedbackRequest{Command: "help", Rating: -1, SessionID: "s"}, voice.ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitFeedback(ctx, "u-1", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitFeedbackStoresRecord(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.SubmitFeedback(ctx, "u-1", voice.SubmitFeedbackRequest{
		Command:   "open clients",
		Rating:    2,
		Comment:   "it didn't understand me",
		SessionID: "voice_session_1",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "submitted", res.Status)

	got, err := svc.FeedbackBySession(ctx, "voice_session_1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Total)

	record := got.Feedback[0]
	assert.Equal(t, res.ID, record.ID)
	assert.Equal(t, "u-1", record.UserID)
	assert.Equal(t, entity.FeedbackNegative, record.FeedbackType)
	assert.NotZero(t, record.Timestamp)
	assert.NotEmpty(t, record.Tags)
}

func TestFeedbackAnalytics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	empty, err := svc.FeedbackAnalytics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalFeedback)
	assert.Len(t, empty.RatingDistribution, 5)
	assert.Empty(t, empty.CommonIssues)

	for _, r := range []struct {
		rating  int
		comment string
	}{
		{5, ""},
		{4, ""},
		{1, "it did not understand what I said"},
		{2, "way too slow"},
	} {
		_, err := svc.SubmitFeedback(ctx, "u-1", voice.SubmitFeedbackRequest{
			Command:   "go to dashboard",
			Rating:    r.rating,
			Comment:   r.comment,
			SessionID: "s-1",
		})
		require.NoError(t, err)
	}

	got, err := svc.FeedbackAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalFeedback)
	assert.Equal(t, 3.0, got.AverageRating)
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 0, "4": 1, "5": 1}, got.RatingDistribution)
	assert.ElementsMatch(t, []string{"recognition", "response time"}, got.CommonIssues)
}

func TestCommandSuggestions(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.CommandSuggestions(context.Background(), "go to dashbord")
	require.NoError(t, err)
	require.NotEmpty(t, got.Suggestions)
	assert.Equal(t, "go to dashboard", got.Suggestions[0].Suggested)
	assert.Equal(t, "go to dashbord", got.Suggestions[0].Original)
	assert.LessOrEqual(t, len(got.Suggestions), 5)

	none, err := svc.CommandSuggestions(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, none.Suggestions)
	assert.Empty(t, none.Suggestions)
}

func TestExportFeedback(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	day := func(d int) int64 {
		return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC).UnixMilli()
	}
	for i, d := range []int{1, 5, 9} {
		_, err := svc.SubmitFeedback(ctx, "u-1", voice.SubmitFeedbackRequest{
			Command:   "help",
			Rating:    i + 3,
			Comment:   "comma, inside",
			SessionID: "s-1",
			Timestamp: day(d),
		})
		require.NoError(t, err)
	}

	blob, err := svc.ExportFeedback(ctx, voice.ExportFeedbackRequest{
		Format:  "csv",
		Filters: entity.ExportFilters{StartDate: "2026-03-02", EndDate: "2026-03-09"},
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", blob.ContentType)

	lines := strings.Split(strings.TrimSpace(string(blob.Data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,command"))
	assert.Contains(t, lines[1], `"comma, inside"`)

	blob, err = svc.ExportFeedback(ctx, voice.ExportFeedbackRequest{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", blob.ContentType)

	var records []entity.FeedbackRecord
	require.NoError(t, json.Unmarshal(blob.Data, &records))
	assert.Len(t, records, 3)

	_, err = svc.ExportFeedback(ctx, voice.ExportFeedbackRequest{
		Format:  "json",
		Filters: entity.ExportFilters{StartDate: "yesterday"},
	})
	assert.ErrorIs(t, err, voice.ErrInvalidDateRange)

	_, err = svc.ExportFeedback(ctx, voice.ExportFeedbackRequest{
		Format:  "json",
		Filters: entity.ExportFilters{StartDate: "2026-03-09", EndDate: "2026-03-01"},
	})
	assert.ErrorIs(t, err, voice.ErrInvalidDateRange)
}

func TestResolveFeedback(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.SubmitFeedback(ctx, "u-1", voice.SubmitFeedbackRequest{
		Command:   "open reprots",
		Rating:    1,
		SessionID: "s-1",
	})
	require.NoError(t, err)

	record, err := svc.ResolveFeedback(ctx, res.ID, "added typo mapping")
	require.NoError(t, err)
	assert.True(t, record.Resolved)
	assert.Equal(t, "added typo mapping", record.Resolution)
	assert.NotZero(t, record.ResolvedAt)

	_, err = svc.ResolveFeedback(ctx, "missing", "x")
	assert.ErrorIs(t, err, voice.ErrFeedbackNotFound)
}

func TestAssistantCommandFlowPersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	events, unsubscribe := svc.Subscribe(ctx, "u-1", 64)
	defer unsubscribe()

	first := <-events
	assert.Equal(t, assistant.EventState, first.Type)

	res, err := svc.Activate(ctx, "u-1", voice.ActivateRequest{CurrentPath: "/clients"})
	require.NoError(t, err)
	require.True(t, res.Activated)
	require.NotNil(t, res.Session)
	sessionID := res.Session.ID

	_, err = svc.Activate(ctx, "u-1", voice.ActivateRequest{})
	assert.ErrorIs(t, err, assistant.ErrSessionActive)

	require.NoError(t, svc.PushResult(ctx, "u-1", voice.RecognitionResultRequest{
		Transcript: "go to dashboard",
		Confidence: 0.95,
	}))

	require.Eventually(t, func() bool {
		return svc.State(ctx, "u-1").Session == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "/dashboard", svc.State(ctx, "u-1").CurrentPath)

	require.Eventually(t, func() bool {
		got, err := svc.FeedbackBySession(ctx, sessionID)
		return err == nil && got.Total == 1
	}, time.Second, 10*time.Millisecond)

	got, err := svc.FeedbackBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, got.Feedback[0].AutoGenerated)
	assert.Equal(t, 5, got.Feedback[0].Rating)
	assert.Equal(t, entity.FeedbackSuccess, got.Feedback[0].FeedbackType)

	require.Eventually(t, func() bool {
		history, err := svc.SessionHistory(ctx, "u-1", 1, 10)
		return err == nil && history.Total == 1 && !history.Sessions[0].Active
	}, time.Second, 10*time.Millisecond)

	history, err := svc.SessionHistory(ctx, "u-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, sessionID, history.Sessions[0].ID)
	assert.False(t, history.Sessions[0].Active)
	assert.Equal(t, assistant.ReasonCompleted, history.Sessions[0].EndReason)
	assert.Equal(t, 1, history.Sessions[0].Commands)

	analytics, err := svc.Analytics(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.Usage.TotalCommands)
	assert.Equal(t, 1, analytics.Feedback.TotalFeedback)
}

func TestActivateRejectedPreconditions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetPermission(ctx, "u-1", assistant.PermissionDenied)
	require.NoError(t, err)

	res, err := svc.Activate(ctx, "u-1", voice.ActivateRequest{})
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, assistant.ErrPermissionDenied.Error(), res.Message)

	_, err = svc.SetPermission(ctx, "u-1", assistant.PermissionGranted)
	require.NoError(t, err)
	svc.SetSupported(ctx, "u-1", false)

	res, err = svc.Activate(ctx, "u-1", voice.ActivateRequest{})
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, assistant.ErrUnavailable.Error(), res.Message)
}

func TestUsersAreIsolated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Activate(ctx, "u-1", voice.ActivateRequest{})
	require.NoError(t, err)
	require.True(t, res.Activated)

	assert.NotNil(t, svc.State(ctx, "u-1").Session)
	assert.Nil(t, svc.State(ctx, "u-2").Session)

	assert.False(t, svc.Deactivate(ctx, "u-2", "").Deactivated)
	assert.True(t, svc.Deactivate(ctx, "u-1", "").Deactivated)
}

func TestRecognizeAudio(t *testing.T) {
	ctx := context.Background()

	t.Run("no transcriber", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.RecognizeAudio(ctx, "u-1", audioHeader(t, "clip.webm", "audio/webm", []byte("x")))
		assert.ErrorIs(t, err, voice.ErrTranscriberMissing)
	})

	t.Run("rejects non audio", func(t *testing.T) {
		svc := newTestService(t, WithTranscriber(fakeTranscriber{}))
		_, err := svc.RecognizeAudio(ctx, "u-1", audioHeader(t, "photo.png", "image/png", []byte("x")))
		assert.ErrorIs(t, err, voice.ErrInvalidAudioFile)
	})

	t.Run("needs a listening session", func(t *testing.T) {
		svc := newTestService(t, WithTranscriber(fakeTranscriber{}))
		_, err := svc.RecognizeAudio(ctx, "u-1", audioHeader(t, "clip.webm", "audio/webm", []byte("x")))
		assert.ErrorIs(t, err, speech.ErrNotListening)
	})

	t.Run("pushes the transcript", func(t *testing.T) {
		svc := newTestService(t, WithTranscriber(fakeTranscriber{
			result: speech.RecognitionResult{Transcript: "help", Confidence: 0.7},
		}))
		_, err := svc.Activate(ctx, "u-1", voice.ActivateRequest{})
		require.NoError(t, err)
		require.True(t, svc.assistantFor("u-1").bridge.Listening())

		got, err := svc.RecognizeAudio(ctx, "u-1", audioHeader(t, "clip.webm", "audio/webm", []byte("audio")))
		require.NoError(t, err)
		assert.Equal(t, "help", got.Transcript)

		require.Eventually(t, func() bool {
			st := svc.State(ctx, "u-1")
			return st.Session == nil && st.LastCommand == "help"
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("transcription failure ends the session", func(t *testing.T) {
		svc := newTestService(t, WithTranscriber(fakeTranscriber{
			err: &speech.RecognitionError{Code: speech.CodeNetwork, Message: "upstream down"},
		}))
		_, err := svc.Activate(ctx, "u-1", voice.ActivateRequest{})
		require.NoError(t, err)
		require.True(t, svc.assistantFor("u-1").bridge.Listening())

		_, err = svc.RecognizeAudio(ctx, "u-1", audioHeader(t, "clip.webm", "audio/webm", []byte("audio")))
		assert.ErrorIs(t, err, voice.ErrRecognitionFailed)

		require.Eventually(t, func() bool {
			return svc.State(ctx, "u-1").Session == nil
		}, time.Second, 5*time.Millisecond)
	})
}

func TestSweepClosesIdleAssistants(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.State(ctx, "idle")
	_, unsubscribe := svc.Subscribe(ctx, "watched", 4)
	defer unsubscribe()
	_, err := svc.Activate(ctx, "busy", voice.ActivateRequest{})
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	svc.now = func() time.Time { return later }
	svc.sweep(ctx)

	svc.mu.Lock()
	_, idle := svc.assistants["idle"]
	_, watched := svc.assistants["watched"]
	_, busy := svc.assistants["busy"]
	svc.mu.Unlock()

	assert.False(t, idle)
	assert.True(t, watched)
	assert.True(t, busy)
}

func TestRunStopsWithContext(t *testing.T) {
	svc := newTestService(t)
	svc.config.SweepInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLocalRemoteReportsValidationAsStatus(t *testing.T) {
	svc := newTestService(t)
	remote := localRemote{s: svc, userID: "u-1"}

	_, err := remote.SubmitFeedback(context.Background(), entity.FeedbackSubmission{Command: "help"})
	require.Error(t, err)

	var statusErr *feedback.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.Status)
	assert.Equal(t, "Missing required fields: command, rating, sessionId", statusErr.Message)
}
