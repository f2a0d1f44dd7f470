package feedback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/kvstore"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newService(t *testing.T, remoteURL string) (*Service, kvstore.Store, *clock) {
	t.Helper()
	store := kvstore.NewMemory()

	var opts []Option
	if remoteURL != "" {
		opts = append(opts, WithRemote(NewClient(remoteURL)))
	}
	s := New(store, quietLogger(), opts...)

	c := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	s.now = c.now
	seq := 0
	s.newID = func(time.Time) (string, error) {
		seq++
		return fmt.Sprintf("id-%04d", seq), nil
	}
	return s, store, c
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestSubmitFeedbackSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/voice/feedback", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go to dashboard", body["command"])
		assert.NotZero(t, body["timestamp"])
		assert.Equal(t, DefaultUserAgent, body["userAgent"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"feedback-123","status":"submitted","message":"Feedback received successfully"}`))
	}))
	defer srv.Close()

	s, _, _ := newService(t, srv.URL)
	res := s.SubmitFeedback(context.Background(), entity.FeedbackSubmission{
		Command:    "go to dashboard",
		Rating:     5,
		Comment:    "Worked perfectly!",
		Confidence: 0.9,
		SessionID:  "session-123",
		Context:    map[string]interface{}{"currentPath": "/dashboard"},
	})

	assert.Equal(t, Result{
		Success: true,
		Data: map[string]interface{}{
			"id":      "feedback-123",
			"status":  "submitted",
			"message": "Feedback received successfully",
		},
	}, res)
}

func TestSubmitFeedbackServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Database connection failed"}`))
	}))
	defer srv.Close()

	s, _, _ := newService(t, srv.URL)
	res := s.SubmitFeedback(context.Background(), entity.FeedbackSubmission{Command: "test command", Rating: 3, SessionID: "session-123"})

	assert.Equal(t, Result{Error: "Database connection failed", Status: 500}, res)
	assert.Zero(t, s.QueuedFeedbackCount(context.Background()))
}

func TestSubmitFeedbackOfflineQueues(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t, deadURL(t))

	res := s.SubmitFeedback(ctx, entity.FeedbackSubmission{Command: "test command", Rating: 4, Confidence: 0.8, SessionID: "session-123"})
	assert.False(t, res.Success)
	assert.True(t, res.Offline)
	assert.NotEmpty(t, res.Error)

	queue, err := s.OfflineQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "test command", queue[0].Command)
	assert.Equal(t, 4, queue[0].Rating)
	assert.Equal(t, "session-123", queue[0].SessionID)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	s, _, _ := newService(t, srv.URL)
	ctx := context.Background()

	res := s.SubmitFeedback(ctx, entity.FeedbackSubmission{Comment: "Test comment"})
	assert.Equal(t, Result{Error: "Missing required fields: command, rating, sessionId"}, res)

	for _, rating := range []int{6, -1} {
		res = s.SubmitFeedback(ctx, entity.FeedbackSubmission{Command: "test command", Rating: rating, SessionID: "session-123"})
		assert.Equal(t, Result{Error: "Rating must be between 1 and 5"}, res)
	}

	assert.Zero(t, calls.Load())
	assert.Zero(t, s.QueuedFeedbackCount(ctx))
}

func seedQueue(t *testing.T, store kvstore.Store, items ...entity.FeedbackSubmission) {
	t.Helper()
	require.NoError(t, kvstore.SetJSON(context.Background(), store, QueueKey, items))
}

func TestSyncQueuedFeedback(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	s, store, _ := newService(t, srv.URL)
	seedQueue(t, store,
		entity.FeedbackSubmission{Command: "queued command 1", Rating: 4, SessionID: "session-1"},
		entity.FeedbackSubmission{Command: "queued command 2", Rating: 5, SessionID: "session-2"},
	)
	assert.Equal(t, 2, s.QueuedFeedbackCount(ctx))

	res, err := s.SyncQueuedFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Success: true, Synced: 2, Failed: 0}, res)
	assert.Equal(t, int32(2), calls.Load())

	_, err = store.Get(ctx, QueueKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	assert.Zero(t, s.QueuedFeedbackCount(ctx))
}

func TestSyncQueuedFeedbackPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if strings.Contains(string(raw), `"cmd2"`) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Server error"}`))
			return
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	s, store, _ := newService(t, srv.URL)
	seedQueue(t, store,
		entity.FeedbackSubmission{Command: "cmd1", Rating: 4, SessionID: "session-1"},
		entity.FeedbackSubmission{Command: "cmd2", Rating: 5, SessionID: "session-2"},
	)

	res, err := s.SyncQueuedFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Success: false, Synced: 1, Failed: 1}, res)

	queue, err := s.OfflineQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "cmd2", queue[0].Command)
}

func TestCollectFeedbackOfflineThenSync(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	offline := New(store, quietLogger(), WithRemote(NewClient(deadURL(t))))
	rec, err := offline.CollectFeedback(ctx, entity.FeedbackInput{
		Command:      "go to dashboard",
		Action:       "navigate:/dashboard",
		Rating:       5,
		FeedbackType: entity.FeedbackSuccess,
		SessionID:    "voice_session_1",
	})
	require.NoError(t, err)
	offline.Wait()

	assert.Equal(t, 1, offline.QueuedFeedbackCount(ctx))
	stored, err := offline.Feedback(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].ID)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	online := New(store, quietLogger(), WithRemote(NewClient(srv.URL)))
	res, err := online.SyncQueuedFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Success: true, Synced: 1}, res)
	assert.Zero(t, online.QueuedFeedbackCount(ctx))
}

func TestCollectFeedbackRequiresCommand(t *testing.T) {
	s, _, _ := newService(t, "")
	_, err := s.CollectFeedback(context.Background(), entity.FeedbackInput{Command: "  ", Rating: 5})
	assert.ErrorIs(t, err, ErrMissingCommand)

	_, err = s.CollectFeedback(context.Background(), entity.FeedbackInput{Command: "refresh", Rating: 9})
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestCollectFeedbackTags(t *testing.T) {
	s, _, _ := newService(t, "")
	ctx := context.Background()

	low, err := s.CollectFeedback(ctx, entity.FeedbackInput{
		Command:        "open invoices",
		Rating:         1,
		Comment:        strings.Repeat("it went to the wrong page again ", 2),
		ExpectedAction: "navigate:/invoices",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"low-rating", "detailed-feedback", "has-expectation"}, low.Tags)
	assert.Equal(t, entity.FeedbackNegative, low.FeedbackType)

	auto, err := s.CollectFeedback(ctx, entity.FeedbackInput{Command: "go to clients", Rating: 5, FeedbackType: entity.FeedbackSuccess, AutoGenerated: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"high-rating", "auto-generated"}, auto.Tags)
	assert.False(t, auto.Resolved)
}

func TestFeedbackCapEvictsOldest(t *testing.T) {
	s, store, c := newService(t, "")
	ctx := context.Background()

	for i := 0; i < MaxFeedback+5; i++ {
		c.advance(time.Millisecond)
		_, err := s.CollectFeedback(ctx, entity.FeedbackInput{Command: fmt.Sprintf("cmd %d", i)})
		require.NoError(t, err)
	}

	var persisted []entity.FeedbackRecord
	_, err := kvstore.GetJSON(ctx, store, FeedbackKey, &persisted)
	require.NoError(t, err)
	require.Len(t, persisted, MaxFeedback)
	assert.Equal(t, "cmd 5", persisted[0].Command)
	assert.Equal(t, fmt.Sprintf("cmd %d", MaxFeedback+4), persisted[len(persisted)-1].Command)
}

func TestFeedbackCapKeepsNewestWithinSameMillisecond(t *testing.T) {
	s, store, _ := newService(t, "")
	ctx := context.Background()

	var last entity.FeedbackRecord
	for i := 0; i < MaxFeedback+1; i++ {
		rec, err := s.CollectFeedback(ctx, entity.FeedbackInput{Command: fmt.Sprintf("cmd %d", i)})
		require.NoError(t, err)
		last = rec
	}

	var persisted []entity.FeedbackRecord
	_, err := kvstore.GetJSON(ctx, store, FeedbackKey, &persisted)
	require.NoError(t, err)
	require.Len(t, persisted, MaxFeedback)
	assert.Equal(t, "cmd 1", persisted[0].Command)
	assert.Equal(t, last.ID, persisted[len(persisted)-1].ID)
}

func TestSuggestionCapEvictsOldest(t *testing.T) {
	s, _, c := newService(t, "")
	ctx := context.Background()

	for i := 0; i < MaxSuggestions+1; i++ {
		c.advance(time.Millisecond)
		_, err := s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: fmt.Sprintf("open report %d", i)})
		require.NoError(t, err)
	}

	all, err := s.Suggestions(ctx, SuggestionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, MaxSuggestions)
	for _, sg := range all {
		assert.NotEqual(t, "open report 0", sg.SuggestedCommand)
	}
}

func TestSuggestionDefaultsAndVotes(t *testing.T) {
	s, _, _ := newService(t, "")
	ctx := context.Background()

	sg, err := s.SubmitSuggestion(ctx, entity.SuggestionInput{
		SuggestedCommand: "show overdue invoices",
		ExpectedAction:   "navigate:/invoices?status=overdue",
		Category:         "navigation",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, sg.Priority)
	assert.Equal(t, entity.SuggestionPending, sg.Status)
	assert.Zero(t, sg.Votes)
	assert.Empty(t, sg.Tags)

	up, err := s.VoteOnSuggestion(ctx, sg.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, up.Votes)
	down, err := s.VoteOnSuggestion(ctx, sg.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, down.Votes)

	// no floor
	down, err = s.VoteOnSuggestion(ctx, sg.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, down.Votes)
	assert.NotZero(t, down.LastVoted)

	_, err = s.VoteOnSuggestion(ctx, sg.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidVote)
	_, err = s.VoteOnSuggestion(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)

	_, err = s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "x", Priority: 7})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	hp, err := s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "y", Priority: 5, Description: strings.Repeat("d", 101)})
	require.NoError(t, err)
	assert.Equal(t, []string{"high-priority", "detailed-suggestion"}, hp.Tags)
}

func TestSuggestionStatusAndOrdering(t *testing.T) {
	s, _, c := newService(t, "")
	ctx := context.Background()

	a, _ := s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "a", Category: "navigation"})
	c.advance(time.Second)
	b, _ := s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "b", Category: "document"})
	c.advance(time.Second)
	cc, _ := s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "c", Category: "navigation"})

	_, err := s.VoteOnSuggestion(ctx, a.ID, 1)
	require.NoError(t, err)

	all, err := s.Suggestions(ctx, SuggestionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a.ID, cc.ID, b.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	updated, err := s.UpdateSuggestionStatus(ctx, b.ID, entity.SuggestionImplemented, "shipped")
	require.NoError(t, err)
	assert.Equal(t, "shipped", updated.StatusNotes)
	assert.NotZero(t, updated.StatusUpdatedAt)

	_, err = s.UpdateSuggestionStatus(ctx, b.ID, "done", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	nav, err := s.Suggestions(ctx, SuggestionFilter{Category: "navigation"})
	require.NoError(t, err)
	assert.Len(t, nav, 2)
	impl, err := s.Suggestions(ctx, SuggestionFilter{Status: entity.SuggestionImplemented})
	require.NoError(t, err)
	require.Len(t, impl, 1)
	assert.Equal(t, b.ID, impl[0].ID)
}

func TestFeedbackFiltersAndResolve(t *testing.T) {
	s, _, c := newService(t, "")
	ctx := context.Background()

	first, _ := s.CollectFeedback(ctx, entity.FeedbackInput{Command: "a", Rating: 5, FeedbackType: entity.FeedbackSuccess})
	c.advance(time.Hour)
	second, _ := s.CollectFeedback(ctx, entity.FeedbackInput{Command: "b", Rating: 1, FeedbackType: entity.FeedbackError})

	all, err := s.Feedback(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	errs, err := s.Feedback(ctx, Filter{Type: entity.FeedbackError})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "b", errs[0].Command)

	early, err := s.Feedback(ctx, Filter{End: c.t.Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, first.ID, early[0].ID)

	resolved, err := s.ResolveFeedback(ctx, second.ID, "grammar extended")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "grammar extended", resolved.Resolution)

	yes := true
	done, err := s.Feedback(ctx, Filter{Resolved: &yes})
	require.NoError(t, err)
	require.Len(t, done, 1)

	_, err = s.ResolveFeedback(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestExportImportClear(t *testing.T) {
	s, _, _ := newService(t, "")
	ctx := context.Background()

	_, err := s.CollectFeedback(ctx, entity.FeedbackInput{Command: "refresh", Rating: 4})
	require.NoError(t, err)
	_, err = s.SubmitSuggestion(ctx, entity.SuggestionInput{SuggestedCommand: "reload page"})
	require.NoError(t, err)

	exp, err := s.ExportData(ctx)
	require.NoError(t, err)
	assert.Len(t, exp.Feedback, 1)
	assert.Len(t, exp.Suggestions, 1)
	assert.NotZero(t, exp.ExportedAt)

	require.NoError(t, s.ClearAllData(ctx))
	a, err := s.Analytics(ctx)
	require.NoError(t, err)
	assert.Zero(t, a.TotalFeedback)

	require.NoError(t, s.ImportData(ctx, exp))
	a, err = s.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalFeedback)
	assert.Equal(t, 1, a.TotalSuggestions)
}

func TestRemoteReads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/voice/feedback/session/session-123":
			w.Write([]byte(`{"feedback":[{"id":"feedback-1","command":"test command","rating":5,"sessionId":"session-123"}],"total":1}`))
		case r.URL.Path == "/api/voice/feedback/analytics":
			w.Write([]byte(`{"averageRating":4.2,"totalFeedback":150,"ratingDistribution":{"1":5,"2":10,"3":25,"4":60,"5":50},"commonIssues":["Recognition accuracy","Response time"]}`))
		case r.URL.Path == "/api/voice/suggestions":
			assert.Equal(t, "command=go%20dashbord", r.URL.RawQuery)
			w.Write([]byte(`{"suggestions":[{"original":"go dashbord","suggested":"go to dashboard","confidence":0.9,"category":"navigation"}]}`))
		case r.URL.Path == "/api/voice/feedback/export":
			var req entity.ExportRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, entity.ExportRequest{Format: "csv", Filters: entity.ExportFilters{StartDate: "2024-01-01", EndDate: "2024-01-31"}}, req)
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("feedback data"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s, _, _ := newService(t, srv.URL)
	ctx := context.Background()

	sess, err := s.FeedbackBySession(ctx, "session-123")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Total)
	require.Len(t, sess.Feedback, 1)
	assert.Equal(t, "feedback-1", sess.Feedback[0].ID)

	an, err := s.RemoteAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.2, an.AverageRating)
	assert.Equal(t, 60, an.RatingDistribution["4"])
	assert.Len(t, an.CommonIssues, 2)

	sugg, err := s.CommandSuggestions(ctx, "go dashbord")
	require.NoError(t, err)
	require.Len(t, sugg, 1)
	assert.Equal(t, "go to dashboard", sugg[0].Suggested)

	blob, err := s.ExportFeedback(ctx, "csv", entity.ExportFilters{StartDate: "2024-01-01", EndDate: "2024-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", blob.ContentType)
	assert.Equal(t, "feedback data", string(blob.Data))
}

func TestRemoteDisabled(t *testing.T) {
	s, _, _ := newService(t, "")
	ctx := context.Background()

	_, err := s.SyncQueuedFeedback(ctx)
	assert.ErrorIs(t, err, ErrRemoteDisabled)

	res := s.SubmitFeedback(ctx, entity.FeedbackSubmission{Command: "refresh", Rating: 4, SessionID: "s"})
	assert.True(t, res.Offline)
	assert.Equal(t, 1, s.QueuedFeedbackCount(ctx))
}
