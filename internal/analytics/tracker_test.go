package analytics

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/kvstore"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Tracker, kvstore.Store, *time.Time) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := kvstore.NewMemory()
	tr := New(store, logger)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, store, &now
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	tr, store, now := newTracker(t)

	tr.TrackSessionStart(ctx, entity.VoiceSession{ID: "voice_session_1", Trigger: "manual"})
	tr.TrackCommand(ctx, entity.CommandEntry{Command: "go to dashboard", Action: "navigate:/dashboard", Success: true, Confidence: 0.9, ResponseTime: 120})
	tr.TrackFailure(ctx, entity.FailureEntry{Type: entity.FailureRecognition, Error: "no-speech"})

	*now = now.Add(4 * time.Second)
	tr.TrackSessionEnd(ctx, "voice_session_1", "timeout")
	// second end is ignored
	tr.TrackSessionEnd(ctx, "voice_session_1", "manual")

	cur, ok := tr.CurrentSession()
	require.True(t, ok)
	assert.False(t, cur.Active)
	assert.Equal(t, int64(4000), cur.Duration)
	assert.Equal(t, "timeout", cur.EndReason)
	assert.Equal(t, 1, cur.Commands)
	assert.Equal(t, 1, cur.Failures)

	var persisted Data
	found, err := kvstore.GetJSON(ctx, store, StorageKey, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, persisted.Sessions, 1)
	assert.Equal(t, "voice_session_1", persisted.Commands[0].SessionID)
	assert.Equal(t, "voice_session_1", persisted.Errors[0].SessionID)
}

func TestSessionEndWithoutStartIsNoop(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTracker(t)

	tr.TrackSessionEnd(ctx, "", "manual")
	data, err := tr.Data(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Sessions)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTracker(t)

	tr.TrackCommand(ctx, entity.CommandEntry{Command: "go to dashboard", Success: true, Confidence: 0.9, ResponseTime: 100})
	tr.TrackCommand(ctx, entity.CommandEntry{Command: "go to dashboard", Success: true, Confidence: 0.7, ResponseTime: 300})
	tr.TrackCommand(ctx, entity.CommandEntry{Command: "asdf", Success: false, Confidence: 0.5, ResponseTime: 200})
	tr.TrackFailure(ctx, entity.FailureEntry{Type: entity.FailureProcessing})
	tr.TrackFailure(ctx, entity.FailureEntry{Type: entity.FailureRecognition})
	tr.TrackFailure(ctx, entity.FailureEntry{Type: entity.FailureRecognition})

	s, err := tr.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalCommands)
	assert.Equal(t, 2, s.SuccessfulCommands)
	assert.Equal(t, 1, s.FailedCommands)
	assert.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
	assert.InDelta(t, 0.7, s.AverageConfidence, 1e-9)
	assert.InDelta(t, 200, s.AverageResponseTime, 1e-9)
	assert.Equal(t, 2, s.CommandFrequency["go to dashboard"])
	require.Len(t, s.MostCommonErrors, 2)
	assert.Equal(t, ErrorCount{Type: entity.FailureRecognition, Count: 2}, s.MostCommonErrors[0])
}

func TestCommandsAreCapped(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	for i := 0; i < MaxCommands+20; i++ {
		*now = now.Add(time.Millisecond)
		tr.TrackCommand(ctx, entity.CommandEntry{Command: "refresh", Success: true})
	}

	data, err := tr.Data(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Commands, MaxCommands)
}

func TestDetailedAndPeriod(t *testing.T) {
	ctx := context.Background()
	tr, _, now := newTracker(t)

	old := now.Add(-10 * 24 * time.Hour).UnixMilli()
	tr.TrackCommand(ctx, entity.CommandEntry{Command: "old", Timestamp: old})
	tr.TrackCommand(ctx, entity.CommandEntry{Command: "recent"})

	week, err := tr.ForPeriod(ctx, "week")
	require.NoError(t, err)
	require.Len(t, week.Commands, 1)
	assert.Equal(t, "recent", week.Commands[0].Command)
	assert.Equal(t, 2, week.Summary.TotalCommands)

	all, err := tr.ForPeriod(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all.Commands, 2)

	limited, err := tr.Detailed(ctx, DetailOptions{Limit: 1, ExcludeSessions: true})
	require.NoError(t, err)
	require.Len(t, limited.Commands, 1)
	assert.Equal(t, "recent", limited.Commands[0].Command)
	assert.Nil(t, limited.Sessions)
}

func TestExportImportClear(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTracker(t)

	tr.TrackCommand(ctx, entity.CommandEntry{Command: "go to clients", SessionID: "s1", Success: true, Confidence: 0.95, ResponseTime: 42})
	tr.TrackFailure(ctx, entity.FailureEntry{Type: entity.FailureProcessing, Error: "boom, again", SessionID: "s1"})

	raw, err := tr.Export(ctx, "csv")
	require.NoError(t, err)
	csv := string(raw)
	assert.True(t, strings.HasPrefix(csv, "COMMANDS\n"))
	assert.Contains(t, csv, "s1,go to clients,true,0.95,42")
	assert.Contains(t, csv, "ERRORS\n")
	assert.Contains(t, csv, `"boom, again"`)

	_, err = tr.Export(ctx, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	exported, err := tr.Export(ctx, "json")
	require.NoError(t, err)

	require.NoError(t, tr.Clear(ctx))
	s, err := tr.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.TotalCommands)

	var data Data
	require.NoError(t, json.Unmarshal(exported, &data))
	require.NoError(t, tr.Import(ctx, data))
	s, err = tr.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalCommands)
	assert.Equal(t, 1, s.TotalErrors)
}
