package voiceService

import (
	"context"
	"io"
	"testing"
	"time"

	"NexaVoice/internal/analytics"
	voiceRepository "NexaVoice/internal/api/voice/repository"
	"NexaVoice/internal/entity"
	"NexaVoice/pkg/kvstore"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// gatedRepo holds every NewClient call until the gate is opened.
type gatedRepo struct {
	voiceRepository.Repository
	gate chan struct{}
}

func (g *gatedRepo) NewClient(tx bool) (voiceRepository.Client, error) {
	<-g.gate
	return g.Repository.NewClient(tx)
}

func TestSessionLogDoesNotBlockOnRepository(t *testing.T) {
	ctx := context.Background()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := voiceRepository.New(db, logger)
	require.NoError(t, repo.Migrate(ctx))

	gated := &gatedRepo{Repository: repo, gate: make(chan struct{})}
	l := &sessionLog{
		userID:  "u-9",
		tracker: analytics.New(kvstore.NewMemory(), logger),
		repo:    gated,
		log:     logger,
	}

	started := time.Now()
	l.TrackSessionStart(ctx, entity.VoiceSession{
		ID:        "voice_session_9",
		Trigger:   "manual",
		StartedAt: started,
	})
	l.TrackSessionEnd(ctx, "voice_session_9", "timeout")
	assert.Less(t, time.Since(started), time.Second)

	close(gated.gate)
	l.Wait()

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	sessions, total, err := client.Sessions.GetSessionsByUserID(ctx, "u-9", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "voice_session_9", sessions[0].ID)
	assert.False(t, sessions[0].Active)
	assert.Equal(t, "timeout", sessions[0].EndReason)
}
