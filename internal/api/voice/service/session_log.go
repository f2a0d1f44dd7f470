package voiceService

import (
	"context"
	"sync"

	"NexaVoice/internal/analytics"
	voiceRepository "NexaVoice/internal/api/voice/repository"
	"NexaVoice/internal/entity"

	"github.com/sirupsen/logrus"
)

// sessionLog feeds the per-user tracker and mirrors session rows into the
// repository so history survives the in-memory assistant. Repository writes
// run in the background, one at a time and in call order.
type sessionLog struct {
	userID  string
	tracker *analytics.Tracker
	repo    voiceRepository.Repository
	log     *logrus.Logger

	mu   sync.Mutex
	last chan struct{}
	wg   sync.WaitGroup
}

func (l *sessionLog) TrackSessionStart(ctx context.Context, session entity.VoiceSession) {
	l.tracker.TrackSessionStart(ctx, session)

	session.UserID = l.userID
	l.persist(ctx, "CreateSession", func(c context.Context, client voiceRepository.Client) error {
		return client.Sessions.CreateSession(c, session)
	})
}

func (l *sessionLog) TrackSessionEnd(ctx context.Context, sessionID, reason string) {
	l.tracker.TrackSessionEnd(ctx, sessionID, reason)

	ended, ok := l.tracker.CurrentSession()
	if !ok || ended.ID != sessionID || ended.Active {
		ended = entity.VoiceSession{ID: sessionID, EndReason: reason}
	}
	l.persist(ctx, "EndSession", func(c context.Context, client voiceRepository.Client) error {
		return client.Sessions.EndSession(c, ended)
	})
}

func (l *sessionLog) TrackCommand(ctx context.Context, cmd entity.CommandEntry) {
	cmd.UserID = l.userID
	l.tracker.TrackCommand(ctx, cmd)
}

func (l *sessionLog) TrackFailure(ctx context.Context, failure entity.FailureEntry) {
	l.tracker.TrackFailure(ctx, failure)
}

func (l *sessionLog) persist(ctx context.Context, op string, fn func(context.Context, voiceRepository.Client) error) {
	if l.repo == nil {
		return
	}

	l.mu.Lock()
	prev := l.last
	done := make(chan struct{})
	l.last = done
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		l.write(context.WithoutCancel(ctx), op, fn)
	}()
}

func (l *sessionLog) write(ctx context.Context, op string, fn func(context.Context, voiceRepository.Client) error) {
	c, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	client, err := l.repo.NewClient(false)
	if err == nil {
		err = fn(c, client)
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"user_id":   l.userID,
			"operation": op,
			"error":     err.Error(),
		}).Warn("Failed to persist voice session")
	}
}

// Wait blocks until every queued repository write has finished.
func (l *sessionLog) Wait() {
	l.wg.Wait()
}
