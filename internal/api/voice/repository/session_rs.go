package voiceRepository

import (
	"context"
	"time"

	"NexaVoice/internal/entity"
	contextPkg "NexaVoice/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type VoiceSessionDB struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Trigger     string `db:"trigger_type"`
	CurrentPath string `db:"current_path"`
	StartedAt   int64  `db:"started_at"`
	EndedAt     int64  `db:"ended_at"`
	EndReason   string `db:"end_reason"`
	Duration    int64  `db:"duration"`
	Commands    int    `db:"commands"`
	Failures    int    `db:"failures"`
}

func (r *sessionRepository) CreateSession(ctx context.Context, session entity.VoiceSession) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":           session.ID,
		"user_id":      session.UserID,
		"trigger_type": session.Trigger,
		"current_path": session.CurrentPath,
		"started_at":   session.StartedAt.UnixMilli(),
	}

	query, args, err := sqlx.Named(queryCreateSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Database error when creating session")
		return err
	}

	return nil
}

// EndSession closes a session row once; later calls leave it untouched.
func (r *sessionRepository) EndSession(ctx context.Context, session entity.VoiceSession) error {
	requestID := contextPkg.GetRequestID(ctx)

	endedAt := time.Now()
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}

	argsKV := map[string]interface{}{
		"id":         session.ID,
		"ended_at":   endedAt.UnixMilli(),
		"end_reason": session.EndReason,
		"duration":   session.Duration,
		"commands":   session.Commands,
		"failures":   session.Failures,
	}

	query, args, err := sqlx.Named(queryEndSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for EndSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Database error when ending session")
		return err
	}

	return nil
}

func (r *sessionRepository) GetSessionsByUserID(ctx context.Context, userID string, limit, offset int) ([]entity.VoiceSession, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []VoiceSessionDB
	var total int

	countQuery, countArgs, err := sqlx.Named(queryCountSessionsByUserID, map[string]interface{}{"user_id": userID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByUserID count query preparation err")
		return nil, 0, err
	}
	countQuery = r.q.Rebind(countQuery)

	if err := r.q.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByUserID count execution err")
		return nil, 0, err
	}

	query, args, err := sqlx.Named(queryGetSessionsByUserID, map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByUserID named query preparation err")
		return nil, 0, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByUserID execution err")
		return nil, 0, err
	}

	sessions := make([]entity.VoiceSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, makeSession(row))
	}
	return sessions, total, nil
}

func makeSession(row VoiceSessionDB) entity.VoiceSession {
	s := entity.VoiceSession{
		ID:          row.ID,
		UserID:      row.UserID,
		Trigger:     row.Trigger,
		CurrentPath: row.CurrentPath,
		StartedAt:   time.UnixMilli(row.StartedAt),
		EndReason:   row.EndReason,
		Duration:    row.Duration,
		Commands:    row.Commands,
		Failures:    row.Failures,
		Active:      row.EndedAt == 0,
	}
	if row.EndedAt != 0 {
		ended := time.UnixMilli(row.EndedAt)
		s.EndedAt = &ended
	}
	return s
}
