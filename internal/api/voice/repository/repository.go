package voiceRepository

import (
	"NexaVoice/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
	Migrate(ctx context.Context) error
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Feedback: &feedbackRepository{q: sqlExecutor, log: r.log},
		Sessions: &sessionRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

// Migrate creates the voice tables when they do not exist yet.
func (r *repository) Migrate(ctx context.Context) error {
	for _, q := range []string{queryCreateFeedbackTable, queryCreateFeedbackSessionIndex, queryCreateSessionTable} {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			r.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("Failed to migrate voice tables")
			return err
		}
	}
	return nil
}

type RatingCount struct {
	Rating int `db:"rating"`
	Total  int `db:"total"`
}

type Client struct {
	Feedback interface {
		CreateFeedback(ctx context.Context, record entity.FeedbackRecord, userAgent string) error
		GetFeedbackByID(ctx context.Context, id string) (entity.FeedbackRecord, error)
		GetFeedbackBySession(ctx context.Context, sessionID string) ([]entity.FeedbackRecord, error)
		GetFeedbackBetween(ctx context.Context, start, end int64) ([]entity.FeedbackRecord, error)
		GetNegativeFeedback(ctx context.Context, limit int) ([]entity.FeedbackRecord, error)
		GetRatingDistribution(ctx context.Context) ([]RatingCount, error)
		CountFeedback(ctx context.Context) (int, error)
		ResolveFeedback(ctx context.Context, id, resolution string, resolvedAt int64) error
	}

	Sessions interface {
		CreateSession(ctx context.Context, session entity.VoiceSession) error
		EndSession(ctx context.Context, session entity.VoiceSession) error
		GetSessionsByUserID(ctx context.Context, userID string, limit, offset int) ([]entity.VoiceSession, int, error)
	}

	Commit   func() error
	Rollback func() error
}

type feedbackRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type sessionRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
