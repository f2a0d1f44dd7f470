package voiceRepository

import (
	"context"
	"database/sql"
	"errors"

	"NexaVoice/internal/api/voice"
	"NexaVoice/internal/entity"
	contextPkg "NexaVoice/pkg/context"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type FeedbackDB struct {
	ID             string          `db:"id"`
	UserID         sql.NullString  `db:"user_id"`
	Timestamp      int64           `db:"timestamp"`
	CommandID      sql.NullString  `db:"command_id"`
	Command        string          `db:"command"`
	Action         sql.NullString  `db:"action"`
	Rating         int             `db:"rating"`
	Confidence     sql.NullFloat64 `db:"confidence"`
	FeedbackType   sql.NullString  `db:"feedback_type"`
	Comment        sql.NullString  `db:"comment"`
	ExpectedAction sql.NullString  `db:"expected_action"`
	SessionID      string          `db:"session_id"`
	Context        sql.NullString  `db:"context"`
	Tags           sql.NullString  `db:"tags"`
	Resolved       bool            `db:"resolved"`
	Resolution     sql.NullString  `db:"resolution"`
	ResolvedAt     sql.NullInt64   `db:"resolved_at"`
	AutoGenerated  bool            `db:"auto_generated"`
}

func (r *feedbackRepository) CreateFeedback(ctx context.Context, record entity.FeedbackRecord, userAgent string) error {
	requestID := contextPkg.GetRequestID(ctx)

	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to marshal feedback context")
		return err
	}
	if record.Context == nil {
		contextJSON = []byte("{}")
	}

	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":              record.ID,
		"user_id":         record.UserID,
		"timestamp":       record.Timestamp,
		"command_id":      record.CommandID,
		"command":         record.Command,
		"action":          record.Action,
		"rating":          record.Rating,
		"confidence":      record.Confidence,
		"feedback_type":   string(record.FeedbackType),
		"comment":         record.Comment,
		"expected_action": record.ExpectedAction,
		"session_id":      record.SessionID,
		"context":         string(contextJSON),
		"tags":            string(tagsJSON),
		"resolved":        record.Resolved,
		"resolution":      record.Resolution,
		"resolved_at":     record.ResolvedAt,
		"auto_generated":  record.AutoGenerated,
		"user_agent":      userAgent,
	}

	query, args, err := sqlx.Named(queryCreateFeedback, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateFeedback")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating feedback")
		return err
	}

	return nil
}

func (r *feedbackRepository) GetFeedbackByID(ctx context.Context, id string) (entity.FeedbackRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row FeedbackDB

	query, args, err := sqlx.Named(queryGetFeedbackByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetFeedbackByID named query preparation err")
		return entity.FeedbackRecord{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"feedback_id": id,
			}).Warn("GetFeedbackByID no rows found")
			return entity.FeedbackRecord{}, voice.ErrFeedbackNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetFeedbackByID execution err")
		return entity.FeedbackRecord{}, err
	}

	return r.makeFeedback(row), nil
}

func (r *feedbackRepository) GetFeedbackBySession(ctx context.Context, sessionID string) ([]entity.FeedbackRecord, error) {
	return r.list(ctx, "GetFeedbackBySession", queryGetFeedbackBySession, map[string]interface{}{
		"session_id": sessionID,
	})
}

func (r *feedbackRepository) GetFeedbackBetween(ctx context.Context, start, end int64) ([]entity.FeedbackRecord, error) {
	return r.list(ctx, "GetFeedbackBetween", queryGetFeedbackBetween, map[string]interface{}{
		"start": start,
		"end":   end,
	})
}

func (r *feedbackRepository) GetNegativeFeedback(ctx context.Context, limit int) ([]entity.FeedbackRecord, error) {
	return r.list(ctx, "GetNegativeFeedback", queryGetNegativeFeedback, map[string]interface{}{
		"limit": limit,
	})
}

func (r *feedbackRepository) list(ctx context.Context, op, namedQuery string, argsKV map[string]interface{}) ([]entity.FeedbackRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []FeedbackDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"operation":  op,
			"error":      err.Error(),
		}).Error("Named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"operation":  op,
			"error":      err.Error(),
		}).Error("Query execution err")
		return nil, err
	}

	records := make([]entity.FeedbackRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, r.makeFeedback(row))
	}
	return records, nil
}

func (r *feedbackRepository) GetRatingDistribution(ctx context.Context) ([]RatingCount, error) {
	var counts []RatingCount
	if err := r.q.SelectContext(ctx, &counts, queryGetRatingDistribution); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("GetRatingDistribution execution err")
		return nil, err
	}
	return counts, nil
}

func (r *feedbackRepository) CountFeedback(ctx context.Context) (int, error) {
	var total int
	if err := r.q.GetContext(ctx, &total, queryCountFeedback); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("CountFeedback execution err")
		return 0, err
	}
	return total, nil
}

func (r *feedbackRepository) ResolveFeedback(ctx context.Context, id, resolution string, resolvedAt int64) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryResolveFeedback, map[string]interface{}{
		"id":          id,
		"resolved":    true,
		"resolution":  resolution,
		"resolved_at": resolvedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ResolveFeedback named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when resolving feedback")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return voice.ErrFeedbackNotFound
	}
	return nil
}

func (r *feedbackRepository) makeFeedback(row FeedbackDB) entity.FeedbackRecord {
	record := entity.FeedbackRecord{
		ID:             row.ID,
		UserID:         row.UserID.String,
		Timestamp:      row.Timestamp,
		CommandID:      row.CommandID.String,
		Command:        row.Command,
		Action:         row.Action.String,
		Rating:         row.Rating,
		Confidence:     row.Confidence.Float64,
		FeedbackType:   entity.FeedbackType(row.FeedbackType.String),
		Comment:        row.Comment.String,
		ExpectedAction: row.ExpectedAction.String,
		SessionID:      row.SessionID,
		Resolved:       row.Resolved,
		Resolution:     row.Resolution.String,
		ResolvedAt:     row.ResolvedAt.Int64,
		AutoGenerated:  row.AutoGenerated,
		Tags:           []string{},
	}

	if row.Context.Valid && row.Context.String != "" {
		if err := json.Unmarshal([]byte(row.Context.String), &record.Context); err != nil {
			r.log.WithFields(logrus.Fields{
				"feedback_id": row.ID,
				"error":       err.Error(),
			}).Warn("Failed to decode feedback context")
		}
	}
	if row.Tags.Valid && row.Tags.String != "" {
		if err := json.Unmarshal([]byte(row.Tags.String), &record.Tags); err != nil {
			r.log.WithFields(logrus.Fields{
				"feedback_id": row.ID,
				"error":       err.Error(),
			}).Warn("Failed to decode feedback tags")
		}
	}

	return record
}
