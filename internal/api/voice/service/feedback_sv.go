package voiceService

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"NexaVoice/internal/api/voice"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
	contextPkg "NexaVoice/pkg/context"
	"NexaVoice/pkg/response"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	statusSubmitted  = "submitted"
	msgSubmitted     = "Feedback received successfully"
	contentTypeCSV   = "text/csv"
	contentTypeJSON  = "application/json"
	exportDateLayout = "2006-01-02"
)

var exportHeader = []string{
	"id", "timestamp", "command", "action", "rating", "feedbackType",
	"comment", "expectedAction", "sessionId", "resolved", "tags",
}

func (s *voiceService) SubmitFeedback(ctx context.Context, userID string, req voice.SubmitFeedbackRequest) (voice.SubmitFeedbackResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if strings.TrimSpace(req.Command) == "" || req.Rating == 0 || req.SessionID == "" {
		return voice.SubmitFeedbackResponse{}, voice.ErrMissingFields
	}
	if req.Rating < 1 || req.Rating > 5 {
		return voice.SubmitFeedbackResponse{}, voice.ErrInvalidRating
	}

	now := s.now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate feedback id")
		return voice.SubmitFeedbackResponse{}, err
	}

	record := entity.FeedbackRecord{
		ID:             id,
		UserID:         userID,
		Timestamp:      req.Timestamp,
		Command:        req.Command,
		Action:         req.Action,
		Rating:         req.Rating,
		Confidence:     req.Confidence,
		FeedbackType:   req.FeedbackType,
		Comment:        req.Comment,
		ExpectedAction: req.ExpectedAction,
		SessionID:      req.SessionID,
		Context:        req.Context,
		AutoGenerated:  req.AutoGenerated,
	}
	if record.Timestamp == 0 {
		record.Timestamp = now.UnixMilli()
	}
	if record.FeedbackType == "" {
		record.FeedbackType = feedback.DefaultFeedbackType(record.Rating)
	}
	record.Tags = feedback.FeedbackTags(record)

	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return voice.SubmitFeedbackResponse{}, err
	}

	if err := repo.Feedback.CreateFeedback(ctx, record, req.UserAgent); err != nil {
		return voice.SubmitFeedbackResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"feedback_id":    record.ID,
		"session_id":     record.SessionID,
		"rating":         record.Rating,
		"auto_generated": record.AutoGenerated,
	}).Info("Feedback submitted")

	return voice.SubmitFeedbackResponse{
		ID:      record.ID,
		Status:  statusSubmitted,
		Message: msgSubmitted,
	}, nil
}

func (s *voiceService) FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error) {
	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return entity.SessionFeedback{}, err
	}

	records, err := repo.Feedback.GetFeedbackBySession(ctx, sessionID)
	if err != nil {
		return entity.SessionFeedback{}, err
	}

	return entity.SessionFeedback{Feedback: records, Total: len(records)}, nil
}

// FeedbackAnalytics aggregates every stored rating. The distribution always
// carries the keys "1" through "5".
func (s *voiceService) FeedbackAnalytics(ctx context.Context) (entity.FeedbackAnalytics, error) {
	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return entity.FeedbackAnalytics{}, err
	}

	counts, err := repo.Feedback.GetRatingDistribution(ctx)
	if err != nil {
		return entity.FeedbackAnalytics{}, err
	}

	result := entity.FeedbackAnalytics{
		RatingDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
		CommonIssues:       []string{},
	}

	sum := 0
	for _, c := range counts {
		result.RatingDistribution[strconv.Itoa(c.Rating)] += c.Total
		result.TotalFeedback += c.Total
		sum += c.Rating * c.Total
	}
	if result.TotalFeedback > 0 {
		avg := float64(sum) / float64(result.TotalFeedback)
		result.AverageRating = math.Round(avg*100) / 100
	}

	negative, err := repo.Feedback.GetNegativeFeedback(ctx, negativeSampleSize)
	if err != nil {
		return entity.FeedbackAnalytics{}, err
	}
	result.CommonIssues = feedback.ExtractCommonIssues(negative)

	return result, nil
}

// CommandSuggestions proposes grammar phrases close to a failed command.
func (s *voiceService) CommandSuggestions(ctx context.Context, command string) (voice.SuggestionsResponse, error) {
	out := voice.SuggestionsResponse{Suggestions: []entity.CommandSuggestion{}}

	command = strings.TrimSpace(command)
	if command == "" {
		return out, nil
	}

	for _, sg := range s.processor.Suggest(command, suggestionLimit) {
		out.Suggestions = append(out.Suggestions, entity.CommandSuggestion{
			Original:   sg.Original,
			Suggested:  sg.Suggested,
			Confidence: sg.Confidence,
			Category:   string(sg.Category),
		})
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"command":    command,
		"count":      len(out.Suggestions),
	}).Debug("Command suggestions computed")

	return out, nil
}

func (s *voiceService) ExportFeedback(ctx context.Context, req voice.ExportFeedbackRequest) (feedback.Blob, error) {
	requestID := contextPkg.GetRequestID(ctx)

	start, end, err := exportRange(req.Filters, s.now())
	if err != nil {
		return feedback.Blob{}, err
	}

	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return feedback.Blob{}, err
	}

	records, err := repo.Feedback.GetFeedbackBetween(ctx, start, end)
	if err != nil {
		return feedback.Blob{}, err
	}

	var blob feedback.Blob
	switch req.Format {
	case "csv":
		blob.ContentType = contentTypeCSV
		blob.Data, err = feedbackCSV(records)
	default:
		blob.ContentType = contentTypeJSON
		blob.Data, err = json.Marshal(records)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"format":     req.Format,
			"error":      err.Error(),
		}).Error("Failed to encode feedback export")
		return feedback.Blob{}, voice.ErrExportFailed
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"format":     req.Format,
		"records":    len(records),
	}).Info("Feedback exported")

	return blob, nil
}

// exportRange turns the optional date filters into inclusive unix-ms bounds.
// A bare date as end date covers the whole day.
func exportRange(filters entity.ExportFilters, now time.Time) (int64, int64, error) {
	start := int64(0)
	end := now.UnixMilli()

	if filters.StartDate != "" {
		t, _, err := parseExportDate(filters.StartDate)
		if err != nil {
			return 0, 0, voice.ErrInvalidDateRange
		}
		start = t.UnixMilli()
	}
	if filters.EndDate != "" {
		t, dateOnly, err := parseExportDate(filters.EndDate)
		if err != nil {
			return 0, 0, voice.ErrInvalidDateRange
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		end = t.UnixMilli()
	}
	if start > end {
		return 0, 0, voice.ErrInvalidDateRange
	}
	return start, end, nil
}

func parseExportDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(exportDateLayout, v)
	return t, true, err
}

func feedbackCSV(records []entity.FeedbackRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
			r.Command,
			r.Action,
			strconv.Itoa(r.Rating),
			string(r.FeedbackType),
			r.Comment,
			r.ExpectedAction,
			r.SessionID,
			strconv.FormatBool(r.Resolved),
			strings.Join(r.Tags, ";"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *voiceService) ResolveFeedback(ctx context.Context, id, resolution string) (entity.FeedbackRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.voiceRepo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.FeedbackRecord{}, err
	}
	defer repo.Rollback()

	if err := repo.Feedback.ResolveFeedback(ctx, id, resolution, s.now().UnixMilli()); err != nil {
		return entity.FeedbackRecord{}, err
	}

	record, err := repo.Feedback.GetFeedbackByID(ctx, id)
	if err != nil {
		return entity.FeedbackRecord{}, err
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit feedback resolution")
		return entity.FeedbackRecord{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"feedback_id": id,
		"resolved_by": contextPkg.GetUserID(ctx),
	}).Info("Feedback resolved")

	return record, nil
}

// localRemote delivers a user's feedback straight into this service's
// repository. Validation failures come back as *feedback.StatusError so the
// sink reports them instead of queueing.
type localRemote struct {
	s      *voiceService
	userID string
}

func (r localRemote) SubmitFeedback(ctx context.Context, sub entity.FeedbackSubmission) (map[string]interface{}, error) {
	res, err := r.s.SubmitFeedback(ctx, r.userID, voice.SubmitFeedbackRequest{
		Command:        sub.Command,
		Action:         sub.Action,
		Rating:         sub.Rating,
		Comment:        sub.Comment,
		ExpectedAction: sub.ExpectedAction,
		FeedbackType:   sub.FeedbackType,
		Confidence:     sub.Confidence,
		SessionID:      sub.SessionID,
		Context:        sub.Context,
		Timestamp:      sub.Timestamp,
		UserAgent:      sub.UserAgent,
		AutoGenerated:  sub.AutoGenerated,
	})
	if err != nil {
		var respErr *response.Error
		if errors.As(err, &respErr) {
			return nil, &feedback.StatusError{Status: respErr.Status, Message: respErr.Err.Error()}
		}
		return nil, err
	}
	return map[string]interface{}{
		"id":      res.ID,
		"status":  res.Status,
		"message": res.Message,
	}, nil
}

func (r localRemote) FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error) {
	return r.s.FeedbackBySession(ctx, sessionID)
}

func (r localRemote) Analytics(ctx context.Context) (entity.FeedbackAnalytics, error) {
	return r.s.FeedbackAnalytics(ctx)
}

func (r localRemote) CommandSuggestions(ctx context.Context, command string) ([]entity.CommandSuggestion, error) {
	out, err := r.s.CommandSuggestions(ctx, command)
	return out.Suggestions, err
}

func (r localRemote) Export(ctx context.Context, req entity.ExportRequest) (feedback.Blob, error) {
	return r.s.ExportFeedback(ctx, voice.ExportFeedbackRequest{Format: req.Format, Filters: req.Filters})
}
