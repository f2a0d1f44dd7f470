package feedback

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/bounded"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/utils"

	"github.com/sirupsen/logrus"
)

const (
	FeedbackKey    = "voice_feedback_data"
	SuggestionsKey = "voice_command_suggestions"
	QueueKey       = "voice_feedback_queue"

	MaxFeedback    = 1000
	MaxSuggestions = 500

	DefaultPriority = 3

	deliveryTimeout = 15 * time.Second
)

var (
	ErrMissingCommand     = errors.New("command is required")
	ErrMissingSuggestion  = errors.New("suggested command is required")
	ErrInvalidPriority    = errors.New("priority must be between 1 and 5")
	ErrInvalidVote        = errors.New("vote must be +1 or -1")
	ErrInvalidStatus      = errors.New("invalid suggestion status")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrFeedbackNotFound   = errors.New("Feedback not found")
	ErrSuggestionNotFound = errors.New("Suggestion not found")
	ErrRemoteDisabled     = errors.New("remote feedback endpoint not configured")
)

const (
	msgMissingFields = "Missing required fields: command, rating, sessionId"
	msgRatingRange   = "Rating must be between 1 and 5"
)

// Remote is the feedback API as seen by the sink. *Client implements it.
type Remote interface {
	SubmitFeedback(ctx context.Context, sub entity.FeedbackSubmission) (map[string]interface{}, error)
	FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error)
	Analytics(ctx context.Context) (entity.FeedbackAnalytics, error)
	CommandSuggestions(ctx context.Context, command string) ([]entity.CommandSuggestion, error)
	Export(ctx context.Context, req entity.ExportRequest) (Blob, error)
}

// Result reports a remote submission. Failures are reported here instead of
// as errors; Offline marks items that were queued for a later sync.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Status  int                    `json:"status,omitempty"`
	Offline bool                   `json:"offline,omitempty"`
}

type SyncResult struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
	Failed  int  `json:"failed"`
}

type Filter struct {
	Type     entity.FeedbackType
	Rating   int
	Start    time.Time
	End      time.Time
	Resolved *bool
}

type SuggestionFilter struct {
	Category string
	Status   entity.SuggestionStatus
	Priority int
}

// Export is the full local dataset.
type Export struct {
	Feedback    []entity.FeedbackRecord `json:"feedback"`
	Suggestions []entity.Suggestion     `json:"suggestions"`
	ExportedAt  int64                   `json:"exportedAt"`
}

type Option func(*Service)

func WithRemote(r Remote) Option {
	return func(s *Service) {
		s.remote = r
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Service) {
		s.userAgent = ua
	}
}

// Service is the feedback sink: capped local lists of feedback and
// suggestions, best-effort remote delivery and an offline retry queue.
type Service struct {
	store     kvstore.Store
	remote    Remote
	logger    *logrus.Logger
	userAgent string
	now       func() time.Time
	newID     func(time.Time) (string, error)

	mu          sync.Mutex
	loaded      bool
	feedback    *bounded.List[entity.FeedbackRecord]
	suggestions *bounded.List[entity.Suggestion]

	queueMu sync.Mutex
	pending sync.WaitGroup
}

func New(store kvstore.Store, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    logger,
		userAgent: DefaultUserAgent,
		now:       time.Now,
		newID:     utils.New().NewULIDFromTimestamp,
	}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) reset() {
	s.feedback = bounded.New(MaxFeedback, func(f entity.FeedbackRecord) int64 { return f.Timestamp })
	s.suggestions = bounded.New(MaxSuggestions, func(sg entity.Suggestion) int64 { return sg.Timestamp })
}

func (s *Service) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	var feedback []entity.FeedbackRecord
	if _, err := kvstore.GetJSON(ctx, s.store, FeedbackKey, &feedback); err != nil {
		return err
	}
	var suggestions []entity.Suggestion
	if _, err := kvstore.GetJSON(ctx, s.store, SuggestionsKey, &suggestions); err != nil {
		return err
	}

	s.feedback.Replace(feedback)
	s.suggestions.Replace(suggestions)
	s.loaded = true
	return nil
}

func (s *Service) saveFeedback(ctx context.Context) error {
	return kvstore.SetJSON(ctx, s.store, FeedbackKey, s.feedback.Items())
}

func (s *Service) saveSuggestions(ctx context.Context) error {
	return kvstore.SetJSON(ctx, s.store, SuggestionsKey, s.suggestions.Items())
}

// CollectFeedback stores a record locally and, when a remote is configured
// and the record is complete, delivers it in the background.
func (s *Service) CollectFeedback(ctx context.Context, in entity.FeedbackInput) (entity.FeedbackRecord, error) {
	if strings.TrimSpace(in.Command) == "" {
		return entity.FeedbackRecord{}, ErrMissingCommand
	}
	if in.Rating != 0 && (in.Rating < 1 || in.Rating > 5) {
		return entity.FeedbackRecord{}, ErrInvalidRating
	}

	now := s.now()
	id, err := s.newID(now)
	if err != nil {
		return entity.FeedbackRecord{}, err
	}

	record := entity.FeedbackRecord{
		ID:             id,
		Timestamp:      now.UnixMilli(),
		CommandID:      in.CommandID,
		Command:        in.Command,
		Action:         in.Action,
		Rating:         in.Rating,
		Confidence:     in.Confidence,
		FeedbackType:   in.FeedbackType,
		Comment:        in.Comment,
		ExpectedAction: in.ExpectedAction,
		SessionID:      in.SessionID,
		Context:        in.Context,
		AutoGenerated:  in.AutoGenerated,
	}
	if record.FeedbackType == "" {
		record.FeedbackType = DefaultFeedbackType(record.Rating)
	}
	record.Tags = FeedbackTags(record)

	s.mu.Lock()
	if err := s.load(ctx); err != nil {
		s.mu.Unlock()
		return entity.FeedbackRecord{}, err
	}
	s.feedback.Add(record)
	err = s.saveFeedback(ctx)
	s.mu.Unlock()
	if err != nil {
		return entity.FeedbackRecord{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id":    record.ID,
		"session_id":     record.SessionID,
		"feedback_type":  record.FeedbackType,
		"auto_generated": record.AutoGenerated,
	}).Info("Voice feedback collected")

	if s.remote != nil && record.Rating > 0 && record.SessionID != "" {
		s.deliver(ctx, record)
	}

	return record, nil
}

func (s *Service) deliver(ctx context.Context, record entity.FeedbackRecord) {
	sub := entity.FeedbackSubmission{
		Command:        record.Command,
		Action:         record.Action,
		Rating:         record.Rating,
		Comment:        record.Comment,
		ExpectedAction: record.ExpectedAction,
		FeedbackType:   record.FeedbackType,
		Confidence:     record.Confidence,
		SessionID:      record.SessionID,
		Context:        record.Context,
		Timestamp:      record.Timestamp,
		AutoGenerated:  record.AutoGenerated,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()

		res := s.SubmitFeedback(c, sub)
		if !res.Success {
			s.logger.WithFields(logrus.Fields{
				"feedback_id": record.ID,
				"offline":     res.Offline,
				"error":       res.Error,
			}).Warn("Background feedback delivery failed")
		}
	}()
}

// Wait blocks until every background delivery has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// SubmitFeedback validates and posts one submission. Transport failures
// queue the submission and report Offline.
func (s *Service) SubmitFeedback(ctx context.Context, sub entity.FeedbackSubmission) Result {
	if strings.TrimSpace(sub.Command) == "" || sub.Rating == 0 || sub.SessionID == "" {
		return Result{Error: msgMissingFields}
	}
	if sub.Rating < 1 || sub.Rating > 5 {
		return Result{Error: msgRatingRange}
	}
	if sub.Timestamp == 0 {
		sub.Timestamp = s.now().UnixMilli()
	}
	if sub.UserAgent == "" {
		sub.UserAgent = s.userAgent
	}

	if s.remote == nil {
		s.enqueue(ctx, sub)
		return Result{Error: ErrRemoteDisabled.Error(), Offline: true}
	}

	data, err := s.remote.SubmitFeedback(ctx, sub)
	if err == nil {
		return Result{Success: true, Data: data}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return Result{Error: statusErr.Message, Status: statusErr.Status}
	}

	s.enqueue(ctx, sub)
	return Result{Error: rootMessage(err), Offline: true}
}

func (s *Service) enqueue(ctx context.Context, sub entity.FeedbackSubmission) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	var queue []entity.FeedbackSubmission
	if _, err := kvstore.GetJSON(ctx, s.store, QueueKey, &queue); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to read feedback queue")
	}
	queue = append(queue, sub)
	if err := kvstore.SetJSON(ctx, s.store, QueueKey, queue); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to persist feedback queue")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sub.SessionID,
		"queued":     len(queue),
	}).Info("Feedback queued for later sync")
}

// SyncQueuedFeedback retries every queued submission. Delivered items leave
// the queue; failed ones stay.
func (s *Service) SyncQueuedFeedback(ctx context.Context) (SyncResult, error) {
	if s.remote == nil {
		return SyncResult{}, ErrRemoteDisabled
	}

	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	var queue []entity.FeedbackSubmission
	if _, err := kvstore.GetJSON(ctx, s.store, QueueKey, &queue); err != nil {
		return SyncResult{}, err
	}
	if len(queue) == 0 {
		return SyncResult{Success: true}, nil
	}

	var failed []entity.FeedbackSubmission
	synced := 0
	for _, sub := range queue {
		if _, err := s.remote.SubmitFeedback(ctx, sub); err != nil {
			s.logger.WithFields(logrus.Fields{
				"session_id": sub.SessionID,
				"error":      err.Error(),
			}).Warn("Queued feedback sync failed")
			failed = append(failed, sub)
			continue
		}
		synced++
	}

	if len(failed) == 0 {
		if err := s.store.Remove(ctx, QueueKey); err != nil {
			return SyncResult{}, err
		}
	} else if err := kvstore.SetJSON(ctx, s.store, QueueKey, failed); err != nil {
		return SyncResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"synced": synced,
		"failed": len(failed),
	}).Info("Feedback queue synced")

	return SyncResult{Success: len(failed) == 0, Synced: synced, Failed: len(failed)}, nil
}

func (s *Service) OfflineQueue(ctx context.Context) ([]entity.FeedbackSubmission, error) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	queue := []entity.FeedbackSubmission{}
	if _, err := kvstore.GetJSON(ctx, s.store, QueueKey, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// QueuedFeedbackCount reports zero when the queue cannot be read.
func (s *Service) QueuedFeedbackCount(ctx context.Context) int {
	queue, err := s.OfflineQueue(ctx)
	if err != nil {
		return 0
	}
	return len(queue)
}

func (s *Service) FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error) {
	if s.remote == nil {
		return entity.SessionFeedback{}, ErrRemoteDisabled
	}
	return s.remote.FeedbackBySession(ctx, sessionID)
}

func (s *Service) RemoteAnalytics(ctx context.Context) (entity.FeedbackAnalytics, error) {
	if s.remote == nil {
		return entity.FeedbackAnalytics{}, ErrRemoteDisabled
	}
	return s.remote.Analytics(ctx)
}

func (s *Service) CommandSuggestions(ctx context.Context, command string) ([]entity.CommandSuggestion, error) {
	if s.remote == nil {
		return nil, ErrRemoteDisabled
	}
	return s.remote.CommandSuggestions(ctx, command)
}

func (s *Service) ExportFeedback(ctx context.Context, format string, filters entity.ExportFilters) (Blob, error) {
	if s.remote == nil {
		return Blob{}, ErrRemoteDisabled
	}
	return s.remote.Export(ctx, entity.ExportRequest{Format: format, Filters: filters})
}

func (s *Service) SubmitSuggestion(ctx context.Context, in entity.SuggestionInput) (entity.Suggestion, error) {
	if strings.TrimSpace(in.SuggestedCommand) == "" {
		return entity.Suggestion{}, ErrMissingSuggestion
	}
	priority := in.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < 1 || priority > 5 {
		return entity.Suggestion{}, ErrInvalidPriority
	}

	now := s.now()
	id, err := s.newID(now)
	if err != nil {
		return entity.Suggestion{}, err
	}

	sg := entity.Suggestion{
		ID:               id,
		Timestamp:        now.UnixMilli(),
		SuggestedCommand: in.SuggestedCommand,
		ExpectedAction:   in.ExpectedAction,
		Category:         in.Category,
		Description:      in.Description,
		Priority:         priority,
		Status:           entity.SuggestionPending,
		SessionID:        in.SessionID,
		Context:          in.Context,
	}
	sg.Tags = suggestionTags(sg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return entity.Suggestion{}, err
	}
	s.suggestions.Add(sg)
	if err := s.saveSuggestions(ctx); err != nil {
		return entity.Suggestion{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"suggestion_id": sg.ID,
		"category":      sg.Category,
	}).Info("Voice command suggestion submitted")

	return sg, nil
}

// VoteOnSuggestion adds vote (+1 or -1) to the suggestion. Totals are not clamped.
func (s *Service) VoteOnSuggestion(ctx context.Context, id string, vote int) (entity.Suggestion, error) {
	if vote != 1 && vote != -1 {
		return entity.Suggestion{}, ErrInvalidVote
	}

	return s.updateSuggestion(ctx, id, func(sg *entity.Suggestion) {
		sg.Votes += vote
		sg.LastVoted = s.now().UnixMilli()
	})
}

func (s *Service) UpdateSuggestionStatus(ctx context.Context, id string, status entity.SuggestionStatus, notes string) (entity.Suggestion, error) {
	if !status.Valid() {
		return entity.Suggestion{}, ErrInvalidStatus
	}

	return s.updateSuggestion(ctx, id, func(sg *entity.Suggestion) {
		sg.Status = status
		sg.StatusNotes = notes
		sg.StatusUpdatedAt = s.now().UnixMilli()
	})
}

func (s *Service) updateSuggestion(ctx context.Context, id string, fn func(*entity.Suggestion)) (entity.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return entity.Suggestion{}, err
	}

	match := func(sg entity.Suggestion) bool { return sg.ID == id }
	if !s.suggestions.Update(match, fn) {
		return entity.Suggestion{}, ErrSuggestionNotFound
	}
	if err := s.saveSuggestions(ctx); err != nil {
		return entity.Suggestion{}, err
	}
	sg, _ := s.suggestions.Find(match)
	return sg, nil
}

func (s *Service) ResolveFeedback(ctx context.Context, id, resolution string) (entity.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return entity.FeedbackRecord{}, err
	}

	match := func(f entity.FeedbackRecord) bool { return f.ID == id }
	ok := s.feedback.Update(match, func(f *entity.FeedbackRecord) {
		f.Resolved = true
		f.Resolution = resolution
		f.ResolvedAt = s.now().UnixMilli()
	})
	if !ok {
		return entity.FeedbackRecord{}, ErrFeedbackNotFound
	}
	if err := s.saveFeedback(ctx); err != nil {
		return entity.FeedbackRecord{}, err
	}
	f, _ := s.feedback.Find(match)
	return f, nil
}

// Feedback returns matching records, newest first.
func (s *Service) Feedback(ctx context.Context, filter Filter) ([]entity.FeedbackRecord, error) {
	s.mu.Lock()
	if err := s.load(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	items := s.feedback.Items()
	s.mu.Unlock()

	out := make([]entity.FeedbackRecord, 0, len(items))
	for _, f := range items {
		if filter.Type != "" && f.FeedbackType != filter.Type {
			continue
		}
		if filter.Rating != 0 && f.Rating != filter.Rating {
			continue
		}
		if !filter.Start.IsZero() && f.Timestamp < filter.Start.UnixMilli() {
			continue
		}
		if !filter.End.IsZero() && f.Timestamp > filter.End.UnixMilli() {
			continue
		}
		if filter.Resolved != nil && f.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// Suggestions returns matching suggestions by votes, then newest first.
func (s *Service) Suggestions(ctx context.Context, filter SuggestionFilter) ([]entity.Suggestion, error) {
	s.mu.Lock()
	if err := s.load(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	items := s.suggestions.Items()
	s.mu.Unlock()

	out := make([]entity.Suggestion, 0, len(items))
	for _, sg := range items {
		if filter.Category != "" && sg.Category != filter.Category {
			continue
		}
		if filter.Status != "" && sg.Status != filter.Status {
			continue
		}
		if filter.Priority != 0 && sg.Priority != filter.Priority {
			continue
		}
		out = append(out, sg)
	}

	sortSuggestions(out)
	return out, nil
}

func sortSuggestions(items []entity.Suggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Votes != items[j].Votes {
			return items[i].Votes > items[j].Votes
		}
		return items[i].Timestamp > items[j].Timestamp
	})
}

func (s *Service) ExportData(ctx context.Context) (Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return Export{}, err
	}
	return Export{
		Feedback:    s.feedback.Items(),
		Suggestions: s.suggestions.Items(),
		ExportedAt:  s.now().UnixMilli(),
	}, nil
}

// ImportData replaces the local lists. Missing sections are left as they are.
func (s *Service) ImportData(ctx context.Context, data Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return err
	}

	if data.Feedback != nil {
		s.feedback.Replace(data.Feedback)
		if err := s.saveFeedback(ctx); err != nil {
			return err
		}
	}
	if data.Suggestions != nil {
		s.suggestions.Replace(data.Suggestions)
		if err := s.saveSuggestions(ctx); err != nil {
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"feedback":    s.feedback.Len(),
		"suggestions": s.suggestions.Len(),
	}).Info("Feedback data imported")
	return nil
}

func (s *Service) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{FeedbackKey, SuggestionsKey} {
		if err := s.store.Remove(ctx, key); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			return err
		}
	}
	s.reset()
	s.loaded = true

	s.logger.Info("Feedback data cleared")
	return nil
}

// DefaultFeedbackType classifies untyped feedback by its rating.
func DefaultFeedbackType(rating int) entity.FeedbackType {
	if rating > 0 && rating <= 2 {
		return entity.FeedbackNegative
	}
	return entity.FeedbackPositive
}

func FeedbackTags(f entity.FeedbackRecord) []string {
	tags := []string{}
	if f.Rating > 0 && f.Rating <= 2 {
		tags = append(tags, "low-rating")
	}
	if f.Rating >= 4 {
		tags = append(tags, "high-rating")
	}
	if len(f.Comment) > 50 {
		tags = append(tags, "detailed-feedback")
	}
	if f.ExpectedAction != "" {
		tags = append(tags, "has-expectation")
	}
	if f.AutoGenerated {
		tags = append(tags, "auto-generated")
	}
	return tags
}

func suggestionTags(sg entity.Suggestion) []string {
	tags := []string{}
	if sg.Priority >= 4 {
		tags = append(tags, "high-priority")
	}
	if len(sg.Description) > 100 {
		tags = append(tags, "detailed-suggestion")
	}
	return tags
}

// rootMessage strips the url.Error wrapping so callers see the transport cause.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
