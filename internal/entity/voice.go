package entity

import (
	"time"
)

type FeedbackType string

const (
	FeedbackPositive   FeedbackType = "positive"
	FeedbackNegative   FeedbackType = "negative"
	FeedbackSuggestion FeedbackType = "suggestion"
	FeedbackSuccess    FeedbackType = "success"
	FeedbackError      FeedbackType = "error"
)

type SuggestionStatus string

const (
	SuggestionPending     SuggestionStatus = "pending"
	SuggestionReviewed    SuggestionStatus = "reviewed"
	SuggestionImplemented SuggestionStatus = "implemented"
	SuggestionRejected    SuggestionStatus = "rejected"
)

func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionPending, SuggestionReviewed, SuggestionImplemented, SuggestionRejected:
		return true
	}
	return false
}

// FeedbackRecord is one piece of feedback about a voice command. Timestamps
// are unix milliseconds. A zero Rating means no rating was given.
type FeedbackRecord struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"userId,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
	CommandID      string                 `json:"commandId,omitempty"`
	Command        string                 `json:"command"`
	Action         string                 `json:"action,omitempty"`
	Rating         int                    `json:"rating,omitempty"`
	Confidence     float64                `json:"confidence,omitempty"`
	FeedbackType   FeedbackType           `json:"feedbackType,omitempty"`
	Comment        string                 `json:"comment"`
	ExpectedAction string                 `json:"expectedAction"`
	SessionID      string                 `json:"sessionId,omitempty"`
	Context        map[string]interface{} `json:"context,omitempty"`
	Resolved       bool                   `json:"resolved"`
	Resolution     string                 `json:"resolution,omitempty"`
	ResolvedAt     int64                  `json:"resolvedAt,omitempty"`
	Tags           []string               `json:"tags"`
	AutoGenerated  bool                   `json:"autoGenerated,omitempty"`
}

// FeedbackInput is what callers hand to the feedback sink.
type FeedbackInput struct {
	CommandID      string                 `json:"commandId"`
	Command        string                 `json:"command"`
	Action         string                 `json:"action"`
	Rating         int                    `json:"rating"`
	Confidence     float64                `json:"confidence"`
	FeedbackType   FeedbackType           `json:"feedbackType"`
	Comment        string                 `json:"comment"`
	ExpectedAction string                 `json:"expectedAction"`
	SessionID      string                 `json:"sessionId"`
	Context        map[string]interface{} `json:"context"`
	AutoGenerated  bool                   `json:"autoGenerated"`
}

// FeedbackSubmission is the body sent to the remote feedback API and the
// element type of the offline queue.
type FeedbackSubmission struct {
	Command        string                 `json:"command"`
	Action         string                 `json:"action,omitempty"`
	Rating         int                    `json:"rating"`
	Comment        string                 `json:"comment,omitempty"`
	ExpectedAction string                 `json:"expectedAction,omitempty"`
	FeedbackType   FeedbackType           `json:"feedbackType,omitempty"`
	Confidence     float64                `json:"confidence,omitempty"`
	SessionID      string                 `json:"sessionId"`
	Context        map[string]interface{} `json:"context,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	AutoGenerated  bool                   `json:"autoGenerated,omitempty"`
}

type Suggestion struct {
	ID               string                 `json:"id"`
	Timestamp        int64                  `json:"timestamp"`
	SuggestedCommand string                 `json:"suggestedCommand"`
	ExpectedAction   string                 `json:"expectedAction"`
	Category         string                 `json:"category"`
	Description      string                 `json:"description"`
	Priority         int                    `json:"priority"`
	Status           SuggestionStatus       `json:"status"`
	Votes            int                    `json:"votes"`
	LastVoted        int64                  `json:"lastVoted,omitempty"`
	StatusNotes      string                 `json:"statusNotes,omitempty"`
	StatusUpdatedAt  int64                  `json:"statusUpdatedAt,omitempty"`
	SessionID        string                 `json:"sessionId,omitempty"`
	Context          map[string]interface{} `json:"context,omitempty"`
	Tags             []string               `json:"tags"`
}

type SuggestionInput struct {
	SuggestedCommand string                 `json:"suggestedCommand" validate:"required"`
	ExpectedAction   string                 `json:"expectedAction" validate:"required"`
	Category         string                 `json:"category" validate:"required"`
	Description      string                 `json:"description"`
	Priority         int                    `json:"priority" validate:"omitempty,min=1,max=5"`
	SessionID        string                 `json:"sessionId"`
	Context          map[string]interface{} `json:"context"`
}

// VoiceSession is one activation-to-deactivation span.
type VoiceSession struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId,omitempty"`
	Trigger     string     `json:"trigger"`
	CurrentPath string     `json:"currentPath"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	EndReason   string     `json:"endReason,omitempty"`
	Duration    int64      `json:"duration"`
	Commands    int        `json:"commands"`
	Failures    int        `json:"failures"`
	Active      bool       `json:"isActive"`
}

// CommandEntry is one executed voice command.
type CommandEntry struct {
	ID           string  `json:"id,omitempty"`
	UserID       string  `json:"userId,omitempty"`
	Command      string  `json:"command"`
	Action       string  `json:"action"`
	ActionType   string  `json:"actionType"`
	Response     string  `json:"response"`
	Success      bool    `json:"success"`
	Confidence   float64 `json:"confidence"`
	ResponseTime int64   `json:"responseTime"`
	SessionID    string  `json:"sessionId"`
	CurrentPath  string  `json:"currentPath,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// FailureEntry is a recognition or processing failure.
type FailureEntry struct {
	Type           string  `json:"type"`
	Error          string  `json:"error"`
	RecognizedText string  `json:"command"`
	Confidence     float64 `json:"confidence"`
	SessionID      string  `json:"sessionId"`
	CurrentPath    string  `json:"currentPath,omitempty"`
	Timestamp      int64   `json:"timestamp"`
}

const (
	FailureRecognition = "recognition-error"
	FailureProcessing  = "processing-error"
)

// SessionFeedback is the remote API answer for one session's feedback.
type SessionFeedback struct {
	Feedback []FeedbackRecord `json:"feedback"`
	Total    int              `json:"total"`
}

// FeedbackAnalytics is the remote API aggregate over all feedback.
type FeedbackAnalytics struct {
	AverageRating      float64        `json:"averageRating"`
	TotalFeedback      int            `json:"totalFeedback"`
	RatingDistribution map[string]int `json:"ratingDistribution"`
	CommonIssues       []string       `json:"commonIssues"`
}

type CommandSuggestion struct {
	Original   string  `json:"original"`
	Suggested  string  `json:"suggested"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

type ExportFilters struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type ExportRequest struct {
	Format  string        `json:"format"`
	Filters ExportFilters `json:"filters"`
}
