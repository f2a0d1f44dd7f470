package voiceService

import (
	"context"
	"mime/multipart"
	"sync"
	"time"

	"NexaVoice/internal/api/voice"
	voiceRepository "NexaVoice/internal/api/voice/repository"
	"NexaVoice/internal/assistant"
	"NexaVoice/internal/entity"
	"NexaVoice/internal/feedback"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"
	"NexaVoice/pkg/utils"

	"github.com/sirupsen/logrus"
)

type IVoiceService interface {
	SubmitFeedback(ctx context.Context, userID string, req voice.SubmitFeedbackRequest) (voice.SubmitFeedbackResponse, error)
	FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error)
	FeedbackAnalytics(ctx context.Context) (entity.FeedbackAnalytics, error)
	CommandSuggestions(ctx context.Context, command string) (voice.SuggestionsResponse, error)
	ExportFeedback(ctx context.Context, req voice.ExportFeedbackRequest) (feedback.Blob, error)
	ResolveFeedback(ctx context.Context, id, resolution string) (entity.FeedbackRecord, error)

	State(ctx context.Context, userID string) assistant.State
	Activate(ctx context.Context, userID string, req voice.ActivateRequest) (voice.ActivateResponse, error)
	Deactivate(ctx context.Context, userID string, reason string) voice.DeactivateResponse
	PushResult(ctx context.Context, userID string, req voice.RecognitionResultRequest) error
	PushError(ctx context.Context, userID string, req voice.RecognitionErrorRequest) error
	RecognizeAudio(ctx context.Context, userID string, file *multipart.FileHeader) (voice.RecognitionResponse, error)
	FeedWakeTranscript(ctx context.Context, userID string, req voice.WakeRequest) voice.WakeResponse
	CancelTimeout(ctx context.Context, userID string, reason string) voice.CancelTimeoutResponse
	UpdateSettings(ctx context.Context, userID string, settings assistant.Settings) (assistant.State, error)
	SetPermission(ctx context.Context, userID string, permission assistant.Permission) (assistant.State, error)
	SetPath(ctx context.Context, userID string, path string) assistant.State
	SetSupported(ctx context.Context, userID string, supported bool) assistant.State
	ClearError(ctx context.Context, userID string) assistant.State
	Speak(ctx context.Context, userID string, text string)
	Commands(ctx context.Context) []string

	CollectFeedback(ctx context.Context, userID string, req voice.FeedbackRequest) (entity.FeedbackRecord, error)
	LocalFeedback(ctx context.Context, userID string, filter feedback.Filter) ([]entity.FeedbackRecord, error)
	SyncFeedback(ctx context.Context, userID string) (feedback.SyncResult, error)
	SubmitSuggestion(ctx context.Context, userID string, in entity.SuggestionInput) (entity.Suggestion, error)
	VoteOnSuggestion(ctx context.Context, userID string, id string, vote int) (entity.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, userID string, id string, req voice.SuggestionStatusRequest) (entity.Suggestion, error)
	Suggestions(ctx context.Context, userID string, filter feedback.SuggestionFilter) ([]entity.Suggestion, error)
	Analytics(ctx context.Context, userID string) (voice.AnalyticsResponse, error)
	SessionHistory(ctx context.Context, userID string, page, limit int) (voice.SessionHistoryResponse, error)

	Subscribe(ctx context.Context, userID string, buffer int) (<-chan assistant.Event, func())
	Run(ctx context.Context) error
	Close(ctx context.Context)
}

type VoiceConfig struct {
	Defaults              assistant.Settings
	AutoFeedbackThreshold float64
	CountdownInterval     time.Duration
	// IdleTimeout is how long an assistant with no session and no
	// subscribers is kept before the sweeper closes it.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// RemoteURL points per-user feedback delivery at another feedback API.
	// Empty means this service's own repository.
	RemoteURL    string
	MaxAudioSize int64
}

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = time.Minute
	persistTimeout       = 5 * time.Second
	suggestionLimit      = 5
	negativeSampleSize   = 100
)

type Option func(*voiceService)

func WithTranscriber(t speech.Transcriber) Option {
	return func(s *voiceService) {
		s.transcriber = t
	}
}

// WithSynthesizer sets the factory used to give every user assistant its
// own synthesizer.
func WithSynthesizer(factory func() speech.Synthesizer) Option {
	return func(s *voiceService) {
		s.newSynth = factory
	}
}

type voiceService struct {
	log         *logrus.Logger
	voiceRepo   voiceRepository.Repository
	store       kvstore.Store
	processor   nlp.ICommandProcessor
	utils       utils.IUtils
	transcriber speech.Transcriber
	newSynth    func() speech.Synthesizer
	config      VoiceConfig
	now         func() time.Time

	mu         sync.Mutex
	assistants map[string]*userAssistant
}

func NewVoiceService(
	log *logrus.Logger,
	voiceRepo voiceRepository.Repository,
	store kvstore.Store,
	processor nlp.ICommandProcessor,
	config VoiceConfig,
	opts ...Option,
) IVoiceService {
	if config.Defaults.WakeWord == "" {
		config.Defaults = assistant.DefaultSettings()
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaultIdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaultSweepInterval
	}

	s := &voiceService{
		log:        log,
		voiceRepo:  voiceRepo,
		store:      store,
		processor:  processor,
		utils:      utils.NewWithLimit(config.MaxAudioSize),
		newSynth:   speech.NewClientSynthesizer,
		config:     config,
		now:        time.Now,
		assistants: make(map[string]*userAssistant),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
