package assistant

import (
	"sync"
	"time"

	"NexaVoice/pkg/nlp"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseListening  Phase = "listening"
	PhaseProcessing Phase = "processing"
	PhaseError      Phase = "error"
)

type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func (p Permission) Valid() bool {
	return p == PermissionPrompt || p == PermissionGranted || p == PermissionDenied
}

type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerWakeWord Trigger = "wake-word"
)

// Settings are runtime-mutable; ListeningTimeout is in milliseconds.
type Settings struct {
	Enabled             bool           `json:"enabled"`
	WakeWordEnabled     bool           `json:"wakeWordEnabled"`
	WakeWordSensitivity float64        `json:"wakeWordSensitivity" validate:"gte=0,lte=1"`
	WakeWord            string         `json:"wakeWord" validate:"required"`
	ListeningTimeout    int            `json:"listeningTimeout" validate:"gt=0"`
	FeedbackVolume      float64        `json:"feedbackVolume" validate:"gte=0,lte=1"`
	CurrentLanguage     string         `json:"currentLanguage" validate:"required,bcp47_language_tag"`
	EnabledCommandTypes []nlp.Category `json:"enabledCommandTypes" validate:"dive,oneof=navigation document client settings general"`
}

var SupportedLanguages = []string{"en-US", "es-ES", "fr-FR", "de-DE", "it-IT"}

func DefaultSettings() Settings {
	return Settings{
		Enabled:             true,
		WakeWordEnabled:     true,
		WakeWordSensitivity: 0.7,
		WakeWord:            "hey nexa",
		ListeningTimeout:    10000,
		FeedbackVolume:      0.8,
		CurrentLanguage:     "en-US",
		EnabledCommandTypes: nlp.DefaultCategories(),
	}
}

func (s Settings) Timeout() time.Duration {
	return time.Duration(s.ListeningTimeout) * time.Millisecond
}

// Session is one activation-to-deactivation span.
type Session struct {
	ID          string    `json:"sessionId"`
	Trigger     Trigger   `json:"trigger"`
	StartedAt   time.Time `json:"startedAt"`
	CurrentPath string    `json:"currentPath"`
}

// State is a value snapshot of the assistant.
type State struct {
	Supported          bool       `json:"isSupported"`
	Listening          bool       `json:"isListening"`
	Processing         bool       `json:"isProcessing"`
	Session            *Session   `json:"session"`
	CurrentPath        string     `json:"currentPath"`
	LastCommand        string     `json:"lastCommand"`
	LastResponse       string     `json:"lastResponse"`
	Error              string     `json:"error"`
	Permission         Permission `json:"microphonePermission"`
	WakeWordDetected   bool       `json:"wakeWordDetected"`
	WakeWordConfidence float64    `json:"wakeWordConfidence"`
	TimeoutActive      bool       `json:"timeoutActive"`
	Settings           Settings   `json:"settings"`
}

// Phase derives the state machine position from the flags.
func (s State) Phase() Phase {
	switch {
	case s.Processing:
		return PhaseProcessing
	case s.Listening:
		return PhaseListening
	case s.Error != "":
		return PhaseError
	}
	return PhaseIdle
}

func (s State) clone() State {
	if s.Session != nil {
		sess := *s.Session
		s.Session = &sess
	}
	s.Settings.EnabledCommandTypes = append([]nlp.Category(nil), s.Settings.EnabledCommandTypes...)
	return s
}

// Action is one reducer step.
type Action interface {
	reduce(*State)
}

type (
	setSupported  bool
	setListening  bool
	setProcessing bool
	setError      string
	setPermission Permission
	setPath       string
	setSettings   Settings
	startSession  Session
	endSession    struct{}
	setCommand    string
	setResponse   string
	setTimeout    bool
	setWakeWord   struct {
		detected   bool
		confidence float64
	}
)

func (a setSupported) reduce(s *State) { s.Supported = bool(a) }

func (a setListening) reduce(s *State) {
	s.Listening = bool(a)
	if a {
		s.Error = ""
	}
}

func (a setProcessing) reduce(s *State) { s.Processing = bool(a) }
func (a setError) reduce(s *State)      { s.Error = string(a) }
func (a setPermission) reduce(s *State) { s.Permission = Permission(a) }

func (a setPath) reduce(s *State) {
	s.CurrentPath = string(a)
	if s.Session != nil {
		s.Session.CurrentPath = string(a)
	}
}

func (a setSettings) reduce(s *State) { s.Settings = Settings(a) }

func (a startSession) reduce(s *State) {
	sess := Session(a)
	s.Session = &sess
}

func (endSession) reduce(s *State) { s.Session = nil }

func (a setCommand) reduce(s *State)  { s.LastCommand = string(a) }
func (a setResponse) reduce(s *State) { s.LastResponse = string(a) }
func (a setTimeout) reduce(s *State)  { s.TimeoutActive = bool(a) }

func (a setWakeWord) reduce(s *State) {
	s.WakeWordDetected = a.detected
	s.WakeWordConfidence = a.confidence
}

// Store is the single mutex-guarded reducer every state change goes through.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore(initial State) *Store {
	return &Store{state: initial.clone()}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Dispatch applies actions atomically and returns the resulting snapshot.
func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		a.reduce(&s.state)
	}
	return s.state.clone()
}
