package nlp

import (
	"context"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Category is the command family used to enable or disable groups of commands.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryDocument   Category = "document"
	CategoryClient     Category = "client"
	CategorySettings   Category = "settings"
	CategoryGeneral    Category = "general"
	CategoryUnknown    Category = "unknown"
)

func DefaultCategories() []Category {
	return []Category{CategoryNavigation, CategoryDocument, CategoryClient, CategorySettings, CategoryGeneral}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryNavigation, CategoryDocument, CategoryClient, CategorySettings, CategoryGeneral:
		return true
	}
	return false
}

// Action is one resolved command variant.
type Action interface {
	Kind() string
	Category() Category
}

type Navigate struct {
	Path string `json:"path"`
}

type GoBack struct{}

type Create struct {
	Entity string `json:"entity"`
}

type Calendar struct {
	Op    string `json:"op"`
	Query string `json:"query,omitempty"`
}

type Transaction struct {
	Op      string              `json:"op"`
	Details *TransactionDetails `json:"details,omitempty"`
}

type Report struct {
	Op     string `json:"op"`
	Format string `json:"format,omitempty"`
}

type Email struct {
	Op        string `json:"op"`
	Recipient string `json:"recipient,omitempty"`
	Query     string `json:"query,omitempty"`
}

type Search struct {
	Query string `json:"query"`
}

type Export struct {
	Scope string `json:"scope"`
}

type Help struct {
	Topic string `json:"topic"`
}

type OpenVoiceSettings struct{}

type StopListening struct{}

type Repeat struct{}

type Refresh struct{}

type Unknown struct {
	Message string `json:"message"`
}

func (Navigate) Kind() string { return "navigate" }
func (GoBack) Kind() string { return "back" }
func (Create) Kind() string { return "create" }
func (Calendar) Kind() string { return "calendar" }
func (Transaction) Kind() string { return "transaction" }
func (Report) Kind() string { return "report" }
func (Email) Kind() string { return "email" }
func (Search) Kind() string { return "search" }
func (Export) Kind() string { return "export" }
func (Help) Kind() string { return "help" }
func (OpenVoiceSettings) Kind() string { return "voice-settings" }
func (StopListening) Kind() string { return "stop-listening" }
func (Repeat) Kind() string { return "repeat" }
func (Refresh) Kind() string { return "refresh" }
func (Unknown) Kind() string { return "unknown" }

func (Navigate) Category() Category { return CategoryNavigation }
func (GoBack) Category() Category { return CategoryNavigation }

func (c Create) Category() Category {
	switch c.Entity {
	case "invoice", "report":
		return CategoryDocument
	case "client":
		return CategoryClient
	}
	return CategoryGeneral
}

func (Calendar) Category() Category { return CategoryGeneral }
func (Transaction) Category() Category { return CategoryGeneral }
func (Report) Category() Category { return CategoryDocument }
func (Email) Category() Category { return CategoryGeneral }
func (Search) Category() Category { return CategoryGeneral }
func (Export) Category() Category { return CategoryDocument }
func (Help) Category() Category { return CategoryGeneral }
func (OpenVoiceSettings) Category() Category { return CategorySettings }
func (StopListening) Category() Category { return CategoryGeneral }
func (Repeat) Category() Category { return CategoryGeneral }
func (Refresh) Category() Category { return CategoryGeneral }
func (Unknown) Category() Category { return CategoryUnknown }

// CommandAction is a transcript resolved against the grammar.
type CommandAction struct {
	Type       Category `json:"type"`
	Action     Action   `json:"-"`
	Transcript string   `json:"transcript"`
	Confidence float64  `json:"confidence"`
}

func (c CommandAction) IsUnknown() bool {
	return c.Type == CategoryUnknown
}

func (c CommandAction) MarshalJSON() ([]byte, error) {
	kind := ""
	if c.Action != nil {
		kind = c.Action.Kind()
	}
	return json.Marshal(struct {
		Type       Category `json:"type"`
		Kind       string   `json:"kind"`
		Payload    Action   `json:"payload"`
		Transcript string   `json:"transcript"`
		Confidence float64  `json:"confidence"`
	}{c.Type, kind, c.Action, c.Transcript, c.Confidence})
}

type CommandSuggestion struct {
	Original   string   `json:"original"`
	Suggested  string   `json:"suggested"`
	Confidence float64  `json:"confidence"`
	Category   Category `json:"category"`
}

// Router is the navigation surface commands act on.
type Router interface {
	Navigate(ctx context.Context, path string) error
	Back(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Hooks are optional application callbacks. A nil hook makes the
// matching command answer that the feature is unavailable.
type Hooks struct {
	OnSearch            func(ctx context.Context, query string) error
	OnExport            func(ctx context.Context, scope string) error
	OnOpenVoiceSettings func(ctx context.Context) error
	OnStopListening     func(ctx context.Context) error
	// OnDomain handles calendar, transaction, report and email commands.
	OnDomain func(ctx context.Context, action Action) (string, error)
}

// ExecContext is the application state a command is executed against.
type ExecContext struct {
	Router       Router
	CurrentPath  string
	LastResponse string
	Hooks        Hooks
}

type ICommandProcessor interface {
	Process(transcript string, confidence float64, enabled []Category) CommandAction
	Execute(ctx context.Context, action CommandAction, ec ExecContext) (string, error)
	Suggest(command string, limit int) []CommandSuggestion
	Phrases() []string
}
