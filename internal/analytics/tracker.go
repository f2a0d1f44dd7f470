package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"NexaVoice/internal/entity"
	"NexaVoice/pkg/bounded"
	"NexaVoice/pkg/kvstore"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	StorageKey = "voice_analytics"

	MaxCommands = 500
	MaxErrors   = 500
	MaxSessions = 100

	DefaultDetailLimit = 100
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrUnknownFormat = errors.New("unknown export format")

// Data is the persisted analytics document.
type Data struct {
	Commands []entity.CommandEntry `json:"commands"`
	Errors   []entity.FailureEntry `json:"errors"`
	Sessions []entity.VoiceSession `json:"sessions"`
}

type ErrorCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type Summary struct {
	TotalCommands       int            `json:"totalCommands"`
	SuccessfulCommands  int            `json:"successfulCommands"`
	FailedCommands      int            `json:"failedCommands"`
	SuccessRate         float64        `json:"successRate"`
	AverageConfidence   float64        `json:"averageConfidence"`
	AverageResponseTime float64        `json:"averageResponseTime"`
	TotalSessions       int            `json:"totalSessions"`
	TotalErrors         int            `json:"totalErrors"`
	MostCommonErrors    []ErrorCount   `json:"mostCommonErrors"`
	CommandFrequency    map[string]int `json:"commandFrequency"`
}

type DetailOptions struct {
	Start           time.Time
	End             time.Time
	Limit           int
	ExcludeCommands bool
	ExcludeFailures bool
	ExcludeSessions bool
}

type Detailed struct {
	Summary  Summary               `json:"summary"`
	Commands []entity.CommandEntry `json:"commands,omitempty"`
	Failures []entity.FailureEntry `json:"failures,omitempty"`
	Sessions []entity.VoiceSession `json:"sessions,omitempty"`
}

// Tracker records sessions, commands and failures into a kvstore document.
// Track* methods never fail the caller; storage problems are logged.
type Tracker struct {
	store  kvstore.Store
	logger *logrus.Logger
	now    func() time.Time

	mu       sync.Mutex
	loaded   bool
	commands *bounded.List[entity.CommandEntry]
	errors   *bounded.List[entity.FailureEntry]
	sessions *bounded.List[entity.VoiceSession]
	current  *entity.VoiceSession
}

func New(store kvstore.Store, logger *logrus.Logger) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	t.reset()
	return t
}

func (t *Tracker) reset() {
	t.commands = bounded.New(MaxCommands, func(c entity.CommandEntry) int64 { return c.Timestamp })
	t.errors = bounded.New(MaxErrors, func(e entity.FailureEntry) int64 { return e.Timestamp })
	t.sessions = bounded.New(MaxSessions, func(s entity.VoiceSession) int64 { return s.StartedAt.UnixMilli() })
}

func (t *Tracker) load(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	var data Data
	if _, err := kvstore.GetJSON(ctx, t.store, StorageKey, &data); err != nil {
		return err
	}
	t.commands.Replace(data.Commands)
	t.errors.Replace(data.Errors)
	t.sessions.Replace(data.Sessions)
	t.loaded = true
	return nil
}

func (t *Tracker) snapshot() Data {
	return Data{
		Commands: t.commands.Items(),
		Errors:   t.errors.Items(),
		Sessions: t.sessions.Items(),
	}
}

func (t *Tracker) save(ctx context.Context) error {
	return kvstore.SetJSON(ctx, t.store, StorageKey, t.snapshot())
}

func (t *Tracker) TrackSessionStart(ctx context.Context, session entity.VoiceSession) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session.StartedAt.IsZero() {
		session.StartedAt = t.now()
	}
	session.Active = true
	session.Commands = 0
	session.Failures = 0
	t.current = &session

	t.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"trigger":    session.Trigger,
	}).Info("Voice session started")
}

// TrackSessionEnd closes the current session. It is a no-op when no session
// is active or sessionID names a different one.
func (t *Tracker) TrackSessionEnd(ctx context.Context, sessionID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || !t.current.Active {
		return
	}
	if sessionID != "" && t.current.ID != sessionID {
		return
	}

	end := t.now()
	t.current.EndedAt = &end
	t.current.Duration = end.Sub(t.current.StartedAt).Milliseconds()
	t.current.Active = false
	if reason == "" {
		reason = "manual"
	}
	t.current.EndReason = reason
	ended := *t.current

	if err := t.load(ctx); err != nil {
		t.logError(err, "Failed to load analytics data")
		return
	}
	t.sessions.Add(ended)
	if err := t.save(ctx); err != nil {
		t.logError(err, "Failed to save analytics data")
	}

	t.logger.WithFields(logrus.Fields{
		"session_id": ended.ID,
		"duration":   ended.Duration,
		"commands":   ended.Commands,
		"failures":   ended.Failures,
		"reason":     reason,
	}).Info("Voice session ended")
}

func (t *Tracker) TrackCommand(ctx context.Context, cmd entity.CommandEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cmd.Timestamp == 0 {
		cmd.Timestamp = t.now().UnixMilli()
	}
	if cmd.SessionID == "" && t.current != nil {
		cmd.SessionID = t.current.ID
	}
	if t.current != nil && t.current.ID == cmd.SessionID {
		t.current.Commands++
	}

	if err := t.load(ctx); err != nil {
		t.logError(err, "Failed to load analytics data")
		return
	}
	t.commands.Add(cmd)
	if err := t.save(ctx); err != nil {
		t.logError(err, "Failed to save analytics data")
		return
	}

	t.logger.WithFields(logrus.Fields{
		"session_id": cmd.SessionID,
		"command":    cmd.Command,
		"action":     cmd.Action,
	}).Debug("Voice command tracked")
}

func (t *Tracker) TrackFailure(ctx context.Context, failure entity.FailureEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if failure.Timestamp == 0 {
		failure.Timestamp = t.now().UnixMilli()
	}
	if failure.Type == "" {
		failure.Type = "unknown"
	}
	if failure.SessionID == "" && t.current != nil {
		failure.SessionID = t.current.ID
	}
	if t.current != nil && t.current.ID == failure.SessionID {
		t.current.Failures++
	}

	if err := t.load(ctx); err != nil {
		t.logError(err, "Failed to load analytics data")
		return
	}
	t.errors.Add(failure)
	if err := t.save(ctx); err != nil {
		t.logError(err, "Failed to save analytics data")
		return
	}

	t.logger.WithFields(logrus.Fields{
		"session_id": failure.SessionID,
		"type":       failure.Type,
		"error":      failure.Error,
	}).Debug("Voice failure tracked")
}

// CurrentSession returns the most recently started session, active or not.
func (t *Tracker) CurrentSession() (entity.VoiceSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return entity.VoiceSession{}, false
	}
	return *t.current, true
}

func (t *Tracker) Data(ctx context.Context) (Data, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.load(ctx); err != nil {
		return Data{}, err
	}
	return t.snapshot(), nil
}

func (t *Tracker) Summary(ctx context.Context) (Summary, error) {
	data, err := t.Data(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summarize(data), nil
}

func summarize(data Data) Summary {
	s := Summary{
		TotalCommands:    len(data.Commands),
		TotalSessions:    len(data.Sessions),
		TotalErrors:      len(data.Errors),
		MostCommonErrors: []ErrorCount{},
		CommandFrequency: map[string]int{},
	}

	var confidence, responseTime float64
	for _, cmd := range data.Commands {
		if cmd.Success {
			s.SuccessfulCommands++
		} else {
			s.FailedCommands++
		}
		confidence += cmd.Confidence
		responseTime += float64(cmd.ResponseTime)

		key := cmd.Command
		if key == "" {
			key = "unknown"
		}
		s.CommandFrequency[key]++
	}
	if s.TotalCommands > 0 {
		n := float64(s.TotalCommands)
		s.SuccessRate = float64(s.SuccessfulCommands) / n
		s.AverageConfidence = confidence / n
		s.AverageResponseTime = responseTime / n
	}

	counts := map[string]int{}
	for _, e := range data.Errors {
		counts[e.Type]++
	}
	for typ, n := range counts {
		s.MostCommonErrors = append(s.MostCommonErrors, ErrorCount{Type: typ, Count: n})
	}
	sort.Slice(s.MostCommonErrors, func(i, j int) bool {
		a, b := s.MostCommonErrors[i], s.MostCommonErrors[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})

	return s
}

func (t *Tracker) Detailed(ctx context.Context, opts DetailOptions) (Detailed, error) {
	data, err := t.Data(ctx)
	if err != nil {
		return Detailed{}, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultDetailLimit
	}
	inRange := func(ts int64) bool {
		if !opts.Start.IsZero() && ts < opts.Start.UnixMilli() {
			return false
		}
		if !opts.End.IsZero() && ts > opts.End.UnixMilli() {
			return false
		}
		return true
	}

	out := Detailed{Summary: summarize(data)}
	if !opts.ExcludeCommands {
		out.Commands = []entity.CommandEntry{}
		for _, c := range data.Commands {
			if inRange(c.Timestamp) {
				out.Commands = append(out.Commands, c)
			}
		}
		out.Commands = lastN(out.Commands, limit)
	}
	if !opts.ExcludeFailures {
		out.Failures = []entity.FailureEntry{}
		for _, f := range data.Errors {
			if inRange(f.Timestamp) {
				out.Failures = append(out.Failures, f)
			}
		}
		out.Failures = lastN(out.Failures, limit)
	}
	if !opts.ExcludeSessions {
		out.Sessions = lastN(data.Sessions, limit)
	}
	return out, nil
}

// ForPeriod returns detailed analytics for "day", "week" or "month"; any
// other period means all time.
func (t *Tracker) ForPeriod(ctx context.Context, period string) (Detailed, error) {
	now := t.now()
	var start time.Time
	switch period {
	case "day":
		start = now.Add(-24 * time.Hour)
	case "week":
		start = now.Add(-7 * 24 * time.Hour)
	case "month":
		start = now.Add(-30 * 24 * time.Hour)
	default:
		start = time.Unix(0, 0)
	}
	return t.Detailed(ctx, DetailOptions{Start: start, End: now})
}

// Export renders the stored data as "json" or "csv".
func (t *Tracker) Export(ctx context.Context, format string) ([]byte, error) {
	data, err := t.Data(ctx)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "json":
		return json.Marshal(data)
	case "csv":
		return toCSV(data)
	}
	return nil, ErrUnknownFormat
}

func toCSV(data Data) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(data.Commands) > 0 {
		rows := [][]string{
			{"COMMANDS"},
			{"Timestamp", "Session ID", "Command", "Success", "Confidence", "Response Time"},
		}
		for _, c := range data.Commands {
			rows = append(rows, []string{
				strconv.FormatInt(c.Timestamp, 10),
				c.SessionID,
				c.Command,
				strconv.FormatBool(c.Success),
				strconv.FormatFloat(c.Confidence, 'f', -1, 64),
				strconv.FormatInt(c.ResponseTime, 10),
			})
		}
		rows = append(rows, []string{""})
		if err := w.WriteAll(rows); err != nil {
			return nil, err
		}
	}

	if len(data.Errors) > 0 {
		rows := [][]string{
			{"ERRORS"},
			{"Timestamp", "Session ID", "Type", "Error", "Command"},
		}
		for _, e := range data.Errors {
			rows = append(rows, []string{
				strconv.FormatInt(e.Timestamp, 10),
				e.SessionID,
				e.Type,
				e.Error,
				e.RecognizedText,
			})
		}
		rows = append(rows, []string{""})
		if err := w.WriteAll(rows); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// Import replaces the stored data, applying the usual caps.
func (t *Tracker) Import(ctx context.Context, data Data) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.commands.Replace(data.Commands)
	t.errors.Replace(data.Errors)
	t.sessions.Replace(data.Sessions)
	t.loaded = true
	if err := t.save(ctx); err != nil {
		return err
	}

	t.logger.WithField("commands", t.commands.Len()).Info("Analytics data imported")
	return nil
}

func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Remove(ctx, StorageKey); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}
	t.reset()
	t.loaded = true

	t.logger.Info("Analytics data cleared")
	return nil
}

func (t *Tracker) logError(err error, msg string) {
	t.logger.WithFields(logrus.Fields{
		"error": err.Error(),
	}).Error(msg)
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
