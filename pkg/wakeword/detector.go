package wakeword

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"NexaVoice/pkg/nlp"
	"NexaVoice/pkg/speech"

	"github.com/sirupsen/logrus"
)

const (
	DefaultWakeWord     = "hey nexa"
	DefaultSensitivity  = 0.7
	DefaultCooldown     = 2 * time.Second
	DefaultRestartDelay = time.Second

	partSimilarity = 0.8
	partRatio      = 0.7
)

var ErrAlreadyRunning = errors.New("wake word detection is already running")

type Detection struct {
	Transcript string    `json:"transcript"`
	Confidence float64   `json:"confidence"`
	WakeWord   string    `json:"wakeWord"`
	Timestamp  time.Time `json:"timestamp"`
}

type Config struct {
	WakeWord     string
	Sensitivity  float64
	Cooldown     time.Duration
	RestartDelay time.Duration
}

// Detector matches continuous transcripts against the configured wake word.
type Detector struct {
	logger *logrus.Logger

	mu            sync.Mutex
	wakeWord      string
	sensitivity   float64
	cooldown      time.Duration
	restartDelay  time.Duration
	lastDetection time.Time
	onDetected    func(Detection)
	onError       func(error)
	cancel        context.CancelFunc
	done          chan struct{}
	now           func() time.Time
}

func New(cfg Config, logger *logrus.Logger) *Detector {
	d := &Detector{
		logger:       logger,
		wakeWord:     DefaultWakeWord,
		sensitivity:  DefaultSensitivity,
		cooldown:     DefaultCooldown,
		restartDelay: DefaultRestartDelay,
		now:          time.Now,
	}
	if cfg.WakeWord != "" {
		d.wakeWord = strings.ToLower(strings.TrimSpace(cfg.WakeWord))
	}
	if cfg.Sensitivity > 0 {
		d.sensitivity = cfg.Sensitivity
	}
	if cfg.Cooldown > 0 {
		d.cooldown = cfg.Cooldown
	}
	if cfg.RestartDelay > 0 {
		d.restartDelay = cfg.RestartDelay
	}
	return d
}

func (d *Detector) OnDetected(fn func(Detection)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDetected = fn
}

func (d *Detector) OnError(fn func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

func (d *Detector) SetWakeWord(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wakeWord = word
}

func (d *Detector) SetSensitivity(s float64) {
	if s < 0 || s > 1 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sensitivity = s
}

func (d *Detector) Status() (wakeWord string, sensitivity float64, running bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wakeWord, d.sensitivity, d.cancel != nil
}

// Start consumes source until Stop. The source is restarted after
// restartDelay on any error except a permission denial, which stops detection.
func (d *Detector) Start(ctx context.Context, source speech.TranscriptSource) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	d.logger.WithField("wake_word", d.wakeWord).Info("Wake word detection started")

	go func() {
		defer close(done)
		defer d.clear(done)

		for {
			err := source.Run(ctx, func(t speech.Transcript) {
				d.Feed(t.Text, t.Confidence)
			})
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				d.logger.WithError(err).Warn("Wake word recognition error")
				d.emitError(err)
				if speech.IsPermissionDenied(err) {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(d.restartDelay):
			}
		}
	}()

	return nil
}

func (d *Detector) clear(done chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == done {
		d.cancel = nil
		d.done = nil
	}
}

// Stop halts detection and waits for the source loop to exit. Safe to call
// when not running.
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	d.logger.Info("Wake word detection stopped")
}

// Feed checks one transcript and fires the detection callback on a match
// outside the cooldown window.
func (d *Detector) Feed(transcript string, confidence float64) bool {
	d.mu.Lock()
	now := d.now()
	if !d.lastDetection.IsZero() && now.Sub(d.lastDetection) < d.cooldown {
		d.mu.Unlock()
		return false
	}

	wakeWord, sensitivity := d.wakeWord, d.sensitivity
	if !Matches(wakeWord, transcript, confidence, sensitivity) {
		d.mu.Unlock()
		return false
	}

	d.lastDetection = now
	cb := d.onDetected
	d.mu.Unlock()

	d.logger.WithFields(logrus.Fields{
		"transcript": transcript,
		"confidence": confidence,
	}).Info("Wake word detected")

	if cb != nil {
		cb(Detection{
			Transcript: transcript,
			Confidence: confidence,
			WakeWord:   wakeWord,
			Timestamp:  now,
		})
	}
	return true
}

func (d *Detector) emitError(err error) {
	d.mu.Lock()
	cb := d.onError
	d.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Matches reports whether transcript contains wakeWord, exactly or by
// per-word fuzzy match, with confidence at or above sensitivity.
func Matches(wakeWord, transcript string, confidence, sensitivity float64) bool {
	if confidence < sensitivity {
		return false
	}

	wake := nlp.Clean(wakeWord)
	text := nlp.Clean(transcript)
	if wake == "" || text == "" {
		return false
	}

	if strings.Contains(text, wake) {
		return true
	}

	parts := strings.Fields(wake)
	words := strings.Fields(text)

	matched := 0
	for _, part := range parts {
		for _, word := range words {
			if strings.Contains(word, part) || nlp.EditSimilarity(word, part) > partSimilarity {
				matched++
				break
			}
		}
	}

	return float64(matched)/float64(len(parts)) >= partRatio
}
