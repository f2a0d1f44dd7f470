package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Utterance struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Volume float64 `json:"volume"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
}

// Audio is a rendered utterance. URL is empty when the client is expected
// to synthesize the text itself.
type Audio struct {
	Utterance
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) (Audio, error)
	// Cancel stops any utterance still being rendered.
	Cancel()
}

// AudioStore publishes rendered audio and returns a URL clients can fetch.
type AudioStore interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

type clientSynthesizer struct{}

// NewClientSynthesizer leaves synthesis to the client's own speech engine.
func NewClientSynthesizer() Synthesizer {
	return clientSynthesizer{}
}

func (clientSynthesizer) Speak(_ context.Context, u Utterance) (Audio, error) {
	return Audio{Utterance: u}, nil
}

func (clientSynthesizer) Cancel() {}

type ElevenLabsOption func(*ElevenLabs)

func WithBaseURL(url string) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.baseURL = strings.TrimRight(url, "/")
	}
}

func WithHTTPClient(client *http.Client) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.client = client
	}
}

func WithAudioStore(store AudioStore) ElevenLabsOption {
	return func(e *ElevenLabs) {
		e.store = store
	}
}

// ElevenLabs renders utterances with the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
	store   AudioStore

	mu      sync.Mutex
	cancel  context.CancelFunc
	counter uint64
}

func NewElevenLabs(apiKey, voiceID string, opts ...ElevenLabsOption) *ElevenLabs {
	e := &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: "eleven_multilingual_v2",
		baseURL: "https://api.elevenlabs.io",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Speak cancels any utterance still in flight before rendering u.
func (e *ElevenLabs) Speak(ctx context.Context, u Utterance) (Audio, error) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.counter++
	seq := e.counter
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.counter == seq {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}()

	data, err := e.generate(ctx, u)
	if err != nil {
		return Audio{}, err
	}

	audio := Audio{Utterance: u, ContentType: "audio/mpeg", Data: data}
	if e.store == nil {
		return audio, nil
	}

	name := fmt.Sprintf("tts/%d-%d.mp3", time.Now().UnixMilli(), seq)
	url, err := e.store.Store(ctx, name, data, audio.ContentType)
	if err != nil {
		return Audio{}, fmt.Errorf("storing synthesized audio: %w", err)
	}
	audio.URL = url
	return audio, nil
}

func (e *ElevenLabs) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *ElevenLabs) generate(ctx context.Context, u Utterance) ([]byte, error) {
	url := e.baseURL + "/v1/text-to-speech/" + e.voiceID

	requestBody := map[string]interface{}{
		"text":     u.Text,
		"model_id": e.modelID,
		"voice_settings": map[string]interface{}{
			"stability":         0.5,
			"similarity_boost":  0.8,
			"style":             0.0,
			"use_speaker_boost": true,
			"speed":             clampSpeed(u.Rate),
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ElevenLabs API error: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// ElevenLabs accepts speeds between 0.7 and 1.2.
func clampSpeed(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1.0
	case rate < 0.7:
		return 0.7
	case rate > 1.2:
		return 1.2
	}
	return rate
}
