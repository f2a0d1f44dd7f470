package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliversOneResultPerListen(t *testing.T) {
	b := NewBridge(true)

	done := make(chan RecognitionResult, 1)
	go func() {
		res, err := b.Listen(context.Background())
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, b.Listening, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Push(RecognitionResult{Transcript: "go to dashboard", Confidence: 0.95}))
	assert.ErrorIs(t, b.Push(RecognitionResult{Transcript: "again"}), ErrNotListening)

	select {
	case res := <-done:
		assert.Equal(t, "go to dashboard", res.Transcript)
		assert.Equal(t, 0.95, res.Confidence)
	case <-time.After(time.Second):
		t.Fatal("listen did not return")
	}
	assert.False(t, b.Listening())
}

func TestBridgeRejectsConcurrentListen(t *testing.T) {
	b := NewBridge(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go b.Listen(ctx)
	require.Eventually(t, b.Listening, time.Second, 5*time.Millisecond)

	_, err := b.Listen(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestBridgeUnsupported(t *testing.T) {
	b := NewBridge(false)
	_, err := b.Listen(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBridgeCancelReleasesSlot(t *testing.T) {
	b := NewBridge(true)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := b.Listen(ctx)
		errc <- err
	}()
	require.Eventually(t, b.Listening, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, b.Listening())
}

func TestBridgeFailMapsPermission(t *testing.T) {
	b := NewBridge(true)

	errc := make(chan error, 1)
	go func() {
		_, err := b.Listen(context.Background())
		errc <- err
	}()
	require.Eventually(t, b.Listening, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Fail(CodeNotAllowed, ""))

	err := <-errc
	assert.True(t, IsPermissionDenied(err))

	var re *RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeNotAllowed, re.Code)
	assert.False(t, IsPermissionDenied(&RecognitionError{Code: CodeNoSpeech}))
}

func TestBridgeBeginKeepsEarlyResult(t *testing.T) {
	b := NewBridge(true)
	require.NoError(t, b.Begin())
	assert.True(t, b.Listening())

	require.NoError(t, b.Push(RecognitionResult{Transcript: "open settings", Confidence: 0.9}))
	assert.ErrorIs(t, b.Push(RecognitionResult{Transcript: "again"}), ErrNotListening)
	assert.ErrorIs(t, b.Begin(), ErrBusy)

	res, err := b.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "open settings", res.Transcript)
	assert.False(t, b.Listening())
	assert.NoError(t, b.Begin())
}

func TestBridgeBeginThenCancel(t *testing.T) {
	b := NewBridge(true)
	require.NoError(t, b.Begin())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Listen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.Listening())
	assert.ErrorIs(t, b.Push(RecognitionResult{Transcript: "late"}), ErrNotListening)
}

func TestBridgeBeginUnsupported(t *testing.T) {
	assert.ErrorIs(t, NewBridge(false).Begin(), ErrUnsupported)
}

type memoryAudioStore struct {
	mu    sync.Mutex
	names []string
}

func (s *memoryAudioStore) Store(_ context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return "https://cdn.example.com/" + name, nil
}

func TestElevenLabsSpeak(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	store := &memoryAudioStore{}
	tts := NewElevenLabs("secret", "voice-1", WithBaseURL(srv.URL), WithAudioStore(store))

	audio, err := tts.Speak(context.Background(), Utterance{Text: "Yes?", Lang: "en-US", Volume: 0.8, Rate: 1.2, Pitch: 1})
	require.NoError(t, err)
	assert.Equal(t, "Yes?", audio.Text)
	assert.Equal(t, []byte("mp3-bytes"), audio.Data)
	assert.True(t, strings.HasPrefix(audio.URL, "https://cdn.example.com/tts/"))
	require.Len(t, store.names, 1)

	assert.Equal(t, "Yes?", gotBody["text"])
	settings := gotBody["voice_settings"].(map[string]interface{})
	assert.Equal(t, 1.2, settings["speed"])
}

func TestElevenLabsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tts := NewElevenLabs("bad", "voice-1", WithBaseURL(srv.URL))
	_, err := tts.Speak(context.Background(), Utterance{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ElevenLabs API error")
}

func TestElevenLabsSpeakCancelsPrevious(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if strings.Contains(string(raw), "slow") {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte("fast"))
	}))
	defer srv.Close()
	defer close(release)

	tts := NewElevenLabs("k", "v", WithBaseURL(srv.URL))

	errc := make(chan error, 1)
	go func() {
		_, err := tts.Speak(context.Background(), Utterance{Text: "slow"})
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)

	audio, err := tts.Speak(context.Background(), Utterance{Text: "fast"})
	require.NoError(t, err)
	assert.Equal(t, []byte("fast"), audio.Data)

	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first utterance was not cancelled")
	}
}

func TestClientSynthesizerPassesThrough(t *testing.T) {
	audio, err := NewClientSynthesizer().Speak(context.Background(), Utterance{Text: "Navigating to the dashboard.", Volume: 0.8})
	require.NoError(t, err)
	assert.Empty(t, audio.URL)
	assert.Equal(t, "Navigating to the dashboard.", audio.Text)
}

func TestStreamClientDeliversTranscripts(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"transcript":"hey nexa","confidence":0.9,"final":true}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"no-speech"}`))
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := NewStreamClient("ws"+strings.TrimPrefix(srv.URL, "http"), logger)

	var got []Transcript
	err := client.Run(context.Background(), func(tr Transcript) {
		got = append(got, tr)
	})

	var re *RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeNoSpeech, re.Code)
	require.Len(t, got, 1)
	assert.Equal(t, Transcript{Text: "hey nexa", Confidence: 0.9, Final: true}, got[0])
	assert.False(t, client.IsConnected())
}

func TestStreamClientStopsOnContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := NewStreamClient("ws"+strings.TrimPrefix(srv.URL, "http"), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := client.Run(ctx, func(Transcript) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWhisperHelpers(t *testing.T) {
	assert.Equal(t, "en", primaryLanguage("en-US"))
	assert.Equal(t, "id", primaryLanguage("id"))

	assert.Equal(t, 1.0, segmentConfidence(openai.AudioResponse{}))

	var resp openai.AudioResponse
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hi","segments":[{"avg_logprob":-0.1},{"avg_logprob":-0.3}]}`), &resp))
	assert.InDelta(t, 0.8187, segmentConfidence(resp), 1e-3)
}
