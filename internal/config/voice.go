package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	voiceService "NexaVoice/internal/api/voice/service"
	"NexaVoice/internal/assistant"
	"NexaVoice/pkg/kvstore"
	"NexaVoice/pkg/redis"
	"NexaVoice/pkg/s3"
	"NexaVoice/pkg/speech"

	"github.com/sirupsen/logrus"
)

const (
	LocalStoreMemory = "memory"
	LocalStoreRedis  = "redis"
	LocalStoreSQLite = "sqlite"

	defaultSQLitePath = "./storage/voice.db"
)

// VoiceConfigFromEnv seeds the assistant settings and service tuning from
// VOICE_* variables. Unset or malformed values keep the defaults.
func VoiceConfigFromEnv() voiceService.VoiceConfig {
	defaults := assistant.DefaultSettings()

	defaults.ListeningTimeout = envInt("VOICE_LISTENING_TIMEOUT_MS", defaults.ListeningTimeout)
	defaults.WakeWordSensitivity = envFloat("VOICE_WAKE_WORD_SENSITIVITY", defaults.WakeWordSensitivity)
	defaults.WakeWordEnabled = envBool("VOICE_WAKE_WORD_ENABLED", defaults.WakeWordEnabled)
	defaults.FeedbackVolume = envFloat("VOICE_FEEDBACK_VOLUME", defaults.FeedbackVolume)
	if v := os.Getenv("VOICE_WAKE_WORD"); v != "" {
		defaults.WakeWord = v
	}
	if v := os.Getenv("VOICE_LANGUAGE"); v != "" {
		defaults.CurrentLanguage = v
	}

	return voiceService.VoiceConfig{
		Defaults:              defaults,
		AutoFeedbackThreshold: envFloat("VOICE_AUTO_FEEDBACK_THRESHOLD", 0.8),
		IdleTimeout:           time.Duration(envInt("VOICE_IDLE_TIMEOUT_MIN", 30)) * time.Minute,
		RemoteURL:             os.Getenv("VOICE_FEEDBACK_REMOTE_URL"),
		MaxAudioSize:          int64(envInt("VOICE_MAX_AUDIO_MB", 25)) << 20,
	}
}

// NewLocalStore opens the backend named by VOICE_LOCAL_STORE. The returned
// close func is never nil.
func NewLocalStore(logger *logrus.Logger) (kvstore.Store, func() error, error) {
	kind := os.Getenv("VOICE_LOCAL_STORE")
	if kind == "" {
		kind = LocalStoreMemory
	}

	logger.WithField("backend", kind).Info("Opening voice local store")

	switch kind {
	case LocalStoreMemory:
		return kvstore.NewMemory(), func() error { return nil }, nil
	case LocalStoreRedis:
		store := redis.New()
		return store, store.Close, nil
	case LocalStoreSQLite:
		path := os.Getenv("VOICE_SQLITE_PATH")
		if path == "" {
			path = defaultSQLitePath
		}
		store, err := kvstore.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown VOICE_LOCAL_STORE %q", kind)
	}
}

// VoiceOptionsFromEnv enables Whisper recognition and ElevenLabs synthesis
// when their keys are present.
func VoiceOptionsFromEnv(logger *logrus.Logger, language string) []voiceService.Option {
	var opts []voiceService.Option

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, voiceService.WithTranscriber(speech.NewWhisperTranscriber(key, language)))
	}

	key, voiceID := os.Getenv("ELEVENLABS_API_KEY"), os.Getenv("ELEVENLABS_VOICE_ID")
	if key != "" && voiceID != "" {
		var elOpts []speech.ElevenLabsOption
		if store, err := s3.New(); err != nil {
			logger.WithField("error", err.Error()).Warn("S3 audio store unavailable, synthesized audio will not be published")
		} else {
			elOpts = append(elOpts, speech.WithAudioStore(store))
		}
		opts = append(opts, voiceService.WithSynthesizer(func() speech.Synthesizer {
			return speech.NewElevenLabs(key, voiceID, elOpts...)
		}))
	}

	return opts
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 || v > 1 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
