package speech

import (
	"context"
	"io"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns a recorded clip into a recognition result.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (RecognitionResult, error)
}

type WhisperTranscriber struct {
	client   *openai.Client
	language string
}

// NewWhisperTranscriber uses the OpenAI Whisper API. language is a BCP-47
// tag; only its primary subtag is sent.
func NewWhisperTranscriber(apiKey, language string) *WhisperTranscriber {
	return NewWhisperTranscriberWithConfig(openai.DefaultConfig(apiKey), language)
}

func NewWhisperTranscriberWithConfig(cfg openai.ClientConfig, language string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(cfg),
		language: primaryLanguage(language),
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (RecognitionResult, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
		Language: w.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return RecognitionResult{}, &RecognitionError{Code: CodeNetwork, Message: err.Error()}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return RecognitionResult{}, &RecognitionError{Code: CodeNoSpeech}
	}

	return RecognitionResult{
		Transcript: text,
		Confidence: segmentConfidence(resp),
	}, nil
}

// segmentConfidence maps the mean segment log probability to [0,1].
func segmentConfidence(resp openai.AudioResponse) float64 {
	if len(resp.Segments) == 0 {
		return 1
	}
	var sum float64
	for _, s := range resp.Segments {
		sum += s.AvgLogprob
	}
	c := math.Exp(sum / float64(len(resp.Segments)))
	return math.Max(0, math.Min(1, c))
}

func primaryLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
