package speech

import (
	"context"
	"errors"
	"fmt"
)

// Recognition error codes reported by the platform recognizer.
const (
	CodeNotAllowed         = "not-allowed"
	CodeServiceNotAllowed  = "service-not-allowed"
	CodeNoSpeech           = "no-speech"
	CodeAborted            = "aborted"
	CodeAudioCapture       = "audio-capture"
	CodeNetwork            = "network"
	CodeLanguageNotSupport = "language-not-supported"
)

var (
	ErrUnsupported  = errors.New("speech recognition is not supported on this platform")
	ErrBusy         = errors.New("a recognition session is already active")
	ErrNotListening = errors.New("no recognition session is waiting for a result")
)

type RecognitionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// RecognitionError is a per-attempt failure carrying the platform code.
type RecognitionError struct {
	Code    string
	Message string
}

func (e *RecognitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("speech recognition error %s: %s", e.Code, e.Message)
	}
	return "speech recognition error " + e.Code
}

// PermissionDenied reports whether the error means microphone access was refused.
func (e *RecognitionError) PermissionDenied() bool {
	return e.Code == CodeNotAllowed || e.Code == CodeServiceNotAllowed
}

func IsPermissionDenied(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re) && re.PermissionDenied()
}

// Recognizer produces a single result per call. Begin starts capture for the
// next Listen, which blocks until a result, a recognition error or ctx
// cancellation.
type Recognizer interface {
	Begin() error
	Listen(ctx context.Context) (RecognitionResult, error)
	Supported() bool
}

// Transcript is one hypothesis from a continuous recognizer.
type Transcript struct {
	Text       string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Final      bool    `json:"final"`
}

// TranscriptSource is a continuous recognizer. Run delivers transcripts to fn
// until ctx is done or the source fails.
type TranscriptSource interface {
	Run(ctx context.Context, fn func(Transcript)) error
}
