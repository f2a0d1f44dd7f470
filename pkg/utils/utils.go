package utils

import (
	"crypto/rand"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrNotAudioFile  = errors.New("uploaded file is not an audio clip")
	audioExtensions  = []string{".webm", ".ogg", ".wav", ".mp3", ".m4a", ".mp4", ".mpeg", ".flac"}
	DefaultAudioSize = int64(25 * 1024 * 1024)
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateAudioFile(file *multipart.FileHeader) error
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return &utils{
		maxFileSize: DefaultAudioSize,
	}
}

// NewWithLimit caps uploads at maxFileSize bytes.
func NewWithLimit(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = DefaultAudioSize
	}
	return &utils{maxFileSize: maxFileSize}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateAudioFile accepts audio/* uploads, or known audio extensions when
// the client sent a generic content type.
func (u *utils) ValidateAudioFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "audio/") || contentType == "video/webm" {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	for _, allowed := range audioExtensions {
		if ext == allowed {
			return nil
		}
	}

	return ErrNotAudioFile
}
