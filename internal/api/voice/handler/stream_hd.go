package voiceHandler

import (
	"errors"
	"fmt"
	"time"

	"NexaVoice/internal/api/voice"
	"NexaVoice/internal/assistant"
	"NexaVoice/internal/entity"
	contextPkg "NexaVoice/pkg/context"
	"NexaVoice/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	streamBuffer       = 32
	streamReadTimeout  = 90 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// clientMessage is what the browser sends over the assistant stream.
// Type is one of result, error, wake, activate, deactivate, cancel-timeout
// or path.
type clientMessage struct {
	Type       string  `json:"type"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Path       string  `json:"path"`
	Reason     string  `json:"reason"`
}

type streamError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

const streamRequestIDKey = "stream_request_id"

func (h *VoiceHandler) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	ctx.Locals(streamRequestIDKey, h.middleware.GetRequestID(ctx))
	return ctx.Next()
}

// Stream pushes assistant events to the client and applies the client's
// recognition results, errors and wake transcripts.
func (h *VoiceHandler) Stream(conn *websocket.Conn) {
	user, ok := conn.Locals("user").(entity.UserLoginData)
	if !ok {
		_ = conn.WriteJSON(streamError{Type: "error", Error: "Unauthorized"})
		_ = conn.Close()
		return
	}
	requestID, _ := conn.Locals(streamRequestIDKey).(string)

	logger := h.log.WithFields(log.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	})
	logger.Info("Assistant stream connected")
	defer logger.Info("Assistant stream disconnected")

	c, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))
	defer cancel()

	events, unsubscribe := h.voiceService.Subscribe(c, user.ID, streamBuffer)
	defer unsubscribe()

	replies := make(chan streamError, 1)
	go h.writeStream(c, cancel, conn, events, replies)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("Assistant stream read failed")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.replyStream(c, replies, "invalid message")
			continue
		}

		if err := h.applyStreamMessage(c, user.ID, msg); err != nil {
			logger.WithFields(log.Fields{
				"type":  msg.Type,
				"error": err.Error(),
			}).Warn("Assistant stream message rejected")
			h.replyStream(c, replies, err.Error())
		}
	}
}

func (h *VoiceHandler) applyStreamMessage(ctx context.Context, userID string, msg clientMessage) error {
	switch msg.Type {
	case "result":
		return h.voiceService.PushResult(ctx, userID, voice.RecognitionResultRequest{
			Transcript: msg.Transcript,
			Confidence: msg.Confidence,
		})
	case "error":
		return h.voiceService.PushError(ctx, userID, voice.RecognitionErrorRequest{
			Code:    msg.Code,
			Message: msg.Message,
		})
	case "wake":
		h.voiceService.FeedWakeTranscript(ctx, userID, voice.WakeRequest{
			Transcript: msg.Transcript,
			Confidence: msg.Confidence,
		})
		return nil
	case "activate":
		res, err := h.voiceService.Activate(ctx, userID, voice.ActivateRequest{
			Trigger:     assistant.TriggerManual,
			CurrentPath: msg.Path,
		})
		if err != nil {
			return err
		}
		if !res.Activated {
			return errors.New(res.Message)
		}
		return nil
	case "deactivate":
		h.voiceService.Deactivate(ctx, userID, msg.Reason)
		return nil
	case "cancel-timeout":
		h.voiceService.CancelTimeout(ctx, userID, msg.Reason)
		return nil
	case "path":
		h.voiceService.SetPath(ctx, userID, msg.Path)
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

func (h *VoiceHandler) replyStream(ctx context.Context, replies chan<- streamError, message string) {
	select {
	case replies <- streamError{Type: "error", Error: message}:
	case <-ctx.Done():
	}
}

// writeStream is the only writer on conn.
func (h *VoiceHandler) writeStream(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	events <-chan assistant.Event,
	replies <-chan streamError,
) {
	defer cancel()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	write := func(v interface{}) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.Close()
				return
			}
			err = write(e)
		case r := <-replies:
			err = write(r)
		case <-ticker.C:
			err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout))
		}
		if err != nil {
			h.log.WithError(err).Debug("Assistant stream write failed")
			_ = conn.Close()
			return
		}
	}
}
