package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type streamMessage struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Final      bool    `json:"final"`
	Error      string  `json:"error,omitempty"`
}

// StreamClient reads continuous transcripts from a speech-to-text service
// over a websocket. Each message is a JSON object with transcript,
// confidence, final and an optional error code.
type StreamClient struct {
	url          string
	logger       *logrus.Logger
	dialer       *websocket.Dialer
	pingInterval time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewStreamClient(url string, logger *logrus.Logger) *StreamClient {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	return &StreamClient{
		url:          url,
		logger:       logger,
		dialer:       &dialer,
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (c *StreamClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects and delivers transcripts until ctx is done or the stream fails.
// Stream-side errors are returned as *RecognitionError.
func (c *StreamClient) Run(ctx context.Context, fn func(Transcript)) error {
	if c.url == "" {
		return errors.New("speech stream URL not configured")
	}

	c.logger.WithField("url", c.url).Info("Connecting to speech stream")

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &RecognitionError{Code: CodeNetwork, Message: fmt.Sprintf("failed to connect to %s: %v", c.url, err)}
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.logger.WithError(err).Warn("Error sending pong")
		}
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	go c.keepAlive(conn, done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RecognitionError{Code: CodeNetwork, Message: err.Error()}
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.WithError(err).Warn("Discarding malformed speech stream message")
			continue
		}
		if msg.Error != "" {
			return &RecognitionError{Code: msg.Error}
		}

		fn(Transcript{Text: msg.Transcript, Confidence: msg.Confidence, Final: msg.Final})
	}
}

func (c *StreamClient) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
			c.mu.Unlock()
			if err != nil {
				c.logger.WithError(err).Warn("Ping failed for speech stream, closing connection")
				conn.Close()
				return
			}
		}
	}
}
