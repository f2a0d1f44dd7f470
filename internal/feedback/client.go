package feedback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NexaVoice/internal/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultUserAgent = "NexaVoice/1.0"

// StatusError is a non-2xx answer from the feedback API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feedback API returned %d: %s", e.Status, e.Message)
}

// Blob is an opaque export payload.
type Blob struct {
	Data        []byte
	ContentType string
}

// Client talks to the remote feedback API mounted at <baseURL>/api/voice.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithClientUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

func (c *Client) SubmitFeedback(ctx context.Context, sub entity.FeedbackSubmission) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodPost, "/api/voice/feedback", sub, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FeedbackBySession(ctx context.Context, sessionID string) (entity.SessionFeedback, error) {
	var out entity.SessionFeedback
	err := c.do(ctx, http.MethodGet, "/api/voice/feedback/session/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

func (c *Client) Analytics(ctx context.Context) (entity.FeedbackAnalytics, error) {
	var out entity.FeedbackAnalytics
	err := c.do(ctx, http.MethodGet, "/api/voice/feedback/analytics", nil, &out)
	return out, err
}

func (c *Client) CommandSuggestions(ctx context.Context, command string) ([]entity.CommandSuggestion, error) {
	var out struct {
		Suggestions []entity.CommandSuggestion `json:"suggestions"`
	}
	q := strings.ReplaceAll(url.QueryEscape(command), "+", "%20")
	err := c.do(ctx, http.MethodGet, "/api/voice/suggestions?command="+q, nil, &out)
	if out.Suggestions == nil {
		out.Suggestions = []entity.CommandSuggestion{}
	}
	return out.Suggestions, err
}

func (c *Client) Export(ctx context.Context, req entity.ExportRequest) (Blob, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/voice/feedback/export", req)
	if err != nil {
		return Blob{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read export: %w", err)
	}
	return Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send returns the response for 2xx answers; anything else is a *StatusError
// carrying the server's "error" message, or a transport error.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: payload.Error}
	}

	return resp, nil
}
