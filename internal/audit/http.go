package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultHTTPTimeout = 5 * time.Second

// HTTPSink posts each event as JSON to a remote log server with a bearer token.
// Delivery is best effort: failures are logged and the event is dropped.
type HTTPSink struct {
	url    string
	token  string
	client *http.Client
	logger zerolog.Logger
}

// HTTPOption customizes an [HTTPSink].
type HTTPOption func(*HTTPSink)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHTTPLogger sets the logger used for delivery failures.
func WithHTTPLogger(l zerolog.Logger) HTTPOption {
	return func(s *HTTPSink) { s.logger = l }
}

func NewHTTPSink(url, token string, opts ...HTTPOption) *HTTPSink {
	s := &HTTPSink{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSink) Emit(ctx context.Context, event Event) {
	if err := s.post(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.EventType).Msg("audit: remote log delivery failed")
	}
}

func (s *HTTPSink) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("log server returned %s", resp.Status)
	}
	return nil
}
