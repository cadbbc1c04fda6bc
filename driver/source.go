package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/hourmaster/proto"
)

// HTTPSource polls a hourmaster service's /state endpoint. The endpoint
// returns the standard envelope with a Status payload.
type HTTPSource struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPSource builds a source for the given state URL. token is the
// bearer token of the polled subject; empty disables the header (useful
// against unauthenticated test servers).
func NewHTTPSource(url, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Current fetches and decodes the subject's current status.
func (s *HTTPSource) Current(ctx context.Context) (proto.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return proto.Status{}, fmt.Errorf("build request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return proto.Status{}, fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data  *proto.Status `json:"data"`
		Error *proto.Error  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return proto.Status{}, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return proto.Status{}, fmt.Errorf("service error: %s", envelope.Error.Message)
	}
	if envelope.Data == nil {
		return proto.Status{}, fmt.Errorf("empty response from %s", s.url)
	}
	return *envelope.Data, nil
}
