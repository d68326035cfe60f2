package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/cmdweb/schema"
)

const maxRemoteResponse = 1 << 20

// Remote asks an HTTP endpoint for completions. The request body is
// {"commandPrefix": "<prefix>"} and the response is {"suggestions": [...]}.
type Remote struct {
	endpoint string
	client   *http.Client
	limit    int
}

type remoteRequest struct {
	CommandPrefix string `json:"commandPrefix"`
}

type remoteResponse struct {
	Suggestions []string `json:"suggestions"`
}

// NewRemote validates endpoint and returns a provider. A nil client uses a
// client with a 10s timeout.
func NewRemote(endpoint string, client *http.Client, limit int) (*Remote, error) {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("remote suggest url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("remote suggest url must be http or https")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Remote{endpoint: parsed.String(), client: client, limit: limit}, nil
}

// Lookup posts prefix to the endpoint.
func (r *Remote) Lookup(ctx context.Context, prefix string) ([]string, error) {
	body, err := json.Marshal(remoteRequest{CommandPrefix: prefix})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRemoteResponse))
		return nil, fmt.Errorf("%w: status %d", schema.ErrProviderUnavailable, resp.StatusCode)
	}
	var payload remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteResponse)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", schema.ErrProviderUnavailable, err)
	}
	out := normalizeWords(payload.Suggestions)
	if len(out) > r.limit {
		out = out[:r.limit]
	}
	return out, nil
}
