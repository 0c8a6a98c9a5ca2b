// Package executor runs listings queries against the upstream listings API.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/core/observability"
)

const maxBody = 8 << 20

type Interface interface {
	Fetch(ctx context.Context, q url.Values) ([]byte, string, error)
}

// StatusError is returned when the listings API answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

type Executor struct {
	logger   *slog.Logger
	client   *http.Client
	apiURL   *url.URL
	token    string
	startNow func() time.Time // for tests
}

type Option func(*Executor)

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) Option {
	return func(e *Executor) { e.token = token }
}

func New(logger *slog.Logger, client *http.Client, apiURL string, opts ...Option) (*Executor, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse listings api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("listings api url %q must be absolute", apiURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		logger:   logger,
		client:   client,
		apiURL:   u,
		startNow: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Fetch runs one listings query and returns the raw body and its content type.
func (e *Executor) Fetch(ctx context.Context, q url.Values) ([]byte, string, error) {
	u := *e.apiURL
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	start := e.startNow()
	b, ct, err := e.do(req)
	dur := time.Since(start)
	observability.ObserveUpstreamLatency("listings", err, dur.Seconds())
	e.logger.DebugContext(ctx, "listings query done", "duration", dur.String(), "err", err)
	return b, ct, err
}

func (e *Executor) do(req *http.Request) ([]byte, string, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, "", &StatusError{Status: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(b) > maxBody {
		return nil, "", errors.New("upstream body too large")
	}
	return b, resp.Header.Get("Content-Type"), nil
}
