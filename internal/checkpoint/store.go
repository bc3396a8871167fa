package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/specialistvlad/mjlaunch/internal/fsutil"
)

// Artifact is a checkpoint fetched from a remote store.
type Artifact struct {
	Name   string
	Data   []byte
	SHA256 string
}

// Store fetches checkpoints of remote runs.
type Store interface {
	Fetch(ctx context.Context, runReference, selector string) (*Artifact, error)
}

// Response headers of the HTTP checkpoint store.
const (
	HeaderCheckpointName   = "X-Checkpoint-Name"
	HeaderCheckpointSHA256 = "X-Checkpoint-Sha256"
)

// HTTPStore fetches checkpoints from an HTTP artifact service at
// GET <base>/runs/<run reference>/checkpoints/<selector>. Transient failures
// are retried up to MaxAttempts times.
type HTTPStore struct {
	BaseURL     string
	Token       string
	Client      *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

// NewHTTPStore returns a store with default retry settings.
func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		BaseURL:     baseURL,
		Token:       token,
		Client:      &http.Client{Timeout: 10 * time.Minute},
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

// Fetch downloads a checkpoint, retrying transient failures.
func (s *HTTPStore) Fetch(ctx context.Context, runReference, selector string) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx).With("run_reference", runReference, "selector", selector)
	if selector == "" {
		selector = "latest"
	}
	segs := append([]string{"runs"}, strings.Split(strings.Trim(runReference, "/"), "/")...)
	u, err := url.JoinPath(s.BaseURL, append(segs, "checkpoints", selector)...)
	if err != nil {
		return nil, &FetchError{RunReference: runReference, Err: err}
	}

	attempts := max(s.MaxAttempts, 1)
	var lastErr error
	attempt := 0
	for attempt < attempts {
		attempt++
		art, retry, err := s.fetchOnce(ctx, u)
		if err == nil {
			logger.Debug("Fetched remote checkpoint.", "name", art.Name, "bytes", len(art.Data), "attempt", attempt)
			return art, nil
		}
		lastErr = err
		if !retry || attempt == attempts {
			break
		}
		logger.Warn("Remote checkpoint fetch failed, retrying.", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, &FetchError{RunReference: runReference, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(s.Backoff * time.Duration(attempt)):
		}
	}
	return nil, &FetchError{RunReference: runReference, Attempts: attempt, Err: lastErr}
}

// fetchOnce performs one request. The boolean reports whether the failure is
// worth retrying.
func (s *HTTPStore) fetchOnce(ctx context.Context, u string) (*Artifact, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errors.New("remote run or checkpoint not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("remote store returned %s", resp.Status)
	default:
		return nil, false, fmt.Errorf("remote store returned %s", resp.Status)
	}

	name := resp.Header.Get(HeaderCheckpointName)
	if err := validName(name); err != nil {
		return nil, false, fmt.Errorf("remote store response: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read checkpoint body: %w", err)
	}
	sum := fsutil.SHA256(data)
	if want := strings.ToLower(resp.Header.Get(HeaderCheckpointSHA256)); want != "" && want != sum {
		return nil, true, fmt.Errorf("checkpoint digest mismatch: got %s, want %s", sum, want)
	}
	return &Artifact{Name: name, Data: data, SHA256: sum}, false, nil
}
