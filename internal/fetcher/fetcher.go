// Package fetcher downloads remote M3U playlists.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glefebvre/iptvcore/internal/circuitbreaker"
	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/metrics"
	"github.com/glefebvre/iptvcore/internal/retry"
)

// ErrTooLarge is returned when a playlist exceeds the configured size
var ErrTooLarge = errors.New("playlist exceeds maximum size")

// HTTPStatusError is returned for non-2xx responses
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Client fetches playlist bodies over HTTP
type Client struct {
	cfg        config.FetchConfig
	logger     *logger.Logger
	httpClient *http.Client
	retryCfg   retry.Config
	breakerCfg circuitbreaker.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewClient creates a fetch client from the fetch configuration
func NewClient(cfg config.FetchConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.AppLogger()
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryAttempts

	c := &Client{
		cfg:        cfg,
		logger:     log,
		httpClient: httpClient,
		retryCfg:   retryCfg,
		breakerCfg: circuitbreaker.DefaultConfig(),
		breakers:   make(map[string]*circuitbreaker.CircuitBreaker),
	}
	c.retryCfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		}).Warn("Playlist fetch failed, retrying")
	}
	c.breakerCfg.IsFailure = countsAgainstHost

	return c
}

// Fetch downloads the playlist at rawURL and returns its body
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", apperrors.ValidationError(fmt.Sprintf("invalid playlist URL: %s", rawURL))
	}

	fl := c.logger.WithContext(ctx).WithFields(map[string]interface{}{"url": rawURL})
	fl.Debug("Fetching playlist")

	var body string
	err = c.breakerFor(u.Host).Execute(func() error {
		var ferr error
		body, ferr = retry.Do(ctx, c.retryCfg, func(ctx context.Context) (string, error) {
			return c.fetchOnce(ctx, rawURL)
		})
		return ferr
	})

	var statusErr *HTTPStatusError
	switch {
	case err == nil:
		metrics.Fetches.WithLabelValues(metrics.FetchOK).Inc()
		fl.WithFields(map[string]interface{}{"size_bytes": len(body)}).Info("Playlist fetched")
		return body, nil

	case errors.As(err, &statusErr):
		metrics.Fetches.WithLabelValues(metrics.FetchHTTPError).Inc()
		fl.WithFields(map[string]interface{}{"status": statusErr.StatusCode}).Warn("Playlist fetch rejected by server")
		return "", statusErr

	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		metrics.Fetches.WithLabelValues(metrics.FetchCircuitOpen).Inc()
		fl.Warn("Playlist host is failing, fetch skipped")
		return "", apperrors.NetworkError(rawURL, "playlist host temporarily unavailable", err)

	default:
		metrics.Fetches.WithLabelValues(metrics.FetchNetwork).Inc()
		fl.Error("Playlist fetch failed", err)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", apperrors.NetworkError(rawURL, "failed to fetch playlist", err)
	}
}

// fetchOnce performs a single GET; only transport failures and 5xx are retryable
func (c *Client) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", retry.Permanent(ctx.Err())
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Status: statusText(resp)}
		if resp.StatusCode >= 500 {
			return "", statusErr
		}
		return "", retry.Permanent(statusErr)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isPlaylistContentType(ct) {
		c.logger.WithFields(map[string]interface{}{
			"content_type": ct,
		}).Warn("Unexpected content type, proceeding anyway")
	}

	maxSize := c.cfg.MaxSizeMB * 1024 * 1024
	if maxSize > 0 && resp.ContentLength > maxSize {
		return "", retry.Permanent(fmt.Errorf("%w: %d bytes exceeds %d MB limit", ErrTooLarge, resp.ContentLength, c.cfg.MaxSizeMB))
	}

	var reader io.Reader = resp.Body
	if maxSize > 0 {
		reader = io.LimitReader(resp.Body, maxSize+1)
	}

	var buf bytes.Buffer
	written, err := io.Copy(&buf, reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if maxSize > 0 && written > maxSize {
		return "", retry.Permanent(fmt.Errorf("%w: download exceeds %d MB limit", ErrTooLarge, c.cfg.MaxSizeMB))
	}

	return buf.String(), nil
}

func (c *Client) breakerFor(host string) *circuitbreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[host]; ok {
		return cb
	}

	cfg := c.breakerCfg
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		c.logger.WithFields(map[string]interface{}{
			"host": host,
			"from": from.String(),
			"to":   to.String(),
		}).Warn("Playlist host circuit changed state")
	}
	cb := circuitbreaker.New(cfg)
	c.breakers[host] = cb
	return cb
}

// countsAgainstHost treats transport errors and 5xx as host failures
func countsAgainstHost(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrTooLarge) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	return true
}

// statusText strips the numeric prefix from resp.Status
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func isPlaylistContentType(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "application/vnd.apple.mpegurl",
		"application/x-mpegurl",
		"audio/x-mpegurl",
		"audio/mpegurl",
		"text/plain",
		"application/octet-stream":
		return true
	}
	return false
}
