// Package fetcher resolves opaque content addresses to raw document bytes.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Fetch failure classes. Callers distinguish them with errors.Is.
var (
	ErrNotFound = errors.New("fetch: content not found")
	ErrTimeout  = errors.New("fetch: timed out")
	ErrCorrupt  = errors.New("fetch: content does not match address")
)

// Fetcher resolves a content address to raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// Config holds gateway fetcher configuration. Zero values are defaulted.
type Config struct {
	// GatewayURL is the base URL of the content-addressed store gateway.
	GatewayURL string
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration
	// MaxRetries bounds additional attempts after a timeout. NotFound is
	// never retried. Zero selects the default; a negative value disables
	// retries entirely.
	MaxRetries int
}

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
)

// Gateway fetches documents from an HTTP content-addressed gateway
// (IPFS-style: GET {base}/ipfs/{address}).
type Gateway struct {
	base       string
	client     *http.Client
	maxRetries uint64
}

// NewGateway creates a gateway fetcher.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("gateway URL is required")
	}
	if _, err := url.Parse(cfg.GatewayURL); err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Gateway{
		base: strings.TrimSuffix(cfg.GatewayURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: resolveRetries(cfg.MaxRetries, defaultMaxRetries),
	}, nil
}

// resolveRetries maps the three-way retry knob onto a backoff bound: zero
// means the default, negative means no retries.
func resolveRetries(configured, fallback int) uint64 {
	switch {
	case configured > 0:
		return uint64(configured)
	case configured < 0:
		return 0
	default:
		return uint64(fallback)
	}
}

// Fetch retrieves the bytes behind a content address. Timeouts are retried
// with exponential backoff up to the configured budget; NotFound fails
// immediately. When the address itself is a sha256 digest the retrieved
// bytes are checked against it and a mismatch reports ErrCorrupt.
func (g *Gateway) Fetch(ctx context.Context, address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("content address is empty")
	}

	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		var err error
		body, err = g.fetchOnce(ctx, address)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrTimeout):
			slog.WarnContext(ctx, "fetch attempt timed out",
				"address", address, "attempt", attempt)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Unwrap()
		}
		return nil, err
	}

	if err := checkIntegrity(address, body); err != nil {
		return nil, err
	}

	return body, nil
}

func (g *Gateway) fetchOnce(ctx context.Context, address string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"/ipfs/"+url.PathEscape(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: address %s", ErrNotFound, address)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: gateway returned %s", ErrTimeout, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gateway returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// checkIntegrity recomputes the digest when the address is itself a hex
// sha256 value. Gateway responses for multihash addresses are trusted to the
// storage layer.
func checkIntegrity(address string, body []byte) error {
	addr := strings.TrimPrefix(strings.ToLower(address), "0x")
	if len(addr) != sha256.Size*2 {
		return nil
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return nil
	}

	sum := sha256.Sum256(body)
	if hex.EncodeToString(sum[:]) != addr {
		return fmt.Errorf("%w: digest mismatch for %s", ErrCorrupt, address)
	}

	return nil
}
