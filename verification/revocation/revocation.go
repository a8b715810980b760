// Package revocation checks credential revocation status against an external
// registry. Absence of a record means not revoked: the registry is
// open-world, and issuers only write entries for credentials they revoke.
// What happens when the registry itself is unreachable is a policy decision
// the caller must make explicitly (see verification.Config.RevocationFailClosed).
package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-verifier-sdk/credential/common/util"
)

// ErrUnavailable reports that the registry could not be reached or answered
// incoherently. Callers apply their fail-open/fail-closed policy to it.
var ErrUnavailable = errors.New("revocation: registry unavailable")

// Registry answers whether a credential identifier has been revoked.
type Registry interface {
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
}

// Config holds revocation client configuration.
type Config struct {
	// BaseURL is the registry endpoint base.
	BaseURL string
	// Timeout bounds a single lookup attempt.
	Timeout time.Duration
	// MaxRetries bounds additional attempts after a transient failure.
	// Zero selects the default; a negative value disables retries.
	MaxRetries int
}

// Client queries a revocation registry over HTTP:
// GET {base}/status/{credentialID} -> {"revoked": bool}. A 404 means no
// record exists, which is treated as not revoked.
type Client struct {
	base       string
	httpClient *http.Client
	maxRetries uint64
}

// NewClient creates a revocation registry client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	retries := uint64(2)
	switch {
	case cfg.MaxRetries > 0:
		retries = uint64(cfg.MaxRetries)
	case cfg.MaxRetries < 0:
		retries = 0
	}

	return &Client{
		base: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: retries,
	}, nil
}

// IsRevoked looks up a credential identifier in the registry.
func (c *Client) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	if credentialID == "" {
		return false, fmt.Errorf("credential identifier is empty")
	}

	var revoked bool

	op := func() error {
		var err error
		revoked, err = c.lookupOnce(ctx, credentialID)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return false, perm.Unwrap()
		}
		return false, err
	}

	return revoked, nil
}

func (c *Client) lookupOnce(ctx context.Context, credentialID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/status/%s", c.base, url.PathEscape(credentialID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No record for this credential: open-world, not revoked.
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: registry returned %s", ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var status struct {
		Revoked bool `json:"revoked"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return false, fmt.Errorf("%w: malformed registry response: %v", ErrUnavailable, err)
	}

	return status.Revoked, nil
}

// StatusListDocument is a status list fetched from a statusListCredential
// URL: a gzip+base64url bitstring where bit i is the revocation flag for the
// credential holding statusListIndex i.
type StatusListDocument struct {
	ID            string `json:"id"`
	StatusPurpose string `json:"statusPurpose"`
	EncodedList   string `json:"encodedList"`
}

// FetchStatusList retrieves and decodes a status list document.
func (c *Client) FetchStatusList(ctx context.Context, listURL string) (*StatusListDocument, error) {
	if listURL == "" {
		return nil, fmt.Errorf("status list URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status list endpoint returned %s", ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc StatusListDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed status list: %v", ErrUnavailable, err)
	}

	return &doc, nil
}

// BitAt decodes the bitstring and reports the revocation bit at position.
func BitAt(encodedList string, position int) (bool, error) {
	if position < 0 {
		return false, fmt.Errorf("negative status list index %d", position)
	}

	bits, err := util.DecompressFromBase64URL(encodedList)
	if err != nil {
		return false, fmt.Errorf("failed to decode status bitstring: %w", err)
	}

	byteIndex := position / 8
	if byteIndex >= len(bits) {
		return false, fmt.Errorf("status list index %d out of range", position)
	}

	return (bits[byteIndex]>>(position%8))&1 == 1, nil
}

// CheckStatusList fetches the list behind a status entry and reads the bit
// for the given index.
func (c *Client) CheckStatusList(ctx context.Context, listURL string, index int) (bool, error) {
	doc, err := c.FetchStatusList(ctx, listURL)
	if err != nil {
		return false, err
	}

	// Only revocation lists carry revocation semantics.
	if doc.StatusPurpose != "" && doc.StatusPurpose != "revocation" {
		return false, nil
	}

	return BitAt(doc.EncodedList, index)
}
