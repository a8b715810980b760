// Package anchor provides read-only access to the credential anchoring
// registry contract. Records are immutable once anchored; this client only
// queries, it never submits transactions.
package anchor

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

//go:embed anchor_registry_abi.json
var registryABIJSON []byte

var (
	parsedABI    abi.ABI
	parseABIOnce sync.Once
	errParseABI  error
)

// loadABI parses the embedded registry ABI exactly once.
func loadABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		type hardhatArtifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		var artifact hardhatArtifact
		if err := json.Unmarshal(registryABIJSON, &artifact); err != nil {
			errParseABI = fmt.Errorf("failed to unmarshal artifact JSON: %w", err)
			return
		}
		parsedABI, errParseABI = abi.JSON(strings.NewReader(string(artifact.ABI)))
	})

	return parsedABI, errParseABI
}

// ErrNotFound reports that no record is anchored for the queried address.
var ErrNotFound = errors.New("anchor: record not found")

// Record is an anchored issuer/content-address binding.
type Record struct {
	Issuer    string
	Timestamp time.Time
	CID       string
}

// Config holds registry client configuration.
type Config struct {
	// RPCURL is the ledger node endpoint. Required for lookups.
	RPCURL string
	// ContractAddress is the anchoring registry contract.
	ContractAddress string
	// MaxRetries bounds additional attempts on transient RPC failure.
	// Zero selects the default; a negative value disables retries.
	MaxRetries int
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("RPC URL is required")
	}
	if c.ContractAddress == "" {
		return errors.New("contract address is required")
	}

	return nil
}

// Registry is a client for the anchoring registry contract.
type Registry struct {
	contract   *bind.BoundContract
	maxRetries uint64
}

// NewRegistry creates a registry client. The ethclient connects lazily, so
// an unreachable node surfaces on the first lookup, not here.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger RPC: %w", err)
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(cfg.ContractAddress), contractABI, client, client, nil)

	retries := uint64(2)
	switch {
	case cfg.MaxRetries > 0:
		retries = uint64(cfg.MaxRetries)
	case cfg.MaxRetries < 0:
		retries = 0
	}

	return &Registry{contract: contract, maxRetries: retries}, nil
}

// Lookup queries the registry for the record anchored under the given
// content address. Returns ErrNotFound when nothing is anchored. Transient
// RPC failures are retried a bounded number of times.
func (r *Registry) Lookup(ctx context.Context, cid string) (*Record, error) {
	if cid == "" {
		return nil, fmt.Errorf("content address is empty")
	}

	var out []interface{}
	attempt := 0

	op := func() error {
		attempt++
		out = out[:0]
		err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRecord", cid)
		if err != nil {
			slog.WarnContext(ctx, "registry call failed",
				"cid", cid, "attempt", attempt, "error", err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("failed to query anchor registry: %w", err)
	}

	return decodeRecord(out)
}

func decodeRecord(out []interface{}) (*Record, error) {
	if len(out) != 4 {
		return nil, fmt.Errorf("unexpected getRecord output arity %d", len(out))
	}

	issuer, ok1 := out[0].(string)
	timestamp, ok2 := out[1].(*big.Int)
	cid, ok3 := out[2].(string)
	exists, ok4 := out[3].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("unexpected getRecord output types")
	}

	if !exists {
		return nil, ErrNotFound
	}

	return &Record{
		Issuer:    issuer,
		Timestamp: time.Unix(timestamp.Int64(), 0).UTC(),
		CID:       cid,
	}, nil
}
