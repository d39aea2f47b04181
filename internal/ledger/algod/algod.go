// Package algod implements ledger.Client against an algod REST endpoint.
package algod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/retry"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Config configures the node client.
type Config struct {
	URL       string
	Token     string
	UserAgent string

	// RequestsPerSecond bounds outbound calls. Zero means 10.
	RequestsPerSecond float64
	// Timeout bounds each request. Zero means 10s.
	Timeout time.Duration
	// Retry applies to reads only.
	Retry retry.Config
}

// account is the subset of account information we read.
type account struct {
	Amount   uint64
	Holdings []ledger.Holding
}

// pending is the subset of pending transaction information we read.
type pending struct {
	ConfirmedRound uint64
	AssetIndex     uint64
	PoolError      string
}

// node is the algod surface the client drives. sdkNode adapts the SDK.
type node interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	Account(ctx context.Context, address string) (account, error)
	Asset(ctx context.Context, id uint64) (*ledger.Asset, error)
	SendRaw(ctx context.Context, raw []byte) (string, error)
	Pending(ctx context.Context, txID string) (pending, error)
	LastRound(ctx context.Context) (uint64, error)
	WaitForRound(ctx context.Context, round uint64) error
}

// Client implements ledger.Client.
type Client struct {
	node    node
	limiter *rate.Limiter
	timeout time.Duration
	retry   retry.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

var _ ledger.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every node call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for cfg.URL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"field": "ledger.url"})
	}
	var headers []*common.Header
	if cfg.UserAgent != "" {
		headers = append(headers, &common.Header{Key: "User-Agent", Value: cfg.UserAgent})
	}
	sdk, err := algod.MakeClientWithHeaders(cfg.URL, cfg.Token, headers)
	if err != nil {
		return nil, walleterr.Wrap(err, "creating algod client")
	}
	return newClient(sdkNode{c: sdk}, cfg, opts...), nil
}

func newClient(n node, cfg Config, opts ...Option) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	c := &Client{
		node:    n,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(int(cfg.RequestsPerSecond), 1)),
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		metrics: metrics.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// read runs a rate-limited, retried read and classifies its failure.
func read[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	return retry.DoWithConfig(ctx, c.retry, func(ctx context.Context) (T, error) {
		var zero T
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		start := time.Now()
		v, err := op(rctx)
		c.metrics.RecordLedgerCall(time.Since(start), err)
		return v, ledger.Classify(err)
	})
}

// FeeParameters implements ledger.Client.
func (c *Client) FeeParameters(ctx context.Context) (types.SuggestedParams, error) {
	return read(ctx, c, c.node.SuggestedParams)
}

// AccountBalance implements ledger.Client.
func (c *Client) AccountBalance(ctx context.Context, address string) (uint64, error) {
	acct, err := read(ctx, c, func(ctx context.Context) (account, error) {
		return c.node.Account(ctx, address)
	})
	return acct.Amount, err
}

// AccountHoldings implements ledger.Client.
func (c *Client) AccountHoldings(ctx context.Context, address string) ([]ledger.Holding, error) {
	acct, err := read(ctx, c, func(ctx context.Context) (account, error) {
		return c.node.Account(ctx, address)
	})
	return acct.Holdings, err
}

// AssetInfo implements ledger.Client.
func (c *Client) AssetInfo(ctx context.Context, assetID uint64) (*ledger.Asset, error) {
	return read(ctx, c, func(ctx context.Context) (*ledger.Asset, error) {
		return c.node.Asset(ctx, assetID)
	})
}

// Submit sends the signed transactions as one group and returns the id of
// the first. It is never retried; an already-recorded group is reported as
// ErrAlreadyRecorded.
func (c *Client) Submit(ctx context.Context, signed [][]byte) (string, error) {
	if len(signed) == 0 {
		return "", walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"reason": "nothing to submit"})
	}
	var raw []byte
	for _, stx := range signed {
		raw = append(raw, stx...)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	txID, err := c.node.SendRaw(rctx, raw)
	c.metrics.RecordLedgerCall(time.Since(start), err)
	if err != nil {
		c.logger.Warn("submission failed", zap.Int("group_size", len(signed)), zap.Error(err))
		return "", ledger.Classify(err)
	}
	c.logger.Info("group submitted", zap.String("tx_id", txID), zap.Int("group_size", len(signed)))
	return txID, nil
}

// AwaitConfirmation polls until txID is confirmed, the pool rejects it, or
// maxRounds rounds pass.
func (c *Client) AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*ledger.Confirmation, error) {
	start, err := read(ctx, c, c.node.LastRound)
	if err != nil {
		return nil, err
	}
	round := start
	for {
		p, err := read(ctx, c, func(ctx context.Context) (pending, error) {
			return c.node.Pending(ctx, txID)
		})
		if err != nil {
			return nil, err
		}
		if p.PoolError != "" {
			return nil, ledger.Classify(errors.New(p.PoolError))
		}
		if p.ConfirmedRound > 0 {
			return &ledger.Confirmation{TxID: txID, Round: p.ConfirmedRound, AssetID: p.AssetIndex}, nil
		}
		if round-start >= maxRounds {
			return nil, ledger.NotConfirmed(txID)
		}
		round++
		if _, err := read(ctx, c, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.node.WaitForRound(ctx, round)
		}); err != nil {
			return nil, err
		}
	}
}

// LookupAssetCreationResult returns the id of the asset created by txID.
func (c *Client) LookupAssetCreationResult(ctx context.Context, txID string) (uint64, error) {
	p, err := read(ctx, c, func(ctx context.Context) (pending, error) {
		return c.node.Pending(ctx, txID)
	})
	if err != nil {
		return 0, err
	}
	if p.AssetIndex == 0 {
		return 0, walleterr.WithDetails(walleterr.ErrGeneral, map[string]string{
			"reason": fmt.Sprintf("transaction %s created no asset", txID),
		})
	}
	return p.AssetIndex, nil
}
