package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mevbacktest/backtester/business/blockchain/app"
	"github.com/mevbacktest/backtester/business/blockchain/domain"
	"github.com/mevbacktest/backtester/internal/apperror"
	"github.com/mevbacktest/backtester/internal/circuitbreaker"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/ratelimit"
)

var _ app.BlockFetcher = (*Fetcher)(nil)

const (
	tracerName = "github.com/mevbacktest/backtester/business/blockchain/infra/ethereum"
	meterName  = "github.com/mevbacktest/backtester/business/blockchain/infra/ethereum"
)

// FetcherConfig holds configuration for the historical block fetcher.
type FetcherConfig struct {
	Concurrency    int           // semaphore capacity
	MaxRetries     int           // retry budget per leaf RPC call
	InitialBackoff time.Duration // base of exponential backoff
	CallTimeout    time.Duration // per-call timeout
}

// DefaultFetcherConfig returns the documented configuration-surface defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Concurrency:    10,
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		CallTimeout:    10 * time.Second,
	}
}

// fetcherMetrics holds the OTEL instruments for the fetcher's leaf RPC calls.
type fetcherMetrics struct {
	blocksFetched metric.Int64Counter
	rpcRetries    metric.Int64Counter
	rpcFailures   metric.Int64Counter
}

func newFetcherMetrics() (*fetcherMetrics, error) {
	meter := otel.Meter(meterName)
	var err error
	m := &fetcherMetrics{}

	m.blocksFetched, err = meter.Int64Counter(
		"fetcher_blocks_fetched_total",
		metric.WithDescription("Total blocks successfully fetched"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	m.rpcRetries, err = meter.Int64Counter(
		"fetcher_rpc_retries_total",
		metric.WithDescription("Total retried leaf RPC calls"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	m.rpcFailures, err = meter.Int64Counter(
		"fetcher_rpc_failures_total",
		metric.WithDescription("Total leaf RPC calls that exhausted their retry budget"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Fetcher implements BlockFetcher against a standard JSON-RPC Ethereum
// endpoint. A single capacity-bounded permit channel is the only cross-task
// contention point: the permit is acquired immediately before, and released
// immediately after, each leaf eth_getBlockByNumber/eth_getBlockReceipts
// round-trip — never around FetchRange's task spawn, so a range fetch can
// never self-deadlock the pool. A rate limiter paces request *rate*
// independent of the permit pool's bound on concurrent in-flight requests.
type Fetcher struct {
	cfg    FetcherConfig
	logger logger.LoggerInterface
	client *ethclient.Client

	permits chan struct{}
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[any]

	tracer  trace.Tracer
	metrics *fetcherMetrics
}

// NewFetcher constructs a Fetcher over an already-dialed client. The rate
// limiter's burst tracks the permit pool's capacity so a freshly started
// fetcher can saturate its own concurrency budget immediately.
func NewFetcher(client *ethclient.Client, cfg FetcherConfig, log logger.LoggerInterface) *Fetcher {
	metrics, err := newFetcherMetrics()
	if err != nil {
		log.Warn(context.Background(), "fetcher metrics init failed, continuing without them", "error", err)
		metrics = nil
	}

	return &Fetcher{
		cfg:     cfg,
		logger:  log,
		client:  client,
		permits: make(chan struct{}, cfg.Concurrency),
		limiter: ratelimit.NewWithBurst(float64(cfg.Concurrency)*2, cfg.Concurrency),
		cb:      circuitbreaker.New[any](circuitbreaker.DefaultConfig("eth-fetcher")),
		tracer:  otel.Tracer(tracerName),
		metrics: metrics,
	}
}

// FetchBlock retrieves block number's header, full transaction list and
// receipts, retrying transient RPC failures per leaf call.
func (f *Fetcher) FetchBlock(ctx context.Context, number uint64) (*domain.Block, []domain.TxWithReceipt, error) {
	ctx, span := f.tracer.Start(ctx, "eth.fetch_block",
		trace.WithAttributes(attribute.Int64("block_number", int64(number))),
	)
	defer span.End()

	blk, err := f.callWithRetry(ctx, fmt.Sprintf("eth_getBlockByNumber(%d)", number), func(ctx context.Context) (any, error) {
		return f.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "block fetch failed")
		return nil, nil, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("fetch block %d", number)))
	}
	ethBlock := blk.(*types.Block)

	rawReceipts, err := f.callWithRetry(ctx, fmt.Sprintf("eth_getBlockReceipts(%d)", number), func(ctx context.Context) (any, error) {
		var receipts []*types.Receipt
		hexNumber := fmt.Sprintf("0x%x", number)
		rpcErr := f.client.Client().CallContext(ctx, &receipts, "eth_getBlockReceipts", hexNumber)
		return receipts, rpcErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipts fetch failed")
		return nil, nil, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("fetch receipts for block %d", number)))
	}
	receipts := rawReceipts.([]*types.Receipt)

	block := headerToDomainBlock(ethBlock)
	txs := mergeTxsAndReceipts(ethBlock, receipts)

	if f.metrics != nil {
		f.metrics.blocksFetched.Add(ctx, 1)
	}
	span.SetStatus(codes.Ok, "fetched")
	return block, txs, nil
}

// FetchRange retrieves every block in [from, to], one task per block
// sharing the fetcher's permit pool, collecting partial failures rather
// than aborting the whole range on the first error.
func (f *Fetcher) FetchRange(ctx context.Context, from, to uint64) (*app.RangeResult, error) {
	ctx, span := f.tracer.Start(ctx, "eth.fetch_range",
		trace.WithAttributes(
			attribute.Int64("from", int64(from)),
			attribute.Int64("to", int64(to)),
		),
	)
	defer span.End()

	if to < from {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("fetch range: to precedes from"))
	}

	result := &app.RangeResult{
		Blocks: make(map[uint64]*domain.Block),
		Txs:    make(map[uint64][]domain.TxWithReceipt),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for n := from; n <= to; n++ {
		wg.Add(1)
		go func(number uint64) {
			defer wg.Done()
			block, txs, err := f.FetchBlock(ctx, number)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Warn(ctx, "block fetch failed after retries", "block", number, "error", err)
				result.Failed = append(result.Failed, number)
				return
			}
			result.Blocks[number] = block
			result.Txs[number] = txs
		}(n)
	}
	wg.Wait()

	span.SetAttributes(
		attribute.Int("fetched", len(result.Blocks)),
		attribute.Int("failed", len(result.Failed)),
	)
	span.SetStatus(codes.Ok, "range fetched")
	return result, nil
}

// callWithRetry acquires a permit, then retries fn up to cfg.MaxRetries
// times with 100*2^attempt ms backoff, stopping early on a fatal
// (non-transient) error. The permit is released before any backoff sleep,
// matching the leaf-call-only acquisition rule: a held permit never spans
// a sleep, only the round-trip itself.
func (f *Fetcher) callWithRetry(ctx context.Context, label string, fn func(context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		result, err := f.callOnce(ctx, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		if attempt == f.cfg.MaxRetries {
			break
		}
		if f.metrics != nil {
			f.metrics.rpcRetries.Add(ctx, 1)
		}
		backoff := f.cfg.InitialBackoff * time.Duration(1<<uint(attempt))
		f.logger.Debug(ctx, "retrying rpc call", "call", label, "attempt", attempt+1, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if f.metrics != nil {
		f.metrics.rpcFailures.Add(ctx, 1)
	}
	return nil, lastErr
}

// callOnce acquires the shared permit for the duration of exactly one
// leaf RPC round-trip, releasing it before returning.
func (f *Fetcher) callOnce(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	select {
	case f.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.permits }()

	callCtx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout)
	defer cancel()

	return f.cb.Execute(func() (any, error) {
		return fn(callCtx)
	})
}

// isTransient reports whether err represents a retryable fault: timeouts,
// connection resets, and rate-limit-like responses. Anything else
// (malformed requests, not-found blocks) is treated as fatal.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	markers := []string{
		"timeout", "timed out", "connection reset", "connection refused",
		"too many requests", "rate limit", "429", "temporarily unavailable", "eof",
		"502 bad gateway", "503 service unavailable", "504 gateway timeout",
	}
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func headerToDomainBlock(b *types.Block) *domain.Block {
	return &domain.Block{
		Number:      b.NumberU64(),
		Hash:        b.Hash(),
		ParentHash:  b.ParentHash(),
		Timestamp:   time.Unix(int64(b.Time()), 0),
		GasLimit:    b.GasLimit(),
		GasUsed:     b.GasUsed(),
		BaseFee:     b.BaseFee(),
		Beneficiary: b.Coinbase(),
	}
}

func mergeTxsAndReceipts(b *types.Block, receipts []*types.Receipt) []domain.TxWithReceipt {
	receiptByHash := make(map[string]*types.Receipt, len(receipts))
	for _, r := range receipts {
		receiptByHash[r.TxHash.Hex()] = r
	}

	out := make([]domain.TxWithReceipt, 0, len(b.Transactions()))
	for _, tx := range b.Transactions() {
		r, ok := receiptByHash[tx.Hash().Hex()]
		if !ok {
			continue
		}
		signer := types.LatestSignerForChainID(tx.ChainId())
		from, _ := types.Sender(signer, tx)

		legacy := tx.Type() == types.LegacyTxType
		rec := domain.TxWithReceipt{
			Hash:              tx.Hash(),
			From:              from,
			To:                tx.To(),
			GasUsed:           r.GasUsed,
			Status:            r.Status,
			EffectiveGasPrice: r.EffectiveGasPrice,
			GasPrice:          tx.GasPrice(),
			MaxFeePerGas:      tx.GasFeeCap(),
			MaxPriorityFeePerGas: tx.GasTipCap(),
			IsLegacy:          legacy,
			Logs:              r.Logs,
			TxIndex:           uint(r.TransactionIndex),
		}
		out = append(out, rec)
	}
	return out
}
