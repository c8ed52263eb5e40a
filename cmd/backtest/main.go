// Package main is the entry point for the historical MEV backtester.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/mevbacktest/backtester/business/blockchain"
	blockchainDI "github.com/mevbacktest/backtester/business/blockchain/di"
	"github.com/mevbacktest/backtester/business/mev"
	mevApp "github.com/mevbacktest/backtester/business/mev/app"
	mevDI "github.com/mevbacktest/backtester/business/mev/di"
	mevDomain "github.com/mevbacktest/backtester/business/mev/domain"
	mevInfra "github.com/mevbacktest/backtester/business/mev/infra"
	"github.com/mevbacktest/backtester/business/pricing"
	pricingDI "github.com/mevbacktest/backtester/business/pricing/di"
	pricingDomain "github.com/mevbacktest/backtester/business/pricing/domain"
	"github.com/mevbacktest/backtester/internal/apm"
	"github.com/mevbacktest/backtester/internal/asset"
	"github.com/mevbacktest/backtester/internal/config"
	"github.com/mevbacktest/backtester/internal/health"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/metrics"
	"github.com/mevbacktest/backtester/internal/monolith"
	"github.com/shopspring/decimal"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mev-backtester %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting mev backtester",
		"version", version,
		"environment", cfg.App.Environment,
		"from_block", cfg.Backtest.FromBlock,
		"to_block", cfg.Backtest.ToBlock,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			if err := traceProvider.Stop(); err != nil {
				log.Warn(ctx, "failed to stop trace provider", "error", err)
			}
		}
	}()

	healthServer := health.NewServer(8081, version)
	healthServer.RegisterCheck("rpc", func(ctx context.Context) (bool, string) { return true, "" })
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&mev.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	logAdHocPriceComparison(ctx, mono, log)

	return runBacktest(ctx, mono, cfg, log)
}

// logAdHocPriceComparison pulls one CEX/DEX price snapshot for WETH-USDT at
// run startup and logs it for human review. It compares the current (live)
// DEX quote against the latest historical kline close, so it is informative
// only alongside a backtest whose range ends near the present; it never
// feeds, gates, or gets compared against anything the detection pipeline
// computes.
func logAdHocPriceComparison(ctx context.Context, mono monolith.Monolith, log logger.LoggerInterface) {
	pricingSvc := pricingDI.GetPricingService(mono.Services())
	pair := pricingDomain.NewPair(asset.WETH, asset.USDT)
	snapshot, err := pricingSvc.GetPriceSnapshot(ctx, pair, "ETHUSDT", "1m", decimal.NewFromInt(1))
	if err != nil {
		log.Debug(ctx, "ad hoc cex/dex price comparison unavailable", "pair", pair.String(), "error", err)
		return
	}
	spread := pricingSvc.Spread(snapshot)
	log.Info(ctx, "ad hoc cex/dex price comparison",
		"pair", pair.String(),
		"cex_rate", snapshot.CEXPrice.Rate.Rate().String(),
		"dex_rate", snapshot.DEXQuote.Price.Rate().String(),
		"spread_bps", spread.BasisPoints.String(),
	)
}

// runBacktest replays [cfg.Backtest.FromBlock, cfg.Backtest.ToBlock] through
// the detection pipeline and logs a per-run summary when it completes.
func runBacktest(ctx context.Context, mono monolith.Monolith, cfg *config.Config, log logger.LoggerInterface) error {
	sr := mono.Services()

	fromBlock := cfg.Backtest.FromBlock
	toBlock := cfg.Backtest.ToBlock
	if toBlock < fromBlock {
		return fmt.Errorf("backtest.to_block must be >= backtest.from_block")
	}
	if fromBlock == 0 {
		return fmt.Errorf("backtest.from_block must be set")
	}

	poolReader := mevDI.GetPoolReader(sr)
	poolsByAddr := make(map[common.Address]*mevDomain.PoolSnapshot, len(cfg.Uniswap.Pools))
	for _, hexAddr := range cfg.Uniswap.Pools {
		addr := common.HexToAddress(hexAddr)
		snap, err := poolReader.ReadPool(ctx, addr, fromBlock-1)
		if err != nil {
			return fmt.Errorf("reading initial pool state for %s: %w", hexAddr, err)
		}
		poolsByAddr[addr] = snap
	}

	wethAddr := cfg.Uniswap.WETHAddressHex()
	var wethReferencePool *mevDomain.PoolSnapshot
	for _, snap := range poolsByAddr {
		if snap.Token0 == wethAddr || snap.Token1 == wethAddr {
			wethReferencePool = snap
			break
		}
	}

	pairs := buildPairs(poolsByAddr)

	cexFeed := mevDI.GetCexFeed(sr)
	store := mevDI.GetStoreFacade(sr)
	symbol := cfg.Binance.Symbols[0]
	points, err := cexFeed.Fetch(ctx, symbol, cfg.Binance.Interval, 1000, cfg.Binance.QuoteDecimals)
	if err != nil {
		log.Warn(ctx, "cex feed fetch failed, cex-dex evaluation will see no data", "symbol", symbol, "error", err)
	}
	for _, p := range points {
		if err := store.PutCexPoint(ctx, p.TimestampS, p.ClosePriceFP, p.QuoteDecimals); err != nil {
			log.Warn(ctx, "failed to persist cex price point", "error", err)
		}
	}

	blockchainSvc := blockchainDI.GetBlockchainService(sr)
	rangeResult, err := blockchainSvc.FetchRange(ctx, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("fetching block range [%d, %d]: %w", fromBlock, toBlock, err)
	}

	decoder := mevDI.GetSyncLogDecoder(sr)
	solver := mevDI.GetArbSolver(sr)
	engine := mevDI.GetIntraBlockEngine(sr)
	evaluator := mevDI.GetCexDexEvaluator(sr)
	classifier := mevDI.GetTransferGraphClassifier(sr)
	v3Reader := mevDI.GetV3QuoteReader(sr)

	var (
		blocksProcessed    int
		opportunitiesFound int
		totalNetProfit     = big.NewInt(0)
		faultedBlocks      []uint64
	)

	numbers := make([]uint64, 0, len(rangeResult.Blocks))
	for n := range rangeResult.Blocks {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	for _, number := range numbers {
		block := rangeResult.Blocks[number]
		txs := rangeResult.Txs[number]

		if err := store.PutBlock(ctx, number, block.Timestamp.Unix(), block.BaseFee); err != nil {
			log.Warn(ctx, "failed to persist block", "block", number, "error", err)
			faultedBlocks = append(faultedBlocks, number)
			continue
		}

		var (
			timeline     []mevDomain.ReserveSnapshot
			txSummaries  []mevApp.TxGasSummary
			txHashes     []common.Hash
			logCount     int
			decodeErrors int
		)

		for _, tx := range txs {
			txHashes = append(txHashes, tx.Hash)
			logCount += len(tx.Logs)

			snaps, transfers, decErrs := decoder.DecodeBlockLogs(tx.Logs)
			decodeErrors += len(decErrs)
			timeline = append(timeline, snaps...)

			if len(transfers) > 0 {
				toAddr := common.Address{}
				if tx.To != nil {
					toAddr = *tx.To
				}
				graph := &mevDomain.TxTransferGraph{TxHash: tx.Hash, From: tx.From, To: toAddr, Transfers: transfers}
				if classification, ok := classifier.Classify(graph); ok {
					log.Info(ctx, "cyclic arbitrage profiteer classified",
						"block", number, "tx", tx.Hash, "profiteer", classification.Profiteer)
				}
			}

			egp := mevApp.EffectiveGasPrice(block.BaseFee, tx.MaxFeePerGas, tx.MaxPriorityFeePerGas, tx.GasPrice, tx.IsLegacy)
			txSummaries = append(txSummaries, mevApp.TxGasSummary{
				Hash: tx.Hash,
				From: tx.From,
				EGP:  egp,
				Swap: deriveSwapLeg(transfers, tx.From),
			})
		}

		if err := store.PutTxs(ctx, number, txHashes); err != nil {
			log.Warn(ctx, "failed to persist tx hashes", "block", number, "error", err)
		}
		if err := store.PutLogs(ctx, number, logCount); err != nil {
			log.Warn(ctx, "failed to persist log count", "block", number, "error", err)
		}
		if decodeErrors > 0 {
			log.Debug(ctx, "block contained undecodable logs", "block", number, "count", decodeErrors)
		}

		for _, pair := range pairs {
			poolA, poolB := poolsByAddr[pair.PoolA.Address], poolsByAddr[pair.PoolB.Address]
			outcome := solver.Detect(poolA, poolB, block.BaseFee, wethAddr, wethReferencePool)
			if outcome.Kind == mevDomain.KindOpportunity {
				opportunitiesFound++
				totalNetProfit.Add(totalNetProfit, outcome.Op.NetProfit)
				annotateV3Reference(ctx, v3Reader, log, outcome.Op, number)
				recordOpportunity(ctx, store, log, number, mevDomain.KindOpportunity, outcome.Op, "pre_block")
			}
		}

		rows := engine.Run(pairs, poolsByAddr, timeline, block.BaseFee, wethAddr, wethReferencePool)
		for _, row := range rows {
			if err := store.PutIntraBlockRow(ctx, row); err != nil {
				log.Warn(ctx, "failed to persist intra-block row", "block", number, "error", err)
				continue
			}
			if row.Verdict == string(mevDomain.KindOpportunity) {
				opportunitiesFound++
				totalNetProfit.Add(totalNetProfit, row.ProfitWei)
			}
		}
		if cfg.Backtest.IntraDumpBlock != 0 && cfg.Backtest.IntraDumpBlock == number {
			dumpIntraRows(ctx, log, number, rows)
		}

		updatePoolsForBlock(poolsByAddr, number, block.Timestamp.Unix(), timeline)

		for addr, pool := range poolsByAddr {
			cexPoint, ok, err := store.GetCexPointNear(ctx, block.Timestamp.Unix(), cfg.Binance.MaxStaleSeconds)
			if err != nil {
				log.Warn(ctx, "cex point lookup failed", "block", number, "pool", addr, "error", err)
				continue
			}
			if !ok {
				continue
			}
			verdict := evaluator.Evaluate(pool, cexPoint, block.Timestamp.Unix(), wethAddr, cfg.Backtest.CexFeeBps)
			if verdict.Kind == mevDomain.VerdictOpportunity {
				opportunitiesFound++
				totalNetProfit.Add(totalNetProfit, verdict.Op.NetProfit)
				recordOpportunity(ctx, store, log, number, mevDomain.KindOpportunity, verdict.Op, "cex_dex")
			}
		}

		if matches := mevApp.DetectSandwiches(txSummaries); len(matches) > 0 {
			for _, m := range matches {
				log.Info(ctx, "sandwich heuristic match", "block", number, "tx0", m.Tx0, "tx1", m.Tx1, "tx2", m.Tx2, "confidence", m.Confidence)
			}
		}

		blocksProcessed++
	}

	faultedBlocks = append(faultedBlocks, rangeResult.Failed...)

	log.Info(ctx, "backtest run complete",
		"blocks_processed", blocksProcessed,
		"opportunities_found", opportunitiesFound,
		"total_net_profit_wei", totalNetProfit.String(),
		"faulted_blocks", faultedBlocks,
	)
	return nil
}

// annotateV3Reference attaches a V3 QuoterV2 reference quote to a detected
// V2 opportunity for human review. A failed or missing quote is logged at
// Debug and otherwise ignored — this annotation never affects the verdict
// already computed.
func annotateV3Reference(ctx context.Context, reader *mevInfra.V3QuoteReader, log logger.LoggerInterface, op *mevDomain.ArbOpportunity, blockNumber uint64) {
	// The route's input token is always Token0, per ArbSolver's convention.
	amountOut, err := reader.Quote(ctx, op.Token0, op.Token1, op.OptimalInput, blockNumber)
	if err != nil {
		log.Debug(ctx, "v3 reference quote unavailable", "block", blockNumber, "error", err)
		return
	}
	op.V3ReferenceOutWei = amountOut
}

func recordOpportunity(ctx context.Context, store mevApp.StoreFacade, log logger.LoggerInterface, blockNumber uint64, kind mevDomain.OutcomeKind, op *mevDomain.ArbOpportunity, details string) {
	if err := store.PutOpportunity(ctx, blockNumber, kind, op.SourcePool, op.DestPool, op.NetProfit, details); err != nil {
		log.Warn(ctx, "failed to persist opportunity", "block", blockNumber, "error", err)
	}
}

// buildPairs groups tracked pools by their ordered token pair and returns
// every two-pool combination within each group. ArbSolver only ever
// compares pools quoting the same pair, so cross-group combinations would
// always fail the precondition check and are never constructed.
func buildPairs(pools map[common.Address]*mevDomain.PoolSnapshot) []mevApp.Pair {
	type tokenPairKey struct{ a, b common.Address }
	groups := make(map[tokenPairKey][]*mevDomain.PoolSnapshot)
	for _, snap := range pools {
		key := tokenPairKey{snap.Token0, snap.Token1}
		groups[key] = append(groups[key], snap)
	}

	var pairs []mevApp.Pair
	for _, group := range groups {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				pairs = append(pairs, mevApp.Pair{PoolA: group[i], PoolB: group[j]})
			}
		}
	}
	return pairs
}

// deriveSwapLeg identifies trader's single relevant swap leg from its
// transfers within a transaction: the token with the largest-magnitude net
// balance change for trader, sold if that change is negative.
func deriveSwapLeg(transfers []mevDomain.Transfer, trader common.Address) *mevApp.SwapLeg {
	net := make(map[common.Address]*big.Int)
	for _, tr := range transfers {
		switch trader {
		case tr.From:
			bal := net[tr.Token]
			if bal == nil {
				bal = big.NewInt(0)
				net[tr.Token] = bal
			}
			bal.Sub(bal, tr.Amount)
		case tr.To:
			bal := net[tr.Token]
			if bal == nil {
				bal = big.NewInt(0)
				net[tr.Token] = bal
			}
			bal.Add(bal, tr.Amount)
		}
	}

	var bestToken common.Address
	var bestAbs *big.Int
	for token, amt := range net {
		abs := new(big.Int).Abs(amt)
		if bestAbs == nil || abs.Cmp(bestAbs) > 0 {
			bestAbs = abs
			bestToken = token
		}
	}
	if bestAbs == nil || bestAbs.Sign() == 0 {
		return nil
	}
	return &mevApp.SwapLeg{Token: bestToken, Sold: net[bestToken].Sign() < 0}
}

// updatePoolsForBlock replays timeline's Sync events against pools in
// (tx_index, log_index) order, carrying each tracked pool's reserves
// forward to become the next block's preBlockReserves. Events on pools not
// present in the map are ignored.
func updatePoolsForBlock(pools map[common.Address]*mevDomain.PoolSnapshot, blockNumber uint64, blockTimestamp int64, timeline []mevDomain.ReserveSnapshot) {
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Less(timeline[j]) })
	for _, event := range timeline {
		addr := common.BytesToAddress(event.PoolAddress[:])
		current, ok := pools[addr]
		if !ok {
			continue
		}
		updated, err := mevDomain.NewPoolSnapshot(
			current.Address, current.Token0, current.Token1,
			event.Reserve0, event.Reserve1,
			current.FeeNumerator, current.FeeDenominator,
			blockNumber, blockTimestamp,
		)
		if err != nil {
			continue
		}
		pools[addr] = updated
	}
}

// dumpIntraRows logs up to the first 30 intra-block rows for a single
// configured block, a diagnostic aid for inspecting the reserve-walk
// without attaching a debugger.
func dumpIntraRows(ctx context.Context, log logger.LoggerInterface, blockNumber uint64, rows []mevApp.IntraBlockRow) {
	limit := len(rows)
	if limit > 30 {
		limit = 30
	}
	for i := 0; i < limit; i++ {
		row := rows[i]
		log.Info(ctx, "intra-block dump",
			"block", blockNumber, "step", i,
			"pool_a", row.PoolA, "pool_b", row.PoolB,
			"spread_bps", row.SpreadBps, "verdict", row.Verdict,
		)
	}
}
