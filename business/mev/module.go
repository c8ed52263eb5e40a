// Package mev implements the MEV bounded context: opportunity detection,
// intra-block reserve-walk scanning, transfer-graph profiteer
// classification, and the sandwich heuristic, all driven from decoded
// on-chain logs and historical CEX reference prices.
package mev

import (
	"context"

	gethclient "github.com/ethereum/go-ethereum/ethclient"

	"github.com/mevbacktest/backtester/business/mev/app"
	mevDI "github.com/mevbacktest/backtester/business/mev/di"
	"github.com/mevbacktest/backtester/business/mev/infra"
	pricingDI "github.com/mevbacktest/backtester/business/pricing/di"
	"github.com/mevbacktest/backtester/internal/config"
	"github.com/mevbacktest/backtester/internal/di"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/monolith"
)

// Module implements the mev bounded context.
type Module struct{}

// RegisterServices registers all mev services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, mevDI.Config, func(sr di.ServiceRegistry) app.Config {
		cfg := sr.Get("config").(*config.Config)
		return app.Config{
			MinDiscrepancyBps: cfg.Backtest.MinDiscrepancyBps,
			GasUnitsEstimate:  uint64(cfg.Backtest.GasUnitsEstimate),
			MaxStaleSeconds:   cfg.Binance.MaxStaleSeconds,
			IntraCandidateBps: cfg.Backtest.IntraCandidateBps,
		}
	})

	di.RegisterToken(c, mevDI.ArbSolver, func(sr di.ServiceRegistry) *app.ArbSolver {
		return app.NewArbSolver(mevDI.GetConfig(sr))
	})

	di.RegisterToken(c, mevDI.CexDexEvaluator, func(sr di.ServiceRegistry) *app.CexDexEvaluator {
		return app.NewCexDexEvaluator(mevDI.GetConfig(sr))
	})

	di.RegisterToken(c, mevDI.IntraBlockEngine, func(sr di.ServiceRegistry) *app.IntraBlockEngine {
		solver := mevDI.GetArbSolver(sr)
		return app.NewIntraBlockEngine(solver, mevDI.GetConfig(sr))
	})

	di.RegisterToken(c, mevDI.TransferGraphClassifier, func(sr di.ServiceRegistry) *app.TransferGraphClassifier {
		return app.NewTransferGraphClassifier()
	})

	di.RegisterToken(c, mevDI.StoreFacade, func(sr di.ServiceRegistry) app.StoreFacade {
		return infra.NewMemoryStore()
	})

	di.RegisterToken(c, mevDI.SyncLogDecoder, func(sr di.ServiceRegistry) *infra.SyncLogDecoder {
		decoder, err := infra.NewSyncLogDecoder()
		if err != nil {
			panic("failed to build sync log decoder: " + err.Error())
		}
		return decoder
	})

	di.RegisterToken(c, mevDI.CexFeed, func(sr di.ServiceRegistry) *infra.CexFeed {
		klines := pricingDI.GetCEXProvider(sr)
		return infra.NewCexFeed(klines)
	})

	di.RegisterToken(c, mevDI.PoolReader, func(sr di.ServiceRegistry) *infra.PoolReader {
		ethClient := sr.Get("ethClient").(*gethclient.Client)
		reader, err := infra.NewPoolReader(ethClient)
		if err != nil {
			panic("failed to build pool reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, mevDI.V3QuoteReader, func(sr di.ServiceRegistry) *infra.V3QuoteReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*gethclient.Client)
		reader, err := infra.NewV3QuoteReader(ethClient, cfg.Uniswap.QuoterAddressHex(), int64(cfg.Uniswap.DefaultFeeTier), log)
		if err != nil {
			panic("failed to build v3 quote reader: " + err.Error())
		}
		return reader
	})

	return nil
}

// Startup logs readiness. Every registered service is synchronous and
// stateless at construction time, so there is nothing to connect.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "mev module started")
	return nil
}
