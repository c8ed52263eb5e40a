// Package blockchain implements the blockchain bounded context: historical
// block fetching over RPC.
package blockchain

import (
	"context"

	gethclient "github.com/ethereum/go-ethereum/ethclient"

	"github.com/mevbacktest/backtester/business/blockchain/app"
	blockchainDI "github.com/mevbacktest/backtester/business/blockchain/di"
	"github.com/mevbacktest/backtester/business/blockchain/infra/ethereum"
	"github.com/mevbacktest/backtester/internal/config"
	"github.com/mevbacktest/backtester/internal/di"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockFetcher, func(sr di.ServiceRegistry) app.BlockFetcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*gethclient.Client)

		fetcherCfg := ethereum.FetcherConfig{
			Concurrency:    cfg.Ethereum.FetcherConcurrency,
			MaxRetries:     cfg.Ethereum.FetcherMaxRetries,
			InitialBackoff: cfg.Ethereum.FetcherInitialBackoff,
			CallTimeout:    cfg.Ethereum.CallTimeout,
		}
		return ethereum.NewFetcher(ethClient, fetcherCfg, log)
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		fetcher := blockchainDI.GetBlockFetcher(sr)
		return app.NewBlockchainService(fetcher)
	})

	return nil
}

// Startup logs readiness.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "blockchain module started")
	return nil
}
