// Package pricing implements the pricing bounded context: a historical CEX
// klines reader and a live DEX V3 price-read proof of concept, composed for
// ad hoc comparison alongside a backtest run.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mevbacktest/backtester/business/pricing/app"
	pricingDI "github.com/mevbacktest/backtester/business/pricing/di"
	"github.com/mevbacktest/backtester/business/pricing/infra/binance"
	"github.com/mevbacktest/backtester/business/pricing/infra/uniswap"
	"github.com/mevbacktest/backtester/internal/config"
	"github.com/mevbacktest/backtester/internal/di"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register KlinesProvider (Binance REST) - private dependency
	di.RegisterToken(c, pricingDI.CEXProvider, func(sr di.ServiceRegistry) app.KlinesProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		httpCfg := binance.HTTPClientConfig{
			BaseURL: cfg.Binance.RESTBaseURL,
			Timeout: cfg.Binance.RequestTimeout,
		}

		provider, err := binance.NewProvider(httpCfg, log)
		if err != nil {
			panic("failed to create binance klines provider: " + err.Error())
		}
		return provider
	})

	// Register DEXProvider (Uniswap V3 quoter PoC) - private dependency
	di.RegisterToken(c, pricingDI.DEXProvider, func(sr di.ServiceRegistry) app.DEXProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		provider, err := uniswap.NewProvider(ethClient, cfg.Uniswap, log)
		if err != nil {
			panic("failed to create uniswap provider: " + err.Error())
		}
		return provider
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cex := pricingDI.GetCEXProvider(sr)
		dex := pricingDI.GetDEXProvider(sr)
		return app.NewPricingService(cex, dex)
	})

	return nil
}

// Startup initializes the pricing module. Both providers are stateless REST
// callers, so there is no connection to establish; startup only logs.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "pricing module started")
	return nil
}
