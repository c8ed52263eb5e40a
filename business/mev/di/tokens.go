// Package di contains dependency injection tokens for the mev context.
package di

import (
	"github.com/mevbacktest/backtester/business/mev/app"
	"github.com/mevbacktest/backtester/business/mev/infra"
	"github.com/mevbacktest/backtester/internal/di"
)

// DI tokens for the mev module.
const (
	Config                  = "mev.Config"
	ArbSolver               = "mev.ArbSolver"
	CexDexEvaluator         = "mev.CexDexEvaluator"
	IntraBlockEngine        = "mev.IntraBlockEngine"
	TransferGraphClassifier = "mev.TransferGraphClassifier"
	StoreFacade             = "mev.StoreFacade"
	SyncLogDecoder          = "mev.SyncLogDecoder"
	CexFeed                 = "mev.CexFeed"
	PoolReader              = "mev.PoolReader"
	V3QuoteReader           = "mev.V3QuoteReader"
)

// GetConfig resolves the shared solver/evaluator/engine Config.
func GetConfig(sr di.ServiceRegistry) app.Config {
	return di.MustGet[app.Config](sr, Config)
}

// GetArbSolver resolves the registered ArbSolver.
func GetArbSolver(sr di.ServiceRegistry) *app.ArbSolver {
	return di.MustGet[*app.ArbSolver](sr, ArbSolver)
}

// GetCexDexEvaluator resolves the registered CexDexEvaluator.
func GetCexDexEvaluator(sr di.ServiceRegistry) *app.CexDexEvaluator {
	return di.MustGet[*app.CexDexEvaluator](sr, CexDexEvaluator)
}

// GetIntraBlockEngine resolves the registered IntraBlockEngine.
func GetIntraBlockEngine(sr di.ServiceRegistry) *app.IntraBlockEngine {
	return di.MustGet[*app.IntraBlockEngine](sr, IntraBlockEngine)
}

// GetTransferGraphClassifier resolves the registered TransferGraphClassifier.
func GetTransferGraphClassifier(sr di.ServiceRegistry) *app.TransferGraphClassifier {
	return di.MustGet[*app.TransferGraphClassifier](sr, TransferGraphClassifier)
}

// GetStoreFacade resolves the registered StoreFacade.
func GetStoreFacade(sr di.ServiceRegistry) app.StoreFacade {
	return di.MustGet[app.StoreFacade](sr, StoreFacade)
}

// GetSyncLogDecoder resolves the registered SyncLogDecoder.
func GetSyncLogDecoder(sr di.ServiceRegistry) *infra.SyncLogDecoder {
	return di.MustGet[*infra.SyncLogDecoder](sr, SyncLogDecoder)
}

// GetCexFeed resolves the registered CexFeed.
func GetCexFeed(sr di.ServiceRegistry) *infra.CexFeed {
	return di.MustGet[*infra.CexFeed](sr, CexFeed)
}

// GetPoolReader resolves the registered PoolReader.
func GetPoolReader(sr di.ServiceRegistry) *infra.PoolReader {
	return di.MustGet[*infra.PoolReader](sr, PoolReader)
}

// GetV3QuoteReader resolves the registered V3QuoteReader.
func GetV3QuoteReader(sr di.ServiceRegistry) *infra.V3QuoteReader {
	return di.MustGet[*infra.V3QuoteReader](sr, V3QuoteReader)
}
