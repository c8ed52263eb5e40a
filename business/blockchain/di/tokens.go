// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/mevbacktest/backtester/business/blockchain/app"
	internaldi "github.com/mevbacktest/backtester/internal/di"
)

// DI tokens for the blockchain module.
const (
	BlockFetcher      = "blockchain.BlockFetcher"
	BlockchainService = "blockchain.BlockchainService"
)

// GetBlockFetcher resolves the registered BlockFetcher.
func GetBlockFetcher(sr internaldi.ServiceRegistry) app.BlockFetcher {
	return internaldi.MustGet[app.BlockFetcher](sr, BlockFetcher)
}

// GetBlockchainService resolves the registered BlockchainService.
func GetBlockchainService(sr internaldi.ServiceRegistry) *app.BlockchainService {
	return internaldi.MustGet[*app.BlockchainService](sr, BlockchainService)
}
