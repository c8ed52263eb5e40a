// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/mevbacktest/backtester/business/pricing/app"
	"github.com/mevbacktest/backtester/internal/di"
)

// DI tokens for the pricing module.
const (
	CEXProvider    = "pricing.CEXProvider"
	DEXProvider    = "pricing.DEXProvider"
	PricingService = "pricing.PricingService"
)

// GetCEXProvider resolves the KlinesProvider registered under CEXProvider.
func GetCEXProvider(sr di.ServiceRegistry) app.KlinesProvider {
	return di.MustGet[app.KlinesProvider](sr, CEXProvider)
}

// GetDEXProvider resolves the DEXProvider registered under DEXProvider.
func GetDEXProvider(sr di.ServiceRegistry) app.DEXProvider {
	return di.MustGet[app.DEXProvider](sr, DEXProvider)
}

// GetPricingService resolves the PricingService registered under PricingService.
func GetPricingService(sr di.ServiceRegistry) *app.PricingService {
	return di.MustGet[*app.PricingService](sr, PricingService)
}
