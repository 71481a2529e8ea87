// Package di provides dependency injection configuration for the trashtalk client.
package di

import (
	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/di/providers"
)

// NewContainer creates the DI container around an already loaded config.
// Services are built lazily on first invoke.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Local storage and identity
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAuthProvider)

	// Remote API
	do.Provide(injector, providers.ProvideLeagueAPI)

	// Controllers
	do.Provide(injector, providers.ProvideControllerDeps)
	do.Provide(injector, providers.ProvideHome)
	do.Provide(injector, providers.ProvideSettings)
	do.Provide(injector, providers.ProvideTimeline)

	// Dev server
	do.Provide(injector, providers.ProvideDevServer)

	return injector
}
