package providers

import (
	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/auth"
	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/controller"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

// ProvideControllerDeps assembles the collaborators shared by all controllers.
func ProvideControllerDeps(i do.Injector) (controller.Deps, error) {
	identity := do.MustInvoke[*auth.LocalProvider](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	api := do.MustInvoke[*LeagueAPIHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return controller.Deps{
		Identity: identity,
		Profiles: storeHandle.Store,
		API:      api.Client,
		Logger:   log.Logger,
	}, nil
}

func controllerOptions(cfg *config.Config) []controller.Option {
	if cfg.Sync.StaleGuard {
		return []controller.Option{controller.WithStaleGuard()}
	}
	return nil
}

// ProvideHome provides the dashboard controller.
func ProvideHome(i do.Injector) (*controller.Home, error) {
	deps := do.MustInvoke[controller.Deps](i)
	cfg := do.MustInvoke[*config.Config](i)
	return controller.NewHome(deps, controllerOptions(cfg)...), nil
}

// ProvideSettings provides the chore-management controller.
func ProvideSettings(i do.Injector) (*controller.Settings, error) {
	deps := do.MustInvoke[controller.Deps](i)
	cfg := do.MustInvoke[*config.Config](i)
	return controller.NewSettings(deps, controllerOptions(cfg)...), nil
}

// ProvideTimeline provides the completion-history controller.
func ProvideTimeline(i do.Injector) (*controller.Timeline, error) {
	deps := do.MustInvoke[controller.Deps](i)
	cfg := do.MustInvoke[*config.Config](i)
	return controller.NewTimeline(deps, controllerOptions(cfg)...), nil
}
