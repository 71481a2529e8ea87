package providers

import (
	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

// LeagueAPIHandle wraps the league API client with shutdown capability.
type LeagueAPIHandle struct {
	*leagueapi.Client
}

// Shutdown implements do.Shutdownable.
func (h *LeagueAPIHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideLeagueAPI provides the league/chore API client.
func ProvideLeagueAPI(i do.Injector) (*LeagueAPIHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := leagueapi.New(leagueapi.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		RPS:     cfg.API.RPS,
		Burst:   cfg.API.Burst,
		Logger:  log.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &LeagueAPIHandle{Client: client}, nil
}
