package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/devserver"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

// DevServerHandle pairs the dev server with its HTTP listener.
type DevServerHandle struct {
	*http.Server
	app *devserver.Server
}

// Shutdown implements do.Shutdownable.
func (h *DevServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(h.Server.Shutdown(ctx), h.app.Close())
}

// ProvideDevServer provides the local league API server. It is not started;
// callers run ListenAndServe.
func ProvideDevServer(i do.Injector) (*DevServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	app, err := devserver.New(context.Background(), devserver.Options{
		DataPath: cfg.DevServer.DatabasePath(),
		RPS:      cfg.DevServer.RPS,
		Burst:    cfg.DevServer.Burst,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.DevServer.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return &DevServerHandle{Server: srv, app: app}, nil
}
