// Package main runs the local league API server.
//
// Usage:
//
//	go run ./cmd/devserver -dev-port 8089 -dev-data-path ./devdata
//	go run ./cmd/trashtalk -api-url http://localhost:8089/trashtalk/ home
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/di"
	"github.com/trashtalkapp/trashtalk-client/internal/di/providers"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

func main() {
	cfg, _, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	injector := di.NewContainer(cfg)
	log := do.MustInvoke[*logger.Logger](injector)

	server, err := do.Invoke[*providers.DevServerHandle](injector)
	if err != nil {
		log.Error("Failed to start dev server", "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("Dev server listening", "addr", server.Addr, "persistent", cfg.DevServer.DataPath != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Dev server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dev server...")
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}
