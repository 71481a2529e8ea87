package providers

import "time"

const (
	// shutdownTimeout bounds graceful shutdown of the dev HTTP server.
	shutdownTimeout = 10 * time.Second
)
