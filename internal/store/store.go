// Package store is the local Badger-backed document store: user profiles,
// local accounts and the device session.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

const (
	profilePrefix = "profile:"
	accountPrefix = "account:"
	sessionKey    = "session:current"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Profiles *Entity[domain.UserProfile]
	Accounts *Entity[domain.Account]
}

// New opens the database at path. An empty path keeps everything in memory.
func New(path string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Profiles are small; durability beats throughput
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.OrDiscard(log),
	}
	s.Profiles = NewEntity[domain.UserProfile](s, profilePrefix)
	s.Accounts = NewEntity[domain.Account](s, accountPrefix).
		WithIndexTransform("email",
			func(a *domain.Account) []string {
				return []string{normalizeEmail(a.Email)}
			},
			normalizeEmail,
		)

	s.logger.Info("Badger database opened", slog.String("path", path), slog.Bool("in_memory", path == ""))
	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
