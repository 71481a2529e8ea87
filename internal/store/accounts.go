package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

// CreateAccount stores a new local account. The email must be unused.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := s.Accounts.Create(ctx, account.UID, account)
	if errors.Is(err, ErrAlreadyExists) {
		return ErrEmailTaken
	}
	return err
}

// GetAccountByEmail looks up an account, case-insensitively.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.Accounts.GetByIndex(ctx, "email", email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// SaveSession replaces the device session.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), data)
	})
}

// CurrentSession returns the device session, or ErrNoSession.
// Expiry is not checked here.
func (s *Store) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// ClearSession signs the device out. Clearing an absent session is fine.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKey))
	})
}
