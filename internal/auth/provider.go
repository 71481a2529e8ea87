package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/id"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
	"github.com/trashtalkapp/trashtalk-client/internal/validation"
)

// SignInStatus is the outcome of a sign-in attempt.
type SignInStatus int

const (
	SignInSuccess SignInStatus = iota
	SignInAccountDoesNotExist
	SignInInvalidPassword
	SignInFailed
)

func (s SignInStatus) String() string {
	switch s {
	case SignInSuccess:
		return "success"
	case SignInAccountDoesNotExist:
		return "account does not exist"
	case SignInInvalidPassword:
		return "invalid password"
	default:
		return "failed"
	}
}

// SignInResult carries the uid on success and a message on failure.
type SignInResult struct {
	Status  SignInStatus
	UID     string
	Message string
}

// OK reports whether the sign-in succeeded.
func (r SignInResult) OK() bool { return r.Status == SignInSuccess }

// Err converts a failed result to a coded error, or nil on success.
func (r SignInResult) Err() error {
	switch r.Status {
	case SignInSuccess:
		return nil
	case SignInAccountDoesNotExist:
		return clienterrors.AccountNotFound(r.Message)
	case SignInInvalidPassword:
		return clienterrors.InvalidCredentials(r.Message)
	default:
		return clienterrors.Internal(r.Message)
	}
}

// Provider is the identity provider contract.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (string, error)
	SignIn(ctx context.Context, email, password string) SignInResult
	CurrentUserID(ctx context.Context) (string, bool)
	SignOut(ctx context.Context) error
}

// AccountStore is the persistence LocalProvider needs. *store.Store satisfies it.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpsertProfile(ctx context.Context, uid string, profile *domain.UserProfile) error
	SaveSession(ctx context.Context, session *domain.Session) error
	CurrentSession(ctx context.Context) (*domain.Session, error)
	ClearSession(ctx context.Context) error
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"min=6,max=1024"`
	DisplayName string `json:"displayName" validate:"notblank,max=50"`
}

// LocalProvider keeps accounts in the local store and remembers the signed-in
// user with a PASETO session token.
type LocalProvider struct {
	store     AccountStore
	tokens    *TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider.
func NewLocalProvider(store AccountStore, tokens *TokenService, log *slog.Logger) *LocalProvider {
	return &LocalProvider{
		store:     store,
		tokens:    tokens,
		validator: validation.New(),
		logger:    logger.OrDiscard(log),
	}
}

// SignUp creates an account, writes the initial profile document (no league,
// zero points) and signs the new user in.
func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	req := signUpRequest{
		Email:       strings.TrimSpace(email),
		Password:    password,
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := p.validator.Validate(req); err != nil {
		return "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", clienterrors.Validation(err.Error())
	}

	uid, err := id.Generate("user")
	if err != nil {
		return "", err
	}

	account := &domain.Account{
		UID:          uid,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.CreateAccount(ctx, account); err != nil {
		return "", err
	}

	if err := p.store.UpsertProfile(ctx, uid, domain.NewUserProfile(req.DisplayName, req.Email)); err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}

	if err := p.startSession(ctx, account); err != nil {
		return "", err
	}

	p.logger.Info("account created", slog.String("user_id", uid))
	return uid, nil
}

// SignIn checks credentials and starts a session.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) SignInResult {
	account, err := p.store.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if clienterrors.Is(err, clienterrors.ErrAccountNotFound) {
		return SignInResult{Status: SignInAccountDoesNotExist, Message: "Account does not exist"}
	}
	if err != nil {
		return SignInResult{Status: SignInFailed, Message: clienterrors.Message(err)}
	}

	if !VerifyPassword(account.PasswordHash, password) {
		return SignInResult{Status: SignInInvalidPassword, Message: "Invalid password"}
	}

	if err := p.startSession(ctx, account); err != nil {
		return SignInResult{Status: SignInFailed, Message: clienterrors.Message(err)}
	}

	p.logger.Info("signed in", slog.String("user_id", account.UID))
	return SignInResult{Status: SignInSuccess, UID: account.UID}
}

// CurrentUserID returns the signed-in user. An expired or tampered token counts
// as signed out.
func (p *LocalProvider) CurrentUserID(ctx context.Context) (string, bool) {
	session, err := p.store.CurrentSession(ctx)
	if err != nil {
		if !clienterrors.Is(err, clienterrors.ErrNotFound) {
			p.logger.Warn("failed to read session", slog.String("error", err.Error()))
		}
		return "", false
	}

	claims, err := p.tokens.Verify(session.Token)
	if err != nil {
		p.logger.Debug("session token rejected", slog.String("error", err.Error()))
		return "", false
	}
	if claims.UserID == "" || claims.UserID != session.UID {
		return "", false
	}
	return claims.UserID, true
}

// SignOut ends the session.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := p.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (p *LocalProvider) startSession(ctx context.Context, account *domain.Account) error {
	session, err := p.tokens.Issue(account)
	if err != nil {
		return err
	}
	if err := p.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
