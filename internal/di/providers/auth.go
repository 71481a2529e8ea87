package providers

import (
	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/auth"
	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

// AuthKey wraps the session key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO session token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(key), cfg.Auth.SessionDuration)
}

// ProvideAuthProvider provides the local identity provider.
func ProvideAuthProvider(i do.Injector) (*auth.LocalProvider, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return auth.NewLocalProvider(storeHandle.Store, tokens, log.Logger), nil
}
