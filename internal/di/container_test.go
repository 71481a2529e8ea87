package di

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashtalkapp/trashtalk-client/internal/auth"
	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/controller"
	"github.com/trashtalkapp/trashtalk-client/internal/di/providers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:       config.AppConfig{Environment: "development"},
		Logger:    config.LoggerConfig{Level: "error"},
		API:       config.APIConfig{BaseURL: "http://127.0.0.1:1/trashtalk/", Timeout: time.Second, RPS: 5, Burst: 10},
		Storage:   config.StorageConfig{DataPath: t.TempDir()},
		Auth:      config.AuthConfig{SessionDuration: time.Hour},
		Sync:      config.SyncConfig{StaleGuard: true},
		DevServer: config.DevServerConfig{Port: "0", Burst: 20},
	}
}

func TestContainer_ResolvesClientGraph(t *testing.T) {
	injector := NewContainer(testConfig(t))
	defer func() { _ = injector.Shutdown() }()

	home := do.MustInvoke[*controller.Home](injector)
	settings := do.MustInvoke[*controller.Settings](injector)
	timeline := do.MustInvoke[*controller.Timeline](injector)
	provider := do.MustInvoke[*auth.LocalProvider](injector)

	assert.NotNil(t, home)
	assert.NotNil(t, settings)
	assert.NotNil(t, timeline)

	ctx := context.Background()
	_, ok := provider.CurrentUserID(ctx)
	assert.False(t, ok, "fresh data dir has no session")

	// Signed out, actions are silent no-ops.
	require.NoError(t, home.LoadData(ctx))
	assert.Nil(t, home.State().Profile)

	// Sign-up creates the profile the controllers read.
	uid, err := provider.SignUp(ctx, "sam@example.com", "hunter22", "Sam")
	require.NoError(t, err)
	current, ok := provider.CurrentUserID(ctx)
	require.True(t, ok)
	assert.Equal(t, uid, current)

	require.NoError(t, home.LoadData(ctx))
	require.NotNil(t, home.State().Profile)
	assert.Equal(t, "Sam", home.State().Profile.DisplayName)
}

func TestContainer_DevServer(t *testing.T) {
	injector := NewContainer(testConfig(t))

	handle := do.MustInvoke[*providers.DevServerHandle](injector)
	assert.Equal(t, ":0", handle.Addr)

	_ = injector.Shutdown()
}
