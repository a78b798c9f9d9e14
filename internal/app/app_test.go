package app

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/store"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/testutil"
	"skilllink-client/internal/theme"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		App:       config.App{Name: "skilllink", Env: "test"},
		API:       config.API{BaseURL: baseURL, TimeoutSec: 5},
		Store:     config.Store{Driver: "memory"},
		Dashboard: config.Dashboard{MaxFanout: 2, FreshN: 3, RecentN: 3},
	}
}

func TestNew_WiresFeaturesToSession(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	u := api.AddUser("Meera", "meera@example.com", "secret1", domain.RoleLearner, false)
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, api.TokenFor(u.ID)))
	require.NoError(t, st.Set(context.Background(), store.KeyTheme, "dark"))

	var mirrored theme.Mode
	a, err := New(testConfig(api.BaseURL()), zapTest(t), Options{
		Store:   st,
		Mirrors: []theme.Mirror{theme.MirrorFunc(func(m theme.Mode) { mirrored = m })},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.False(t, a.Courses.Capabilities().CanEnroll)
	require.NoError(t, a.Start(context.Background()))

	assert.Equal(t, theme.Dark, mirrored)
	require.NotNil(t, a.Session.User())
	assert.True(t, a.Courses.Capabilities().CanEnroll)
	assert.False(t, a.Applications.Available())

	require.NoError(t, a.Session.Logout(context.Background()))
	assert.False(t, a.Courses.Capabilities().CanEnroll)
}

func TestNew_DashboardWatchIsOptIn(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	u := api.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	api.AddJob(u.ID, "Landing page", "React site", "2500")

	start := func(opt Options) *App {
		st := store.NewMemory()
		require.NoError(t, st.Set(context.Background(), store.KeyToken, api.TokenFor(u.ID)))
		opt.Store = st
		a, err := New(testConfig(api.BaseURL()), zapTest(t), opt)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close(context.Background()) })
		require.NoError(t, a.Start(context.Background()))
		require.NotNil(t, a.Session.User())
		return a
	}

	start(Options{})
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, api.Calls(http.MethodGet, "/jobs/client"))

	a := start(Options{WatchDashboard: true})
	require.Eventually(t, func() bool { return a.Dashboard.State().Data != nil }, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, api.Calls(http.MethodGet, "/jobs/client"))
}

func TestNew_OpensConfiguredStoreAndTracing(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	cfg := testConfig(api.BaseURL())
	cfg.Tracing = config.Tracing{Enabled: true}
	var traces bytes.Buffer

	a, err := New(cfg, zapTest(t), Options{TraceOut: &traces})
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	assert.Nil(t, a.Session.User())

	api.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	_, err = a.Session.Login(context.Background(), domain.Credentials{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.Contains(t, traces.String(), "/auth/login")
}

func TestNew_BadStoreDriver(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/api")
	cfg.Store.Driver = "floppy"
	_, err := New(cfg, zapTest(t), Options{})
	require.Error(t, err)
}

func zapTest(t *testing.T) *zap.Logger { return zaptest.NewLogger(t) }
