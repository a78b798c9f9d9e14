package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/core/store"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/testutil"
	"skilllink-client/pkg/validation"
)

func newSession(t *testing.T) (*Session, *testutil.Stack) {
	t.Helper()
	st := testutil.NewStack(t)
	s := New(st.Services.Auth, st.Store, st.Bus, validation.New(), st.Log)
	t.Cleanup(s.Close)
	return s, st
}

func TestBootstrap_NoToken(t *testing.T) {
	s, st := newSession(t)
	assert.True(t, s.Loading())
	require.NoError(t, s.Bootstrap(context.Background()))
	assert.False(t, s.Loading())
	assert.Nil(t, s.User())
	assert.Zero(t, st.API.Calls(http.MethodGet, "/users/me"))
}

func TestBootstrap_ResolvesPersistedToken(t *testing.T) {
	s, st := newSession(t)
	u := st.API.AddUser("Asha Rao", "asha@example.com", "secret1", domain.RoleClient, false)
	require.NoError(t, st.Store.Set(context.Background(), store.KeyToken, st.API.TokenFor(u.ID)))

	require.NoError(t, s.Bootstrap(context.Background()))
	<-s.Ready()
	require.NotNil(t, s.User())
	assert.Equal(t, u.ID, s.User().ID)
	assert.True(t, s.Authenticated())
	assert.True(t, s.Capabilities().CanCreateJob)
}

func TestBootstrap_BadTokenIsClearedSilently(t *testing.T) {
	s, st := newSession(t)
	ctx := context.Background()
	require.NoError(t, st.Store.Set(ctx, store.KeyToken, "garbage"))

	require.NoError(t, s.Bootstrap(ctx))
	assert.False(t, s.Loading())
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
	_, ok, _ := st.Store.Get(ctx, store.KeyToken)
	assert.False(t, ok)
}

func TestLogin_SetsTokenAndUserTogether(t *testing.T) {
	s, st := newSession(t)
	st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)

	var seen []*domain.User
	s.Subscribe(func(u *domain.User) {
		// 回调里 token 与 user 必然同时存在
		assert.Equal(t, u != nil, s.Token() != "")
		seen = append(seen, u)
	})

	u, err := s.Login(context.Background(), domain.Credentials{Email: "maya@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFreelancer, u.Role)
	require.Len(t, seen, 1)

	persisted, ok, _ := st.Store.Get(context.Background(), store.KeyToken)
	assert.True(t, ok)
	assert.Equal(t, s.Token(), persisted)

	claims, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", claims.Subject)
}

func TestLogin_BadCredentials(t *testing.T) {
	s, st := newSession(t)
	st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)

	_, err := s.Login(context.Background(), domain.Credentials{Email: "maya@example.com", Password: "wrong!"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", apiclient.Message(err, "Login failed"))
	assert.Nil(t, s.User())
}

func TestLogin_ValidatesBeforeCalling(t *testing.T) {
	s, st := newSession(t)
	_, err := s.Login(context.Background(), domain.Credentials{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, st.API.Calls(http.MethodPost, "/auth/login"))
}

func TestRegister_DoesNotCreateSession(t *testing.T) {
	s, st := newSession(t)
	u, err := s.Register(context.Background(), domain.RegisterRequest{
		Name: "Lee", Email: "lee@example.com", Password: "secret1", Role: "learner",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLearner, u.Role)
	assert.Nil(t, s.User())
	_, ok, _ := st.Store.Get(context.Background(), store.KeyToken)
	assert.False(t, ok)

	_, err = s.Register(context.Background(), domain.RegisterRequest{
		Name: "Lee", Email: "lee@example.com", Password: "secret1", Role: domain.RoleLearner,
	})
	assert.Equal(t, "Email already registered", apiclient.Message(err, ""))
}

func TestLogout_Idempotent(t *testing.T) {
	s, st := newSession(t)
	st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	_, err := s.Login(context.Background(), domain.Credentials{Email: "maya@example.com", Password: "secret1"})
	require.NoError(t, err)

	calls := 0
	s.Subscribe(func(u *domain.User) {
		assert.Nil(t, u)
		calls++
	})
	require.NoError(t, s.Logout(context.Background()))
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Nil(t, s.User())
	_, ok, _ := st.Store.Get(context.Background(), store.KeyToken)
	assert.False(t, ok)

	_, err = s.Claims()
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestForcedLogout_On401Anywhere(t *testing.T) {
	s, st := newSession(t)
	u := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	_, err := s.Login(context.Background(), domain.Credentials{Email: u.Email, Password: "secret1"})
	require.NoError(t, err)

	st.API.Fail(http.MethodGet, "/jobs", http.StatusUnauthorized, "Token expired")
	_, err = st.Services.Jobs.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.User())
	assert.False(t, s.Authenticated())
}

func TestForcedLogout_On403(t *testing.T) {
	s, st := newSession(t)
	u := st.API.AddUser("Lee", "lee@example.com", "secret1", domain.RoleLearner, false)
	_, err := s.Login(context.Background(), domain.Credentials{Email: u.Email, Password: "secret1"})
	require.NoError(t, err)

	// learner 调 client 专属接口
	_, err = st.Services.Jobs.ListMine(context.Background())
	assert.Equal(t, http.StatusForbidden, apiclient.StatusOf(err))
	assert.Nil(t, s.User())
}

func TestSetUser(t *testing.T) {
	s, st := newSession(t)
	u := st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	_, err := s.Login(context.Background(), domain.Credentials{Email: u.Email, Password: "secret1"})
	require.NoError(t, err)

	updated := *s.User()
	updated.IsMentor = true
	s.SetUser(updated)
	assert.True(t, s.User().IsMentor)

	s.SetUser(domain.User{ID: 999, Name: "someone else"})
	assert.Equal(t, u.ID, s.User().ID)
}
