package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skilllink-client/internal/core/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	f, err := NewFile(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0, "test:")

	sql, err := Open(config.Store{Driver: "sqlite", DB: config.DB{DSN: "file::memory:", LogLevel: "silent"}}, zap.NewNop())
	require.NoError(t, err)

	all := map[string]Store{"memory": NewMemory(), "file": f, "redis": r, "sqlite": sql}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, KeyToken, "abc"))
			require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
			require.NoError(t, s.Set(ctx, KeyToken, "def"))

			v, ok, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "def", v)

			require.NoError(t, s.Delete(ctx, KeyToken))
			require.NoError(t, s.Delete(ctx, KeyToken))
			_, ok, err = s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)

			v, _, _ = s.Get(ctx, KeyTheme)
			assert.Equal(t, "dark", v)

			assert.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
		})
	}
}

func TestRedis_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0, "skilllink:")
	defer r.Close()

	require.NoError(t, r.Set(context.Background(), KeyToken, "tok"))
	got, err := mr.Get("skilllink:" + KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	a, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, a.Set(context.Background(), KeyTheme, "dark"))

	b, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := b.Get(context.Background(), KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFile_CorruptStateIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	f, err := NewFile(path)
	require.NoError(t, err)
	_, _, err = f.Get(context.Background(), KeyToken)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.Store{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(config.Store{Driver: "etcd"}, zap.NewNop())
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s, err = Open(config.Store{Driver: "redis", Redis: config.Redis{Addr: mr.Addr()}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	_ = s.Close()
}
