package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skilllink-client/internal/core/config"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name, in, user, pass, want string
	}{
		{"driver dsn untouched", "u:p@tcp(db:3306)/app?parseTime=true", "", "", "u:p@tcp(db:3306)/app?parseTime=true"},
		{"url", "mysql://root:secret@db:3306/skilllink", "", "", "root:secret@tcp(db:3306)/skilllink?charset=utf8mb4&parseTime=true"},
		{"jdbc with override", "jdbc:mysql://db:3306/skilllink?charset=latin1", "app", "pw", "app:pw@tcp(db:3306)/skilllink?charset=latin1&parseTime=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMySQLDSN(tt.in, tt.user, tt.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(db)/x", maskDSN("root:secret@tcp(db)/x"))
	assert.Equal(t, "tcp(db)/x", maskDSN("tcp(db)/x"))
}

func TestNewGorm(t *testing.T) {
	_, err := NewGorm("oracle", config.DB{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	db, err := NewGorm("sqlite", config.DB{DSN: "file::memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
}
