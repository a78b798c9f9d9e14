package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_RoundTrip(t *testing.T) {
	s := &Signer{Secret: []byte("k"), Issuer: "skilllink", TTL: time.Hour}
	tok, err := s.Issue("maya@example.com", "FREELANCER")
	require.NoError(t, err)

	c, err := Inspect("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", c.Subject)
	assert.Equal(t, "FREELANCER", c.Role)

	d, ok := c.ExpiresIn(time.Now())
	assert.True(t, ok)
	assert.InDelta(t, time.Hour.Seconds(), d.Seconds(), 5)
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(time.Now().Add(2*time.Hour)))
}

func TestInspect_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err := Inspect(in)
		assert.ErrorIs(t, err, ErrMalformedToken, in)
	}
}

func TestVerify(t *testing.T) {
	s := &Signer{Secret: []byte("k"), Issuer: "skilllink", TTL: time.Hour}
	tok, err := s.Issue("a@b.c", "CLIENT")
	require.NoError(t, err)

	c, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "CLIENT", c.Role)

	other := &Signer{Secret: []byte("other"), Issuer: "skilllink", TTL: time.Hour}
	_, err = other.Verify(tok)
	assert.Error(t, err)
}

func TestClaims_NoExpiry(t *testing.T) {
	var c Claims
	_, ok := c.ExpiresIn(time.Now())
	assert.False(t, ok)
	assert.False(t, c.Expired(time.Now()))
}
