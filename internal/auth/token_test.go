package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokens_RoundTrip(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(testSecret, 30*time.Minute)
	userID := uuid.New()

	signed, err := tokens.Issue(userID)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	got, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokens_Expired(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(testSecret, -time.Minute)

	signed, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokens_WrongSecret(t *testing.T) {
	t.Parallel()

	issued, err := NewTokens(testSecret, time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	other := NewTokens([]byte("another-secret-another-secret!!!"), time.Hour)
	_, err = other.Verify(issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokens_Garbage(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(testSecret, time.Hour)

	for _, tok := range []string{"", "not.a.jwt", "a.b"} {
		_, err := tokens.Verify(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", tok)
	}
}

func TestTokens_TTL(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(testSecret, 45*time.Minute)
	assert.Equal(t, 45*time.Minute, tokens.TTL())
}
