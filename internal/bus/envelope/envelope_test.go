package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeal_VerifyRoundtrip(t *testing.T) {
	s, err := NewSigner([]byte("shared-secret"), CurrentVersion)
	require.NoError(t, err)

	now := time.Now()
	env := s.Seal("LineReceived", "engine-1", []byte(`{"line":"look"}`), now)
	assert.NoError(t, s.Verify(env, now, 5*time.Second))
}

func TestVerify_TamperedPayloadRejected(t *testing.T) {
	s, err := NewSigner([]byte("shared-secret"), CurrentVersion)
	require.NoError(t, err)

	now := time.Now()
	env := s.Seal("LineReceived", "engine-1", []byte("original"), now)
	env.Payload = []byte("tampered")

	assert.ErrorIs(t, s.Verify(env, now, 5*time.Second), ErrBadMAC)
}

func TestVerify_UnknownVersionRejected(t *testing.T) {
	s, err := NewSigner([]byte("secret"), CurrentVersion)
	require.NoError(t, err)
	now := time.Now()
	env := s.Seal("x", "y", nil, now)
	env.Version = 99
	assert.ErrorIs(t, s.Verify(env, now, time.Second), ErrUnknownVersion)
}

func TestVerify_StaleTimestampRejected(t *testing.T) {
	s, err := NewSigner([]byte("secret"), CurrentVersion)
	require.NoError(t, err)
	now := time.Now()
	env := s.Seal("x", "y", nil, now.Add(-time.Hour))
	assert.ErrorIs(t, s.Verify(env, now, 5*time.Second), ErrStale)
}

func TestVerify_DifferentSecretRejected(t *testing.T) {
	a, err := NewSigner([]byte("secret-a"), CurrentVersion)
	require.NoError(t, err)
	b, err := NewSigner([]byte("secret-b"), CurrentVersion)
	require.NoError(t, err)

	now := time.Now()
	env := a.Seal("x", "y", []byte("payload"), now)
	assert.ErrorIs(t, b.Verify(env, now, time.Second), ErrBadMAC)
}
