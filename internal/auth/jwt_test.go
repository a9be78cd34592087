package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := DecodeSecret("test-secret-value")

	tok, err := SignSession(secret, "0b1e4c2a-session")
	require.NoError(t, err)

	cl, err := ParseSession(secret, tok)
	require.NoError(t, err)
	require.Equal(t, "0b1e4c2a-session", cl.SessionID)
	require.Equal(t, DefaultIssuer, cl.Issuer)
	require.Nil(t, cl.ExpiresAt)
}

func TestParseSessionRejectsForeignSecret(t *testing.T) {
	tok, err := SignSession(DecodeSecret("secret-one-xxxxxxxx"), "sid")
	require.NoError(t, err)

	_, err = ParseSession(DecodeSecret("secret-two-xxxxxxxx"), tok)
	require.Error(t, err)

	_, err = ParseSession(DecodeSecret("secret-one-xxxxxxxx"), tok+"x")
	require.Error(t, err)
}

func TestSignSessionRequiresID(t *testing.T) {
	_, err := SignSession(DecodeSecret("s"), "")
	require.Error(t, err)
}

func TestDecodeSecret(t *testing.T) {
	s, err := NewRandomSecretB64(32)
	require.NoError(t, err)
	require.Len(t, DecodeSecret(s), 32)

	// Not base64url: used verbatim, padded.
	require.Len(t, DecodeSecret("a+b"), 16)
}
