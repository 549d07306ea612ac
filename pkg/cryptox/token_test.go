package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	const count = 100
	tokens := make(map[string]struct{}, count)

	for range count {
		token, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.Len(t, token, 43)
		require.NotContains(t, tokens, token, "duplicate token generated")
		tokens[token] = struct{}{}
	}

	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("refresh-1")
	fp1b := FingerprintToken("refresh-1")
	fp2 := FingerprintToken("refresh-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}
