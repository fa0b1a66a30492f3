package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("inc-1", "plantel-1/acta-firmada-inc-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	incidentID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "inc-1", incidentID)
	require.Equal(t, "plantel-1/acta-firmada-inc-1.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("inc-1", "plantel-1/acta-firmada-inc-1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	incidentID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "inc-1", incidentID)
	require.Equal(t, "plantel-1/acta-firmada-inc-1.pdf", path)
}
