package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "pending_signups-job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, name, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "pending_signups-job-1.csv", name)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerRejectsExpiredUnlessAllowed(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("job-1", "report.csv")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	jobID, name, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "report.csv", name)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("job-1", "report.csv")
	require.NoError(t, err)

	encoded, signature, found := strings.Cut(token, ".")
	require.True(t, found)

	_, _, _, err = signer.Parse("x"+encoded+"."+signature, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse(encoded+"."+signature[1:], false)
	require.Error(t, err)

	other := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsSeparatorInputs(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	_, _, err := signer.Generate("job|1", "report.csv")
	require.Error(t, err)

	_, _, err = signer.Generate("job-1", "re|port.csv")
	require.Error(t, err)

	_, _, err = signer.Generate("", "report.csv")
	require.Error(t, err)
}
