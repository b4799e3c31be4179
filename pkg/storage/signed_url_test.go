package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoURLSignerRoundTrip(t *testing.T) {
	signer := NewPhotoURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("Alice_Smith_Mathematics/A100.png")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	ref, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "Alice_Smith_Mathematics/A100.png", ref)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestPhotoURLSignerRejectsExpiredToken(t *testing.T) {
	signer := NewPhotoURLSigner("test-secret", time.Hour)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("A100.png")
	require.NoError(t, err)

	_, _, err = signer.Parse(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestPhotoURLSignerRejectsTamperedToken(t *testing.T) {
	signer := NewPhotoURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("A100.png")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := NewPhotoURLSigner("test-secret", time.Hour)
	forgedToken, _, err := forged.Generate("B200.png")
	require.NoError(t, err)
	forgedParts := strings.Split(forgedToken, ".")

	// Swap in a different reference while keeping the original signature.
	tampered := strings.Join([]string{parts[0], forgedParts[1], parts[2]}, ".")
	_, _, err = signer.Parse(tampered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestPhotoURLSignerRejectsWrongSecret(t *testing.T) {
	signer := NewPhotoURLSigner("test-secret", time.Hour)
	other := NewPhotoURLSigner("other-secret", time.Hour)

	token, _, err := signer.Generate("A100.png")
	require.NoError(t, err)

	_, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestPhotoURLSignerRejectsMalformedToken(t *testing.T) {
	signer := NewPhotoURLSigner("test-secret", time.Hour)

	_, _, err := signer.Parse("not-a-token")
	assert.Error(t, err)

	_, _, err = signer.Parse("123.%%%.deadbeef")
	assert.Error(t, err)
}

func TestPhotoURLSignerRequiresSecretAndRef(t *testing.T) {
	signer := NewPhotoURLSigner("", time.Hour)
	_, _, err := signer.Generate("A100.png")
	assert.Error(t, err)

	signer = NewPhotoURLSigner("test-secret", time.Hour)
	_, _, err = signer.Generate("")
	assert.Error(t, err)
}
