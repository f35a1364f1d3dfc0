package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinkSignerSignAndVerify(t *testing.T) {
	signer := NewLinkSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("media-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	require.NoError(t, signer.Verify(token, "media-1"))
	require.ErrorIs(t, signer.Verify(token, "media-2"), ErrInvalidLinkToken)
	require.ErrorIs(t, NewLinkSigner("other", time.Hour).Verify(token, "media-1"), ErrInvalidLinkToken)
	require.ErrorIs(t, signer.Verify("garbage", "media-1"), ErrInvalidLinkToken)
}

func TestLinkSignerExpired(t *testing.T) {
	signer := NewLinkSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Sign("media-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	require.ErrorIs(t, signer.Verify(token, "media-1"), ErrLinkTokenExpired)
}

func TestLinkSignerRequiresSecret(t *testing.T) {
	_, _, err := NewLinkSigner("", time.Hour).Sign("media-1")
	require.Error(t, err)
}
