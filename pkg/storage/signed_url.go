package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Link token errors.
var (
	ErrInvalidLinkToken = errors.New("invalid link token")
	ErrLinkTokenExpired = errors.New("link token expired")
)

// LinkSigner creates and validates share tokens for LINK-visible media.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer with the provided secret and TTL.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting anonymous access to mediaID until it expires.
func (s *LinkSigner) Sign(mediaID string) (string, time.Time, error) {
	if mediaID == "" {
		return "", time.Time{}, errors.New("media id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return exp + "." + s.mac(mediaID, exp), expiresAt, nil
}

// Verify checks that token was issued for mediaID and has not expired.
func (s *LinkSigner) Verify(token, mediaID string) error {
	if len(s.secret) == 0 || token == "" || mediaID == "" {
		return ErrInvalidLinkToken
	}
	exp, sig, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidLinkToken
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp", ErrInvalidLinkToken)
	}
	if !hmac.Equal([]byte(s.mac(mediaID, exp)), []byte(sig)) {
		return ErrInvalidLinkToken
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return ErrLinkTokenExpired
	}
	return nil
}

func (s *LinkSigner) mac(mediaID, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte("media|" + mediaID + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
