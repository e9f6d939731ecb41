package nonce

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL matches the session cookie lifetime: a page older than this
// must be reloaded before the widget can post again.
const DefaultTTL = time.Hour

// Issuer mints and verifies anti-forgery tokens. Tokens are stateless:
// an HMAC over an expiry timestamp, so no server-side store is needed and
// every verification is constant time.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// NewRandomIssuer generates an ephemeral signing key. Tokens stop verifying
// across restarts, which only forces widgets to refetch their config.
func NewRandomIssuer(ttl time.Duration) (*Issuer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("error generating nonce key: %w", err)
	}
	return NewIssuer(key, ttl), nil
}

// Issue returns a token of the form "<expiry-unix>.<base64 hmac>".
func (i *Issuer) Issue() string {
	expiry := strconv.FormatInt(i.now().Add(i.ttl).Unix(), 10)
	return expiry + "." + i.sign(expiry)
}

// Verify reports whether the token is authentic and unexpired.
func (i *Issuer) Verify(token string) bool {
	expiry, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}

	expected := i.sign(expiry)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return false
	}

	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return false
	}
	return i.now().Unix() <= unix
}

func (i *Issuer) sign(payload string) string {
	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
