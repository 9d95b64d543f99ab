package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("invalid download token signature")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadClaims is the signed content of a download token.
type DownloadClaims struct {
	Owner     string `json:"o"`
	Path      string `json:"p"`
	ExpiresAt int64  `json:"e"`
}

// Expiry returns the claims expiry as a time.
func (c DownloadClaims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// SignedURLSigner issues HMAC signed, expiring tokens granting access to one stored blob.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token of the form <payload>.<signature>, both base64url encoded.
func (s *SignedURLSigner) Generate(owner, relPath string) (string, time.Time, error) {
	if owner == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("owner and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	claims := DownloadClaims{Owner: owner, Path: relPath, ExpiresAt: s.now().Add(s.ttl).Unix()}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), claims.Expiry(), nil
}

// Parse verifies the token signature and expiry and returns its claims.
func (s *SignedURLSigner) Parse(token string) (DownloadClaims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || payload == "" || signature == "" {
		return DownloadClaims{}, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(signature)) {
		return DownloadClaims{}, ErrTokenSignature
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return DownloadClaims{}, ErrTokenMalformed
	}
	var claims DownloadClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return DownloadClaims{}, ErrTokenMalformed
	}
	if s.now().After(claims.Expiry()) {
		return DownloadClaims{}, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
