package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates time-limited object download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token granting read access to bucket/key until the returned time.
func (s *SignedURLSigner) Sign(bucket, key string) (string, time.Time, error) {
	if bucket == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("bucket and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedBucket := base64.RawURLEncoding.EncodeToString([]byte(bucket))
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	signature := s.sign(encodedBucket, ts, encodedKey)
	return strings.Join([]string{encodedBucket, ts, encodedKey, signature}, "."), time.Unix(expiresAt.Unix(), 0), nil
}

// Verify validates a token and returns the object it grants access to.
func (s *SignedURLSigner) Verify(token string) (bucket, key string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	encodedBucket, ts, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedBucket, ts, encodedKey)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}
	rawBucket, err := base64.RawURLEncoding.DecodeString(encodedBucket)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode bucket: %w", err)
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode key: %w", err)
	}
	return string(rawBucket), string(rawKey), expiresAt, nil
}

func (s *SignedURLSigner) sign(encodedBucket, ts, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedBucket + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
