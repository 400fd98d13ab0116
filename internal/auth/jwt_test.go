package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(clock *fakeClock) *Codec {
	return NewCodec("test-secret", 15*time.Minute, 24*time.Hour, WithClock(clock.Now))
}

func TestIssueDecode_SubjectRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCodec(clock)

	raw, err := c.Issue("0b6f5c9e-4a52-4df1-9a8e-1f0c7f0c2a11", KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if claims.UserID() != "0b6f5c9e-4a52-4df1-9a8e-1f0c7f0c2a11" {
		t.Fatalf("subject mismatch: %q", claims.UserID())
	}
	if claims.TokenType != KindAccess {
		t.Fatalf("kind mismatch: %q", claims.TokenType)
	}
	if claims.Expiry().IsZero() {
		t.Fatalf("expected expiry to be set")
	}
}

func TestDecode_ExpiredAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCodec(clock)

	raw, err := c.Issue("u1", KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(2 * time.Minute)

	_, err = c.Decode(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after ttl, got %v", err)
	}
}

func TestDecode_Tampered(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCodec(clock)

	raw, err := c.Issue("u1", KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(raw, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := c.Decode(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	raw, err := NewCodec("right", time.Minute, time.Hour, WithClock(clock.Now)).Issue("u1", KindAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewCodec("wrong", time.Minute, time.Hour, WithClock(clock.Now)).Decode(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecode_MalformedInputNeverPanics(t *testing.T) {
	c := newTestCodec(&fakeClock{now: time.Now()})

	for _, raw := range []string{"", "not.a.jwt", "....", "eyJhbGciOiJIUzI1NiJ9", strings.Repeat("x", 4096)} {
		if _, err := c.Decode(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestDecode_RejectsNoneAlgorithm(t *testing.T) {
	c := newTestCodec(&fakeClock{now: time.Now()})

	claims := Claims{
		TokenType: KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    defaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := c.Decode(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected none alg to be rejected, got %v", err)
	}
}

func TestDecodeKind_WrongKind(t *testing.T) {
	c := newTestCodec(&fakeClock{now: time.Now()})

	pair, err := c.IssuePair("u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if _, err := c.VerifyAccessToken(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}
	if _, err := c.VerifyRefreshToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not pass as refresh token, got %v", err)
	}

	claims, err := c.VerifyRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if claims.ID != pair.RefreshID {
		t.Fatalf("refresh jti mismatch: %q vs %q", claims.ID, pair.RefreshID)
	}
}

func TestIssuePair_DistinctPairsInSameInstant(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCodec(clock)

	a, err := c.IssuePair("u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	b, err := c.IssuePair("u1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if a.AccessToken == b.AccessToken || a.RefreshToken == b.RefreshToken {
		t.Fatalf("pairs issued at the same instant must differ")
	}
	if a.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in: %d", a.ExpiresIn)
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	c := newTestCodec(&fakeClock{now: time.Now()})

	if c.HashRefreshToken("abc") != c.HashRefreshToken("abc") {
		t.Fatalf("hash must be deterministic")
	}
	if c.HashRefreshToken("abc") == c.HashRefreshToken("abd") {
		t.Fatalf("different tokens must hash differently")
	}
}

func TestIssue_EmptySecret(t *testing.T) {
	c := NewCodec("", time.Minute, time.Hour)
	if _, err := c.Issue("u1", KindAccess, time.Minute); err == nil {
		t.Fatalf("expected error with empty secret")
	}
}
