package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) IsValid() bool {
	return k == KindAccess || k == KindRefresh
}

// ErrInvalidToken covers every decode failure: bad signature, expiry,
// malformed input, unexpected algorithm or kind.
var ErrInvalidToken = errors.New("invalid token")

const defaultIssuer = "hirebase"

type Claims struct {
	TokenType Kind `json:"typ"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

type Option func(*Codec)

// WithClock replaces the time source used for both issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		if issuer != "" {
			c.issuer = issuer
		}
	}
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Codec {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     defaultIssuer,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue signs a token of the given kind for subject.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	raw, _, _, err := c.issue(subject, kind, ttl)
	return raw, err
}

func (c *Codec) issue(subject string, kind Kind, ttl time.Duration) (raw string, jti string, expiresAt time.Time, err error) {
	if len(c.secret) == 0 {
		err = errors.New("signing secret is empty")
		return
	}
	if !kind.IsValid() {
		err = fmt.Errorf("unknown token kind %q", kind)
		return
	}

	now := c.now().UTC()
	jti = uuid.NewString()
	expiresAt = now.Add(ttl)

	claims := Claims{
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err = token.SignedString(c.secret)

	return
}

type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshID        string
	RefreshExpiresAt time.Time
	ExpiresIn        int64
}

// IssuePair signs a fresh access+refresh pair for subject.
func (c *Codec) IssuePair(subject string) (Pair, error) {
	access, _, _, err := c.issue(subject, KindAccess, c.accessTTL)
	if err != nil {
		return Pair{}, err
	}

	refresh, jti, expiresAt, err := c.issue(subject, KindRefresh, c.refreshTTL)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshID:        jti,
		RefreshExpiresAt: expiresAt,
		ExpiresIn:        int64(c.accessTTL.Seconds()),
	}, nil
}

// Decode verifies signature, algorithm, issuer and expiry.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
	)

	claims := &Claims{}

	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || !claims.TokenType.IsValid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (c *Codec) DecodeKind(raw string, kind Kind) (*Claims, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}

	return claims, nil
}

func (c *Codec) VerifyAccessToken(raw string) (*Claims, error) {
	return c.DecodeKind(raw, KindAccess)
}

func (c *Codec) VerifyRefreshToken(raw string) (*Claims, error) {
	claims, err := c.DecodeKind(raw, KindRefresh)
	if err != nil {
		return nil, err
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	return claims, nil
}

// Deterministic HMAC hash (server-side pepper = signing secret).
// Session stores keep this, never the raw refresh token.
func (c *Codec) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
