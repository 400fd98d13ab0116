package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/hirebase/internal/auth"
	"github.com/geocoder89/hirebase/internal/domain/session"
	"github.com/geocoder89/hirebase/internal/domain/user"
	"github.com/geocoder89/hirebase/internal/events"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, s session.Session) error
	Rotate(ctx context.Context, oldID, tokenHash string, next session.Session) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenCodec interface {
	IssuePair(subject string) (auth.Pair, error)
	VerifyAccessToken(raw string) (*auth.Claims, error)
	VerifyRefreshToken(raw string) (*auth.Claims, error)
	HashRefreshToken(raw string) string
}

type Deps struct {
	Users     UserStore
	Sessions  SessionStore
	Hasher    PasswordHasher
	Tokens    TokenCodec
	Publisher events.Publisher // optional
	Log       *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	users     UserStore
	sessions  SessionStore
	hasher    PasswordHasher
	tokens    TokenCodec
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewService(d Deps, opts ...Option) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		users:     d.Users,
		sessions:  d.Sessions,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		publisher: d.Publisher,
		log:       log,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
}

type AuthResult struct {
	User   user.User
	Tokens auth.Pair
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// issueTokens signs a new pair and builds the matching refresh session.
func (s *Service) issueTokens(userID string) (auth.Pair, session.Session, error) {
	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return auth.Pair{}, session.Session{}, fmt.Errorf("issue tokens: %w", err)
	}

	sess := session.Session{
		ID:        pair.RefreshID,
		UserID:    userID,
		TokenHash: s.tokens.HashRefreshToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now().UTC(),
	}

	return pair, sess, nil
}

func (s *Service) startSession(ctx context.Context, userID string) (auth.Pair, error) {
	pair, sess, err := s.issueTokens(userID)
	if err != nil {
		return auth.Pair{}, err
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return auth.Pair{}, storeErr(err)
	}

	return pair, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return AuthResult{}, ErrEmailTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return AuthResult{}, storeErr(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.New(user.NewUserParams{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Now:          s.now(),
	}))
	if err != nil {
		// a concurrent register won the unique index
		if errors.Is(err, user.ErrDuplicateEmail) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, storeErr(err)
	}

	pair, err := s.startSession(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.publishRegistered(ctx, u)

	return AuthResult{User: u, Tokens: pair}, nil
}

func (s *Service) publishRegistered(ctx context.Context, u user.User) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishUserRegistered(ctx, events.UserRegistered{
		Type:       events.TypeUserRegistered,
		UserID:     u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.log.WarnContext(ctx, "publish user.registered failed", "user_id", u.ID, "err", err)
	}
}

// burnVerify runs one bcrypt comparison whose result is discarded.
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("hirebase-timing-equalizer")
		if err != nil {
			s.log.Warn("dummy digest unavailable", "err", err)
			return
		}
		s.dummyDigest = digest
	})

	_ = s.hasher.Verify(password, s.dummyDigest)
}

// Login returns ErrInvalidCredentials for unknown email, password-less
// accounts and wrong passwords alike, and runs one bcrypt comparison on
// each of those paths.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.burnVerify(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, storeErr(err)
	}

	if !u.HasPassword() {
		s.burnVerify(password)
		return AuthResult{}, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, *u.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !u.IsActive() {
		return AuthResult{}, ErrAccountNotActive
	}

	now := s.now().UTC()

	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return AuthResult{}, storeErr(err)
	}

	u.LastLoginAt = &now
	if now.After(u.UpdatedAt) {
		u.UpdatedAt = now
	}

	pair, err := s.startSession(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: u, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed; presenting it again fails with ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return auth.Pair{}, ErrInvalidToken
	}

	userID := claims.UserID()
	if userID == "" {
		return auth.Pair{}, ErrInvalidToken
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return auth.Pair{}, ErrUserNotEligible
		}
		return auth.Pair{}, storeErr(err)
	}

	if !u.IsActive() {
		return auth.Pair{}, ErrUserNotEligible
	}

	pair, next, err := s.issueTokens(u.ID)
	if err != nil {
		return auth.Pair{}, err
	}

	err = s.sessions.Rotate(ctx, claims.ID, s.tokens.HashRefreshToken(refreshToken), next)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound),
			errors.Is(err, session.ErrRevoked),
			errors.Is(err, session.ErrExpired),
			errors.Is(err, session.ErrHashMismatch):
			s.log.WarnContext(ctx, "refresh token rejected", "user_id", u.ID, "reason", err.Error())
			return auth.Pair{}, ErrInvalidToken
		default:
			return auth.Pair{}, storeErr(err)
		}
	}

	return pair, nil
}

// Authenticate resolves a bearer access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (user.User, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return user.User{}, ErrUnauthenticated
	}

	if claims.UserID() == "" {
		return user.User{}, ErrUnauthenticated
	}

	u, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, storeErr(err)
	}

	if !u.IsActive() {
		return user.User{}, ErrUnauthenticated
	}

	return u, nil
}

func (s *Service) GetProfile(u user.User) user.User {
	return u
}

// UpdateProfile writes only the supplied fields. Email and status are not
// reachable through ProfileUpdate.
func (s *Service) UpdateProfile(ctx context.Context, u user.User, upd user.ProfileUpdate) (user.User, error) {
	if upd.IsEmpty() {
		return u, nil
	}

	if err := upd.Validate(); err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	updated, err := s.users.Update(ctx, u.ID, upd)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, storeErr(err)
	}

	return updated, nil
}

// Logout never fails. Outstanding refresh sessions are revoked best effort;
// access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, u user.User) error {
	n, err := s.sessions.RevokeAllForUser(ctx, u.ID)
	if err != nil {
		s.log.WarnContext(ctx, "revoke sessions on logout failed", "user_id", u.ID, "err", err)
		return nil
	}

	s.log.DebugContext(ctx, "logout", "user_id", u.ID, "revoked_sessions", n)

	return nil
}
