package account

import "errors"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotEligible    = errors.New("user not found or inactive")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrInvalidProfile     = errors.New("invalid profile update")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
