package user

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusLocked   Status = "locked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusLocked:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrInvalidStatus  = errors.New("invalid user status")
)

// User is the persisted account record.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    *string    `json:"-"` // nil for externally-authenticated accounts
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           *string    `json:"phone"`
	AvatarURL       *string    `json:"avatar_url"`
	Status          Status     `json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"-"`
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ProfileUpdate carries only the fields a caller explicitly supplied.
// An unset field leaves the stored value untouched. Phone and AvatarURL
// may be sent as null to clear them; the names are NOT NULL.
type ProfileUpdate struct {
	FirstName Optional[string] `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  Optional[string] `json:"last_name" binding:"omitempty,min=1,max=100"`
	Phone     Optional[string] `json:"phone" binding:"omitempty,max=20"`
	AvatarURL Optional[string] `json:"avatar_url" binding:"omitempty,max=2048"`
}

func (p ProfileUpdate) IsEmpty() bool {
	return !p.FirstName.Set && !p.LastName.Set && !p.Phone.Set && !p.AvatarURL.Set
}

// Validate rejects null for the required name fields.
func (p ProfileUpdate) Validate() error {
	var fields []string
	if p.FirstName.IsNull() {
		fields = append(fields, "first_name")
	}
	if p.LastName.IsNull() {
		fields = append(fields, "last_name")
	}
	if len(fields) > 0 {
		return &NullFieldError{Fields: fields}
	}
	return nil
}

// NullFieldError names required fields that were sent as null.
type NullFieldError struct {
	Fields []string
}

func (e *NullFieldError) Error() string {
	return "cannot be null: " + strings.Join(e.Fields, ", ")
}

func cloneOptional(o Optional[string]) *string {
	if o.Value == nil {
		return nil
	}
	v := *o.Value
	return &v
}

// Apply merges the supplied fields into u and bumps UpdatedAt.
func (p ProfileUpdate) Apply(u *User, now time.Time) {
	if p.FirstName.Value != nil {
		u.FirstName = *p.FirstName.Value
	}
	if p.LastName.Value != nil {
		u.LastName = *p.LastName.Value
	}
	if p.Phone.Set {
		u.Phone = cloneOptional(p.Phone)
	}
	if p.AvatarURL.Set {
		u.AvatarURL = cloneOptional(p.AvatarURL)
	}
	if now.After(u.UpdatedAt) {
		u.UpdatedAt = now
	}
}
