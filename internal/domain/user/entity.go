// Package user defines the local account record mirrored from the hosted
// auth provider.
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidID    = errors.New("user id is required")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrSelfRevoke   = errors.New("admins cannot revoke their own admin access")
)

// User is the local profile row. Credentials live with the auth provider; the
// row exists so recipes, subscriptions and usage have an owner.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New validates the identity claims and builds a non-admin user.
func New(id uuid.UUID, email string) (*User, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail lower-cases and trims email and checks it parses as an
// address. Lookups always go through this so "Foo@X.com" matches "foo@x.com".
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// AdminAction is an admin role change requested through the admin API.
type AdminAction string

const (
	ActionGrantAdmin  AdminAction = "grant_admin"
	ActionRevokeAdmin AdminAction = "revoke_admin"
)

func (a AdminAction) Valid() bool {
	return a == ActionGrantAdmin || a == ActionRevokeAdmin
}

// AuditEntry records an admin acting on another account.
type AuditEntry struct {
	ID           uuid.UUID `json:"id"`
	ActorID      uuid.UUID `json:"actor_id"`
	TargetUserID uuid.UUID `json:"target_user_id"`
	Action       string    `json:"action"`
	CreatedAt    time.Time `json:"created_at"`
}
