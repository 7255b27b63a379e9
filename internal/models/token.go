package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken as it is stored in the repository
// Kept server side so issued tokens can be revoked before their natural expiry
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// BlacklistEntry is a refresh token revoked at logout
// Any token found here must be rejected even if its signature is still valid
type BlacklistEntry struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager on login or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
