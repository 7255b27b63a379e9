package models

import (
	"time"
)

// OTP is a short lived one time code issued for password recovery
// At most one live code per email: issuing a new one supersedes the previous
type OTP struct {
	Email     string
	Code      string
	CreatedAt time.Time
}
