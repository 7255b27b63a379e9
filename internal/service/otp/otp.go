package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vpetrenko/shoply/internal/logger"
	"github.com/vpetrenko/shoply/internal/repository"
)

const (
	defaultTTL = 5 * time.Minute

	mailSubject = "Your OTP for password reset"
)

// Sender delivers the code to the user, usually by mail
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

type Config struct {
	// Code lifetime, 5 minutes if not set
	TTL time.Duration
}

// Manager owns the full code lifecycle: generation, storage, delivery
// and verification. Nothing else touches the otp repository
type Manager struct {
	repo   repository.OTPRepo
	sender Sender
	logger logger.Logger
	ttl    time.Duration
}

func NewManager(cfg Config, repo repository.OTPRepo, sender Sender, l logger.Logger) (*Manager, error) {
	if repo == nil || sender == nil {
		return nil, errors.New("repo and sender must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	return &Manager{
		repo:   repo,
		sender: sender,
		logger: l,
		ttl:    ttl,
	}, nil
}

// Issue generates a random 6 digit code, stores it and mails it out
// The stored code is the success criterion: a delivery failure is logged but
// not surfaced, so the response leaks nothing about deliverability
func (m *Manager) Issue(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("can't generate otp code. Err: %w", err)
	}

	otp, err := m.repo.Upsert(ctx, email, code)
	if err != nil {
		return fmt.Errorf("can't save otp code. Err: %w", err)
	}

	body := fmt.Sprintf("Your OTP is: %s. It will expire in %d minutes.", otp.Code, int(m.ttl.Minutes()))
	if err := m.sender.Send(ctx, email, mailSubject, body); err != nil {
		m.logger.Error("otp mail delivery failed", "email", email, "error", err.Error())
	}

	return nil
}

// Verify consumes the code for email
// Exact match deletes the record atomically, so a code verifies once only.
// A mismatch leaves the record in place for a further correct attempt
func (m *Manager) Verify(ctx context.Context, email string, code string) error {
	return m.repo.Consume(ctx, email, code, time.Now().Add(-m.ttl))
}

// generateCode returns a uniformly random 6 digit numeric code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
