package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultResetTokenTTL = time.Hour
	resetTokenBytes      = 20
)

// ResetRecorder observes password reset transitions.
type ResetRecorder interface {
	RecordReset(stage, outcome string)
}

type nopResetRecorder struct{}

func (nopResetRecorder) RecordReset(string, string) {}

// ResetService issues, validates and consumes single-use password reset
// tokens. All workflow state lives on the user record so the request and the
// later submission can be served by different processes.
type ResetService struct {
	users    UserRepository
	notifier Notifier
	baseURL  string
	ttl      time.Duration
	now      func() time.Time
	recorder ResetRecorder
}

type ResetOption func(*ResetService)

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(now func() time.Time) ResetOption {
	return func(s *ResetService) {
		s.now = now
	}
}

func WithResetRecorder(recorder ResetRecorder) ResetOption {
	return func(s *ResetService) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// NewResetService constructs a ResetService. baseURL prefixes the link sent
// in the reset mail; ttl <= 0 falls back to DefaultResetTokenTTL.
func NewResetService(users UserRepository, notifier Notifier, baseURL string, ttl time.Duration, opts ...ResetOption) *ResetService {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	s := &ResetService{
		users:    users,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		now:      time.Now,
		recorder: nopResetRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset issues a new token for the account registered under email and
// mails the reset link to it. A token issued earlier is replaced. Delivery
// failures are logged; the issued token stays valid.
func (s *ResetService) RequestReset(ctx context.Context, email string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return types.User{}, invalidInput("email is required")
	}

	token, err := newResetToken()
	if err != nil {
		return types.User{}, fmt.Errorf("generate reset token: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recorder.RecordReset("request", "unknown_email")
			return types.User{}, ErrIdentityNotFound
		}
		return types.User{}, err
	}

	expiresAt := s.clock().Add(s.ttl)
	if err := s.users.SetResetToken(ctx, user.ID, types.ResetToken{
		Hash:      hashResetToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return types.User{}, fmt.Errorf("store reset token: %w", err)
	}
	s.recorder.RecordReset("request", "issued")

	s.notify(ctx, Notification{
		To:      user.Email,
		Subject: "Password Reset",
		Body: "You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n" +
			"Please click on the following link, or paste this into your browser to complete the process:\n\n" +
			s.resetLink(token) + "\n\n" +
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
	})
	return user, nil
}

// ValidateToken returns the user holding token if it has not expired.
// Unknown and expired tokens are reported identically.
func (s *ResetService) ValidateToken(ctx context.Context, token string) (types.User, error) {
	user, err := s.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalidOrExpired) {
			s.recorder.RecordReset("validate", "invalid")
		}
		return types.User{}, err
	}
	s.recorder.RecordReset("validate", "valid")
	return user, nil
}

// ResetPassword consumes token and sets password as the new credential. The
// token is cleared and the password replaced in one conditional store
// update, so of several concurrent submissions at most one succeeds.
func (s *ResetService) ResetPassword(ctx context.Context, token, password, confirm string) (types.User, error) {
	if password == "" {
		return types.User{}, invalidInput("password is required")
	}
	if password != confirm {
		return types.User{}, invalidInput("passwords do not match")
	}

	if _, err := s.lookup(ctx, token); err != nil {
		if errors.Is(err, ErrTokenInvalidOrExpired) {
			s.recorder.RecordReset("consume", "invalid")
		}
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.ConsumeResetToken(ctx, hashResetToken(token), s.clock(), string(hashed))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recorder.RecordReset("consume", "invalid")
			return types.User{}, ErrTokenInvalidOrExpired
		}
		return types.User{}, err
	}
	s.recorder.RecordReset("consume", "consumed")

	s.notify(ctx, Notification{
		To:      user.Email,
		Subject: "Your password has been changed",
		Body: "Hello,\n\n" +
			"This is a confirmation that the password for your account " + user.Email + " has just been changed.\n",
	})
	return user, nil
}

func (s *ResetService) lookup(ctx context.Context, token string) (types.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.User{}, ErrTokenInvalidOrExpired
	}
	user, err := s.users.GetByResetToken(ctx, hashResetToken(token), s.clock())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrTokenInvalidOrExpired
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *ResetService) notify(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.Error("failed to send notification",
			slog.String("subject", n.Subject),
			slog.Any("error", err),
		)
	}
}

// clock returns the current wall-clock instant in UTC with the monotonic
// reading stripped, so comparisons match what the store persists.
func (s *ResetService) clock() time.Time {
	return s.now().UTC().Round(0)
}

func (s *ResetService) resetLink(token string) string {
	return s.baseURL + "/reset/" + token
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
