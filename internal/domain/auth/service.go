package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Mailer delivers login codes. The SMTP and no-op implementations live in
// platform/email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	Store        *Store
	Mailer       Mailer
	Secret       string
	TokenTTL     time.Duration
	TwoFactorTTL time.Duration

	now func() time.Time
}

func NewService(store *Store, mailer Mailer, secret string, tokenTTL, twoFactorTTL time.Duration) *Service {
	return &Service{
		Store:        store,
		Mailer:       mailer,
		Secret:       secret,
		TokenTTL:     tokenTTL,
		TwoFactorTTL: twoFactorTTL,
		now:          time.Now,
	}
}

type LoginResult struct {
	Token             string   `json:"token"`
	TwoFactorRequired bool     `json:"twoFactorRequired"`
	User              AuthUser `json:"-"`
}

// Login checks credentials. Without 2FA it returns a full access token; with
// 2FA it emails a six-digit code and returns a short-lived token only good
// for the verify step.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.TwoFactorEnabled {
		token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role}, s.TokenTTL)
		if err != nil {
			return LoginResult{}, err
		}
		if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Token: token, User: user}, nil
	}

	if err := s.issueCode(ctx, user); err != nil {
		return LoginResult{}, err
	}
	pending, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role, TwoFactorPending: true}, s.TwoFactorTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: pending, TwoFactorRequired: true, User: user}, nil
}

// VerifyTwoFactor exchanges a pending token's user and a mailed code for a
// full access token.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID, code string) (string, error) {
	ok, err := s.Store.ConsumeTwoFactorCode(ctx, userID, hashCode(code))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCodeInvalid
	}
	user, err := s.Store.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return "", err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		return "", err
	}
	return token, nil
}

// ResendTwoFactor mails a fresh code, replacing any outstanding one.
func (s *Service) ResendTwoFactor(ctx context.Context, userID string) error {
	user, err := s.Store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrCodeInvalid
	}
	return s.issueCode(ctx, user)
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.Store.UpdatePassword(ctx, userID, hash)
}

func (s *Service) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	return s.Store.SetTwoFactorEnabled(ctx, userID, enabled)
}

func (s *Service) issueCode(ctx context.Context, user AuthUser) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.TwoFactorTTL)
	if err := s.Store.SaveTwoFactorCode(ctx, user.ID, hashCode(code), expires); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nYour login verification code is %s. It expires in %d minutes.\n",
		user.FirstName, code, int(s.TwoFactorTTL.Minutes()))
	return s.Mailer.Send(ctx, user.Email, "Your verification code", body)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
