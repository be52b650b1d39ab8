package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"

	"golang.org/x/crypto/bcrypt"
)

const CooldownCapSeconds = 30

var ErrInvalidCredentials = errors.New("invalid user id or password")

// ThrottledError is returned while a user is cooling down after failed logins.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %d s", int(math.Ceil(e.Wait.Seconds())))
}

type CredentialStore interface {
	FindCredential(ctx context.Context, userID int64) (*models.Credential, error)
	SaveCredential(ctx context.Context, c *models.Credential) error
}

// Accounts authenticates staff for the bot. It is the outer edge of the
// engine: lifecycle services only see the resulting *models.User.
type Accounts struct {
	creds CredentialStore
	users UserDirectory
	log   *logger.Logger
	now   func() time.Time
}

func NewAccounts(creds CredentialStore, users UserDirectory, log *logger.Logger) *Accounts {
	return &Accounts{creds: creds, users: users, log: log, now: time.Now}
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > CooldownCapSeconds {
		return CooldownCapSeconds
	}
	return s
}

func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// SetPassword stores a new active credential and clears any throttle.
func (a *Accounts) SetPassword(ctx context.Context, userID int64, plain string) error {
	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}
	return a.creds.SaveCredential(ctx, &models.Credential{UserID: userID, PasswordHash: hash, Active: true})
}

// Login checks the password. Do not log plain.
func (a *Accounts) Login(ctx context.Context, userID int64, plain string) (*models.User, error) {
	c, err := a.creds.FindCredential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if c == nil || !c.Active {
		return nil, ErrInvalidCredentials
	}
	now := a.now()
	if now.Before(c.CooldownUntil) {
		return nil, &ThrottledError{Wait: c.CooldownUntil.Sub(now)}
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(plain)) != nil {
		c.FailCount++
		c.CooldownUntil = now.Add(time.Duration(CooldownSecondsForFailCount(c.FailCount)) * time.Second)
		if err := a.creds.SaveCredential(ctx, c); err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		a.log.Warn(ctx, "login_failed", "wrong password", "user_id", userID, "fail_count", c.FailCount)
		return nil, ErrInvalidCredentials
	}
	if c.FailCount != 0 || !c.CooldownUntil.IsZero() {
		c.FailCount = 0
		c.CooldownUntil = time.Time{}
		if err := a.creds.SaveCredential(ctx, c); err != nil {
			return nil, fmt.Errorf("reset login throttle: %w", err)
		}
	}
	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, &models.NotFoundError{Entity: "user", ID: userID}
	}
	a.log.Info(ctx, "login", "staff logged in", "user_id", userID, "role", string(u.Role))
	return u, nil
}

const (
	passwordLen  = 10
	symbols      = "!@#$%&*"
	upperLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerLetters = "abcdefghijkmnpqrstuvwxyz"
	digits       = "23456789"
)

// GenerateSecurePassword returns a random password with at least one upper,
// lower, digit and symbol. Do not log the result.
func GenerateSecurePassword() (string, error) {
	classes := []string{upperLetters, lowerLetters, digits, symbols}
	all := upperLetters + lowerLetters + digits + symbols
	result := make([]byte, passwordLen)
	for i := range result {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		c, err := randomByte(set)
		if err != nil {
			return "", err
		}
		result[i] = c
	}
	for i := passwordLen - 1; i >= 1; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("shuffle: %w", err)
		}
		j := int(n.Int64())
		result[i], result[j] = result[j], result[i]
	}
	return string(result), nil
}

func randomByte(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
