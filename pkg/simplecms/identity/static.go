package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"golang.org/x/crypto/bcrypt"
)

// Static accepts exactly one configured credential pair.
type Static struct {
	email string
	hash  []byte
}

// NewStatic creates a Static authenticator for email and a bcrypt hash of
// its password.
func NewStatic(email, passwordHash string) (*Static, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("static identity: email is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("static identity: invalid password hash: %w", err)
	}
	return &Static{email: email, hash: []byte(passwordHash)}, nil
}

// HashPassword returns the bcrypt hash to configure for NewStatic.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate returns the admin principal when email and password match.
func (s *Static) Authenticate(_ context.Context, email, password string) (simplecms.Principal, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(s.email)) == 1
	// Always run the hash comparison so timing does not reveal the email.
	passwordOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	if !emailOK || !passwordOK {
		return simplecms.Principal{}, ErrInvalidCredentials
	}
	return simplecms.Principal{ID: s.email, Email: s.email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Authenticator = (*Static)(nil)
