package server

import (
	"crypto/subtle"
	"fmt"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/aqua777/indexquery/internal/config"
)

type basicAuth struct {
	user string
	hash []byte
}

// newBasicAuth prefers the configured bcrypt hash and hashes the plain
// password otherwise.
func newBasicAuth(cfg config.AuthConfig) (*basicAuth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PasswordHash != "" {
		return &basicAuth{user: cfg.User, hash: []byte(cfg.PasswordHash)}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &basicAuth{user: cfg.User, hash: hash}, nil
}

func (a *basicAuth) validate(user, password string, _ echo.Context) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK, nil
}
