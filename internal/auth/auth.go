// Package auth checks the single administrator credential that gates
// mutating roster commands.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrUnauthorized is returned when credentials do not match.
var ErrUnauthorized = errors.New("invalid username or password")

// Authenticator verifies credentials against one configured admin.
type Authenticator struct {
	username [sha256.Size]byte
	password [sha256.Size]byte
	enabled  bool
}

// New returns an Authenticator for the given admin. An empty password
// disables the check: every call to Verify succeeds.
func New(username, password string) *Authenticator {
	if password == "" {
		return &Authenticator{}
	}
	return &Authenticator{
		username: sha256.Sum256([]byte(strings.TrimSpace(username))),
		password: sha256.Sum256([]byte(password)),
		enabled:  true,
	}
}

// Enabled reports whether credentials are required.
func (a *Authenticator) Enabled() bool {
	return a.enabled
}

// Verify checks username and password in constant time.
func (a *Authenticator) Verify(username, password string) error {
	if !a.enabled {
		return nil
	}
	u := sha256.Sum256([]byte(strings.TrimSpace(username)))
	p := sha256.Sum256([]byte(password))
	userOK := subtle.ConstantTimeCompare(u[:], a.username[:])
	passOK := subtle.ConstantTimeCompare(p[:], a.password[:])
	if userOK&passOK != 1 {
		return ErrUnauthorized
	}
	return nil
}
