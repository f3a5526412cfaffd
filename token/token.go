// Package token provides bearer token sources for the REST gateway. Signing
// in is owned elsewhere; these sources only hand out a token that was
// already issued.
package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/skim"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken indicates that no token has been stored.
var ErrNoToken = errors.New("no token")

// Source returns the current bearer token. It matches rest.Config.Token.
type Source func() (string, error)

// Static returns a Source that always yields tok.
func Static(tok string) Source {
	return func() (string, error) { return tok, nil }
}

// FromFile returns a Source that reads the token from path on every call, so
// a token refreshed by the sign-in flow is picked up without a restart.
func FromFile(path string) Source {
	return func() (string, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNoToken)
		}
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		tok := strings.TrimSpace(string(data))
		if tok == "" {
			return "", fmt.Errorf("%s: %w", path, ErrNoToken)
		}
		return tok, nil
	}
}

// Optional wraps src so that a missing token yields an empty one. Requests
// then go out without credentials and the service decides.
func Optional(src Source) Source {
	return func() (string, error) {
		tok, err := src()
		if errors.Is(err, ErrNoToken) {
			return "", nil
		}
		return tok, err
	}
}

// Checked wraps src and rejects JWTs whose exp claim has passed, so an
// expired session fails with skim.ErrAuth without a round-trip. The signature
// is not verified; only the server can do that. Opaque tokens pass through.
func Checked(src Source, now func() time.Time) Source {
	if now == nil {
		now = time.Now
	}
	parser := jwt.NewParser()
	return func() (string, error) {
		tok, err := src()
		if err != nil {
			return "", err
		}
		if tok == "" {
			return "", nil
		}
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
			return tok, nil
		}
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return tok, nil
		}
		if !now().Before(exp.Time) {
			return "", fmt.Errorf("token expired at %s: %w", exp.Time.Format(time.RFC3339), skim.ErrAuth)
		}
		return tok, nil
	}
}

// Save stores tok at path, readable only by the current user.
func Save(path, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrNoToken
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := os.WriteFile(path, []byte(tok+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the token file. The CLI calls it on a forced sign-out.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
