package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var subjectClaims = []string{"sub", "user_id", "id"}

// Provider answers who is signed in on the kiosk. An empty subject with a
// nil error means nobody is. An error means a session exists but its subject
// can't be trusted.
type Provider interface {
	CurrentSubject() (string, error)
}

type Static string

func (s Static) CurrentSubject() (string, error) {
	return string(s), nil
}

// Token reads the subject out of the session's JWT. When path is set the
// token is re-read on every call, so a sign-in done by another process is
// picked up on the next scan.
type Token struct {
	raw    string
	path   string
	secret []byte
}

func NewToken(raw string, secret []byte) *Token {
	return &Token{raw: strings.TrimSpace(raw), secret: secret}
}

func NewTokenFile(path string, secret []byte) *Token {
	return &Token{path: path, secret: secret}
}

// Token returns the raw bearer token, empty when signed out.
func (t *Token) Token() (string, error) {
	if t == nil {
		return "", nil
	}
	if t.path == "" {
		return t.raw, nil
	}

	b, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("error reading token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (t *Token) CurrentSubject() (string, error) {
	raw, err := t.Token()
	if err != nil || raw == "" {
		return "", err
	}
	return t.subject(raw)
}

func (t *Token) subject(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if len(t.secret) > 0 {
		_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
			}
			return t.secret, nil
		})
		if err != nil {
			return "", fmt.Errorf("invalid token: %w", err)
		}
	} else {
		// The backend verifies the token; the kiosk only needs the subject.
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return "", fmt.Errorf("malformed token: %w", err)
		}
		if err := claims.Valid(); err != nil {
			return "", fmt.Errorf("invalid token: %w", err)
		}
	}

	for _, k := range subjectClaims {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return fmt.Sprintf("%.0f", v), nil
		}
	}
	return "", errors.New("token has no subject")
}
