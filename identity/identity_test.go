package identity

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	secret = "kiosk-secret"
)

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("error signing token: %s", err)
	}
	return s
}

func TestCurrentSubject(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	for _, tt := range []struct {
		name    string
		token   string
		secret  string
		want    string
		wantErr bool
	}{
		{name: "Signed out", token: ""},
		{name: "Sub claim", token: sign(t, jwt.MapClaims{"sub": "7", "exp": future}, secret), want: "7"},
		{name: "User id claim", token: sign(t, jwt.MapClaims{"user_id": "9"}, secret), want: "9"},
		{name: "Numeric id claim", token: sign(t, jwt.MapClaims{"id": 42}, secret), want: "42"},
		{name: "Verified", token: sign(t, jwt.MapClaims{"sub": "7"}, secret), secret: secret, want: "7"},
		{name: "Wrong secret", token: sign(t, jwt.MapClaims{"sub": "7"}, "other"), secret: secret, wantErr: true},
		{name: "Expired", token: sign(t, jwt.MapClaims{"sub": "7", "exp": past}, secret), wantErr: true},
		{name: "No subject", token: sign(t, jwt.MapClaims{"role": "member"}, secret), wantErr: true},
		{name: "Garbage", token: "not-a-jwt", wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var key []byte
			if tt.secret != "" {
				key = []byte(tt.secret)
			}
			got, err := NewToken(tt.token, key).CurrentSubject()
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("unexpected subject: %q, %v. Wanted %q, error=%t", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestTokenFile(t *testing.T) {
	p := path.Join(t.TempDir(), "session.jwt")
	tok := NewTokenFile(p, nil)

	if got, err := tok.CurrentSubject(); err != nil || got != "" {
		t.Fatalf("subject found without a token file: %q, %v", got, err)
	}

	if err := os.WriteFile(p, []byte(sign(t, jwt.MapClaims{"sub": "7"}, secret)+"\n"), 0o600); err != nil {
		t.Fatalf("error writing token: %s", err)
	}
	if got, err := tok.CurrentSubject(); err != nil || got != "7" {
		t.Errorf("unexpected subject after sign in: %q, %v", got, err)
	}

	if err := os.WriteFile(p, []byte(sign(t, jwt.MapClaims{"sub": "9"}, secret)), 0o600); err != nil {
		t.Fatalf("error writing token: %s", err)
	}
	if got, err := tok.CurrentSubject(); err != nil || got != "9" {
		t.Errorf("unexpected subject after switching user: %q, %v", got, err)
	}

	if err := os.WriteFile(p, []byte(sign(t, jwt.MapClaims{"sub": "9"}, "other")), 0o600); err != nil {
		t.Fatalf("error writing token: %s", err)
	}
	if got, err := NewTokenFile(p, []byte(secret)).CurrentSubject(); err == nil {
		t.Errorf("forged token accepted: %q", got)
	}

	if err := os.Chmod(p, 0o000); err != nil {
		t.Fatalf("error hiding token: %s", err)
	}
	if _, err := os.ReadFile(p); err == nil {
		t.Skip("running with permission to read any file")
	}
	if _, err := tok.CurrentSubject(); err == nil {
		t.Error("unreadable token file treated as signed out")
	}
}

func TestStatic(t *testing.T) {
	if got, err := Static("7").CurrentSubject(); err != nil || got != "7" {
		t.Errorf("unexpected subject: %q, %v", got, err)
	}
	if got, _ := Static("").CurrentSubject(); got != "" {
		t.Error("empty static identity reported a subject")
	}
}
