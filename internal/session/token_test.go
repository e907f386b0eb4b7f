package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := mintToken(t, jwt.MapClaims{"sub": "1", "exp": exp.Unix()})

	got, err := Expiry(token)
	if err != nil {
		t.Fatalf("Expiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("Expiry = %v, want %v", got, exp)
	}
}

func TestExpiry_NoExpClaim(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{"sub": "1"})
	if _, err := Expiry(token); err != ErrNoExpiry {
		t.Errorf("Expiry = %v, want ErrNoExpiry", err)
	}
}

func TestExpiry_Garbage(t *testing.T) {
	if _, err := Expiry("not.a.jwt"); err == nil {
		t.Error("expected error for unparsable token")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	live := mintToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	stale := mintToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})
	noExp := mintToken(t, jwt.MapClaims{"sub": "1"})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"live token", live, false},
		{"expired token", stale, true},
		{"empty token", "", true},
		{"garbage token", "zzz", true},
		{"no exp claim counts as live", noExp, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.token, now); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpired_ExactBoundary(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := mintToken(t, jwt.MapClaims{"exp": now.Unix()})
	// A token expiring exactly now is no longer presentable.
	if !Expired(token, now) {
		t.Error("token at its expiry instant should count as expired")
	}
}
