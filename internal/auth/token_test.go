package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/smart-scheduler/internal/application"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestManager_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mgr, err := NewManager(testSecret, time.Hour, func() time.Time { return now.Add(30 * time.Minute) })
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	user := application.User{ID: 42, Username: "alice", Email: "alice@example.com", Role: application.RoleAdmin}
	raw, expiresAt, err := mgr.IssueToken(user, now)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry one hour after issue, got %v", expiresAt)
	}

	claims, err := mgr.ParseToken(raw)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.ID == "" {
		t.Fatalf("unexpected claims %#v", claims)
	}

	principal, err := mgr.Authenticate(raw)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if principal.UserID != 42 || !principal.IsAdmin() {
		t.Fatalf("unexpected principal %#v", principal)
	}
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mgr, err := NewManager(testSecret, time.Hour, func() time.Time { return issued.Add(2 * time.Hour) })
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	raw, _, err := mgr.IssueToken(application.User{ID: 1, Username: "bob", Role: application.RoleUser}, issued)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if _, err := mgr.ParseToken(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestManager_RejectsForeignSignatures(t *testing.T) {
	t.Parallel()

	now := time.Now()
	mgr, err := NewManager(testSecret, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	other, err := NewManager("ffffffffffffffffffffffffffffffff", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	raw, _, err := other.IssueToken(application.User{ID: 1, Role: application.RoleUser}, now)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if _, err := mgr.ParseToken(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign secret, got %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "Admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := mgr.ParseToken(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unsigned token, got %v", err)
	}

	if _, err := mgr.ParseToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestNewManager_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewManager("short", time.Hour, nil); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}
