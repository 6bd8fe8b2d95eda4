package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"janata/internal/config"
)

const testSigningKey = "test-signing-key-for-unit-tests"

func testService(now time.Time) *Service {
	cfg := config.Default()
	cfg.Security.TokenSigningKey = testSigningKey
	return &Service{Config: cfg, Now: func() time.Time { return now }}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := testService(time.Unix(1000, 0))

	token, err := svc.IssueToken(Principal{UserID: "u-1", Name: "Asha", Email: "asha@example.org", Role: RoleCitizen})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	principal, err := svc.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != "u-1" || principal.Role != RoleCitizen || principal.Email != "asha@example.org" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issued := testService(time.Unix(1000, 0))
	token, err := issued.IssueToken(Principal{UserID: "u-1", Role: RoleCitizen})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	later := testService(time.Unix(1000, 0).Add(8 * 24 * time.Hour))
	if _, err := later.VerifyToken("Bearer " + token); err == nil {
		t.Fatalf("expected expired token rejection")
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	svc := testService(time.Unix(1000, 0))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "u-1",
		"exp": time.Unix(1000, 0).Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := svc.VerifyToken("Bearer " + raw); err == nil {
		t.Fatalf("expected alg=none token rejection")
	}
}

func TestVerifyRejectsMissingIdentity(t *testing.T) {
	svc := testService(time.Unix(1000, 0))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"exp":  time.Unix(1000, 0).Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.VerifyToken("Bearer " + raw); err == nil {
		t.Fatalf("expected rejection of token without user id")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestRequireRole(t *testing.T) {
	p := Principal{Role: RoleOfficer}
	if err := RequireRole(p, RoleOfficer, RoleAdmin); err != nil {
		t.Fatalf("expected officer to pass officer/admin check: %v", err)
	}
	if err := RequireRole(p, RoleAdmin); err == nil {
		t.Fatalf("expected officer to fail admin-only check")
	}
}
