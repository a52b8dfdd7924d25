package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"nomina/internal/log"
)

func newTestAuthenticator(t *testing.T, passphrase string) *Authenticator {
	t.Helper()
	authz, err := NewAuthorizer("")
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}
	a, err := NewAuthenticator(Config{Passphrase: passphrase, Cost: bcrypt.MinCost}, authz, log.Discard())
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	return a
}

func TestAuthorizerDefaultPolicy(t *testing.T) {
	authz, err := NewAuthorizer("")
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}

	cases := []struct {
		role   Role
		object string
		action string
		want   bool
	}{
		{RoleEmployee, ObjEntries, ActWrite, true},
		{RoleEmployee, ObjEntries, ActRead, false},
		{RoleEmployee, ObjEntries, ActDelete, false},
		{RoleEmployee, ObjSettings, ActWrite, false},
		{RoleEmployee, ObjSummaries, ActRead, false},
		{RoleAdmin, ObjEntries, ActWrite, true},
		{RoleAdmin, ObjEntries, ActDelete, true},
		{RoleAdmin, ObjSummaries, ActRead, true},
		{RoleAdmin, ObjCompliance, ActRead, true},
		{RoleAdmin, ObjSettings, ActWrite, true},
		{RoleAdmin, ObjExports, ActRead, true},
		{Role(""), ObjEntries, ActWrite, false},
	}
	for _, tc := range cases {
		got, err := authz.Allowed(tc.role, tc.object, tc.action)
		if err != nil {
			t.Fatalf("Allowed(%s, %s, %s): %v", tc.role, tc.object, tc.action, err)
		}
		if got != tc.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", tc.role, tc.object, tc.action, got, tc.want)
		}
	}
}

func TestAuthorizerPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, role:admin, settings, read\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}
	authz, err := NewAuthorizer(path)
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}
	if ok, _ := authz.Allowed(RoleAdmin, ObjSettings, ActRead); !ok {
		t.Error("expected policy file rule to allow settings:read")
	}
	if ok, _ := authz.Allowed(RoleAdmin, ObjSettings, ActWrite); ok {
		t.Error("settings:write is not in the policy file")
	}
}

func TestSubjectFromRole(t *testing.T) {
	if got := SubjectFromRole(" Admin "); got != "role:admin" {
		t.Errorf("got %q", got)
	}
	if got := SubjectFromRole(""); got != "role:anonymous" {
		t.Errorf("got %q", got)
	}
}

func TestLoginLookupLogout(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t, "s3cret")

	if _, err := a.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	sess, err := a.Login(ctx, "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Role != RoleAdmin || sess.ID == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !sess.Can(ObjSettings, ActWrite) || !sess.Can(ObjEntries, ActWrite) {
		t.Errorf("admin session lacks permissions: %v", sess.Permissions)
	}

	if got := a.Lookup(sess.ID); got.Role != RoleAdmin {
		t.Errorf("Lookup returned %s", got.Role)
	}

	a.Logout(ctx, sess.ID)
	if got := a.Lookup(sess.ID); got.Role != RoleEmployee {
		t.Errorf("after logout expected employee session, got %s", got.Role)
	}
}

func TestLookupFallsBackToEmployee(t *testing.T) {
	a := newTestAuthenticator(t, "s3cret")
	for _, id := range []string{"", "not-a-uuid", "6f1c1c8e-6a51-4e5e-9a55-0d4a3f1d2b7c"} {
		sess := a.Lookup(id)
		if sess.Role != RoleEmployee {
			t.Errorf("Lookup(%q) role = %s", id, sess.Role)
		}
		if err := sess.Require(ObjEntries, ActWrite); err != nil {
			t.Errorf("employee should submit entries: %v", err)
		}
		if err := sess.Require(ObjSettings, ActWrite); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	}
}

func TestLoginDisabledWithoutPassphrase(t *testing.T) {
	a := newTestAuthenticator(t, "")
	if _, err := a.Login(context.Background(), ""); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestPassphraseHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	authz, _ := NewAuthorizer("")
	a, err := NewAuthenticator(Config{PassphraseHash: string(hash)}, authz, log.Discard())
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	if _, err := a.Login(context.Background(), "hunter2"); err != nil {
		t.Errorf("Login with hashed passphrase: %v", err)
	}

	if _, err := NewAuthenticator(Config{PassphraseHash: "plain"}, authz, log.Discard()); err == nil {
		t.Error("expected error for a non-bcrypt hash")
	}
}
