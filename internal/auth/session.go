package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"nomina/internal/cache"
	"nomina/internal/log"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin access is not configured")
	ErrForbidden          = errors.New("forbidden")
)

// Session is the caller identity handed to every operation.
type Session struct {
	ID          string    `json:"id,omitempty"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Can reports whether the session carries object:action.
func (s Session) Can(object, action string) bool {
	want := object + ":" + action
	for _, p := range s.Permissions {
		if subtle.ConstantTimeCompare([]byte(p), []byte(want)) == 1 {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless the session may perform action on object.
func (s Session) Require(object, action string) error {
	if !s.Can(object, action) {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, s.Role, action, object)
	}
	return nil
}

// Config configures the Authenticator.
type Config struct {
	// PassphraseHash is a bcrypt hash. When empty, Passphrase is hashed at startup.
	PassphraseHash string
	Passphrase     string
	SessionTTL     time.Duration
	MaxSessions    int
	// Cost overrides bcrypt.DefaultCost when hashing Passphrase.
	Cost int
}

// Authenticator issues admin sessions after a bcrypt passphrase check and
// keeps them in a TTL cache.
type Authenticator struct {
	hash     []byte
	ttl      time.Duration
	sessions *cache.LRUCache[Session]
	authz    *Authorizer
	employee Session
	logger   *log.Logger
}

func NewAuthenticator(cfg Config, authz *Authorizer, logger *log.Logger) (*Authenticator, error) {
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}

	var hash []byte
	switch {
	case cfg.PassphraseHash != "":
		hash = []byte(cfg.PassphraseHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("admin passphrase hash: %w", err)
		}
	case cfg.Passphrase != "":
		cost := cfg.Cost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Passphrase), cost)
		if err != nil {
			return nil, fmt.Errorf("hash admin passphrase: %w", err)
		}
		hash = h
	}

	perms, err := authz.Permissions(RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("employee permissions: %w", err)
	}

	return &Authenticator{
		hash:     hash,
		ttl:      cfg.SessionTTL,
		sessions: cache.NewLRUCache[Session](cfg.MaxSessions, cfg.SessionTTL),
		authz:    authz,
		employee: Session{Role: RoleEmployee, Permissions: perms},
		logger:   logger.WithComponent(log.ComponentAuth),
	}, nil
}

// Sessions exposes the session cache for periodic cleanup.
func (a *Authenticator) Sessions() cache.Cleaner { return a.sessions }

// Employee returns the session used for callers without a login.
func (a *Authenticator) Employee() Session { return a.employee }

// Login checks the passphrase and opens an admin session.
func (a *Authenticator) Login(ctx context.Context, passphrase string) (Session, error) {
	if len(a.hash) == 0 {
		return Session{}, ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(passphrase)); err != nil {
		a.logger.WarnContext(ctx, "Admin login rejected", log.FieldOperation, log.OpLogin)
		return Session{}, ErrInvalidCredentials
	}

	perms, err := a.authz.Permissions(RoleAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("admin permissions: %w", err)
	}
	sess := Session{
		ID:          uuid.NewString(),
		Role:        RoleAdmin,
		Permissions: perms,
		ExpiresAt:   time.Now().Add(a.ttl),
	}
	a.sessions.Set(sess.ID, sess)
	a.logger.InfoContext(ctx, "Admin session opened",
		log.FieldSessionID, sess.ID,
		log.FieldRole, sess.Role,
		log.FieldOperation, log.OpLogin)
	return sess, nil
}

// Lookup returns the session for id, or the employee session when id is
// unknown or expired.
func (a *Authenticator) Lookup(id string) Session {
	if id == "" {
		return a.employee
	}
	if _, err := uuid.Parse(id); err != nil {
		return a.employee
	}
	if sess, ok := a.sessions.Get(id); ok {
		return sess
	}
	return a.employee
}

// Logout ends the session.
func (a *Authenticator) Logout(ctx context.Context, id string) {
	if id == "" {
		return
	}
	a.sessions.Delete(id)
	a.logger.InfoContext(ctx, "Session closed", log.FieldSessionID, id, log.FieldOperation, log.OpLogout)
}

// HashPassphrase produces the value for ADMIN_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
