// Package auth implements the shared-secret admin gate.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPassword is used when no admin password is configured.
const DefaultPassword = "admin123"

const tokenSubject = "admin"

var (
	// ErrInvalidCredentials is returned by Login when the password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken is returned for malformed, forged or revoked tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Session is the explicit admin context handed to gated operations.
// The zero value is an anonymous session.
type Session struct {
	ID       string    `json:"id"`
	Admin    bool      `json:"admin"`
	IssuedAt time.Time `json:"issued_at"`
}

// IsAdmin reports whether the session unlocks management operations.
func (s Session) IsAdmin() bool {
	return s.Admin && s.ID != ""
}

// GateConfig configures a Gate.
type GateConfig struct {
	Password      string
	SessionSecret string
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Gate compares submitted passwords with the configured secret and keeps
// the registry of live sessions. Sessions only end through Logout.
type Gate struct {
	password []byte
	secret   []byte
	clock    func() time.Time
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewGate builds a Gate. An empty password falls back to DefaultPassword;
// an empty session secret is replaced by random bytes, which invalidates
// tokens across restarts.
func NewGate(cfg GateConfig) (*Gate, error) {
	password := cfg.Password
	if password == "" {
		password = DefaultPassword
	}
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("auth: generate session secret: %w", err)
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		password: []byte(password),
		secret:   secret,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		sessions: make(map[string]Session),
	}, nil
}

// Login opens an admin session when password matches and returns it along
// with a signed bearer token.
func (g *Gate) Login(password string) (Session, string, error) {
	if subtle.ConstantTimeCompare([]byte(password), g.password) != 1 {
		g.logger.Info("admin login rejected")
		return Session{}, "", ErrInvalidCredentials
	}

	now := g.clock()
	session := Session{ID: uuid.NewString(), Admin: true, IssuedAt: now}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:       session.ID,
		Subject:  tokenSubject,
		IssuedAt: jwt.NewNumericDate(now),
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("auth: sign token: %w", err)
	}

	g.mu.Lock()
	g.sessions[session.ID] = session
	g.mu.Unlock()

	g.logger.Info("admin session opened", zap.String("session_id", session.ID))
	return session, signed, nil
}

// Authenticate resolves a bearer token to its live session.
func (g *Gate) Authenticate(token string) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidToken
	}
	if claims.Subject != tokenSubject {
		return Session{}, ErrInvalidToken
	}

	g.mu.RLock()
	session, ok := g.sessions[claims.ID]
	g.mu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return session, nil
}

// Logout revokes the session. Logging out an unknown session is a no-op.
func (g *Gate) Logout(session Session) {
	g.mu.Lock()
	_, ok := g.sessions[session.ID]
	delete(g.sessions, session.ID)
	g.mu.Unlock()
	if ok {
		g.logger.Info("admin session closed", zap.String("session_id", session.ID))
	}
}

type sessionKey struct{}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
