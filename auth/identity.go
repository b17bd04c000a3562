package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"propdesk/apiclient"
)

// ErrInvalidSession signals a stored identity session that cannot be used.
var ErrInvalidSession = errors.New("auth: invalid identity session")

// IdentitySource is the secondary way of finding out who is signed in, used
// when the API itself cannot tell.
type IdentitySource interface {
	CurrentUser(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
}

// Session is the identity provider's view of the signed-in subject.
type Session struct {
	Subject   uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// SessionSource yields the identity provider session. GetSession returns
// nil, nil when nobody is signed in.
type SessionSource interface {
	GetSession(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSession reads the provider's session JWT from a token store. With a
// secret the HMAC signature is verified; without one the claims are read
// unverified.
type TokenSession struct {
	store  apiclient.TokenStore
	secret []byte
	now    func() time.Time
}

// NewTokenSession creates a session source over store.
func NewTokenSession(store apiclient.TokenStore, secret string) *TokenSession {
	ts := &TokenSession{store: store, now: time.Now}
	if secret != "" {
		ts.secret = []byte(secret)
	}
	return ts
}

// WithClock overrides the clock used for expiry checks.
func (s *TokenSession) WithClock(now func() time.Time) *TokenSession {
	s.now = now
	return s
}

// GetSession parses the stored session token. Expired tokens and tokens
// without a subject count as no session.
func (s *TokenSession) GetSession(ctx context.Context) (*Session, error) {
	raw, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: load identity session: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var claims sessionClaims
	if s.secret != nil {
		_, err = jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil
		}
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(raw, &claims)
		if err == nil && claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if claims.Subject == "" {
		return nil, nil
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject %q: %v", ErrInvalidSession, claims.Subject, err)
	}

	sess := &Session{Subject: subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// SignOut forgets the stored session token.
func (s *TokenSession) SignOut(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("auth: clear identity session: %w", err)
	}
	return nil
}

// DirectoryIdentity resolves the provider session to a user row.
type DirectoryIdentity struct {
	sessions  SessionSource
	directory Directory
}

// NewDirectoryIdentity wires a session source to a user directory.
func NewDirectoryIdentity(sessions SessionSource, directory Directory) *DirectoryIdentity {
	return &DirectoryIdentity{sessions: sessions, directory: directory}
}

// CurrentUser returns the user behind the provider session, or nil when there
// is no session or no matching row.
func (d *DirectoryIdentity) CurrentUser(ctx context.Context) (*User, error) {
	sess, err := d.sessions.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	user, err := d.directory.GetUserByAuthID(ctx, sess.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// SignOut ends the provider session.
func (d *DirectoryIdentity) SignOut(ctx context.Context) error {
	return d.sessions.SignOut(ctx)
}
