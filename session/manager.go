package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"propdesk/auth"
	"propdesk/logger"
)

// State is the authentication status of the running client.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StatePendingTwoFactor
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StatePendingTwoFactor:
		return "pending_two_factor"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session. User is set only when
// State is StateAuthenticated.
type Snapshot struct {
	State         State
	User          *auth.User
	PendingUserID string
	Message       string
}

func (s Snapshot) IsLoading() bool { return s.State == StateLoading }

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

func (s Snapshot) Requires2FA() bool { return s.State == StatePendingTwoFactor }

// Authenticator is the gateway the manager drives.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (auth.LoginResult, error)
	Verify2FA(ctx context.Context, challenge auth.TwoFactorChallenge) (auth.VerifyResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*auth.User, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for discarded results and refresh failures.
func WithLogger(lg *zap.Logger) Option {
	return func(m *Manager) { m.log = logger.OrNop(lg) }
}

// Manager owns the single session of the process. Every operation takes a
// ticket when issued; its result is committed only if no later ticket has
// committed first.
type Manager struct {
	auth Authenticator
	log  *zap.Logger

	mu        sync.Mutex
	snap      Snapshot
	issued    uint64
	committed uint64
	listeners map[uint64]func(Snapshot)
	nextSub   uint64

	// serializes commit and fan-out so listeners observe commits in order
	notifyMu sync.Mutex

	refresh singleflight.Group
}

// NewManager returns a manager in StateLoading.
func NewManager(a Authenticator, opts ...Option) *Manager {
	m := &Manager{
		auth:      a,
		log:       zap.NewNop(),
		snap:      Snapshot{State: StateLoading},
		listeners: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn to be called after every commit. Listeners run on
// the committing goroutine and must not call Manager operations other than
// Snapshot.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Login submits credentials and commits PendingTwoFactor or Authenticated.
// Errors leave the session untouched.
func (m *Manager) Login(ctx context.Context, creds auth.Credentials) (auth.LoginResult, error) {
	ticket := m.ticket()
	res, err := m.auth.Login(ctx, creds)
	if err != nil {
		return res, err
	}

	if res.Pending2FA {
		m.commit(ticket, "login", Snapshot{
			State:         StatePendingTwoFactor,
			PendingUserID: res.UserID,
			Message:       res.Message,
		})
		return res, nil
	}
	m.commit(ticket, "login", Snapshot{State: StateAuthenticated, User: res.User, Message: res.Message})
	return res, nil
}

// Verify2FA completes a pending login. An empty UserID is taken from the
// pending challenge.
func (m *Manager) Verify2FA(ctx context.Context, challenge auth.TwoFactorChallenge) (auth.VerifyResult, error) {
	ticket := m.ticket()
	if challenge.UserID == "" {
		challenge.UserID = m.Snapshot().PendingUserID
	}

	res, err := m.auth.Verify2FA(ctx, challenge)
	if err != nil {
		return res, err
	}
	user := res.User
	m.commit(ticket, "verify_2fa", Snapshot{State: StateAuthenticated, User: &user})
	return res, nil
}

// Logout always ends Anonymous. The local token is gone before the remote
// sign-out is attempted, so its error is returned but does not block the
// transition.
func (m *Manager) Logout(ctx context.Context) error {
	ticket := m.ticket()
	err := m.auth.Logout(ctx)
	m.commit(ticket, "logout", Snapshot{State: StateAnonymous})
	return err
}

// Refresh re-resolves the current user. Concurrent calls share one request,
// which runs detached from any single caller's cancellation. Each caller
// still returns early with its own ctx error. An error leaves the session
// unchanged.
func (m *Manager) Refresh(ctx context.Context) (*auth.User, error) {
	shared := context.WithoutCancel(ctx)
	ch := m.refresh.DoChan("current_user", func() (any, error) {
		ticket := m.ticket()
		user, err := m.auth.CurrentUser(shared)
		if err != nil {
			m.log.Warn("session refresh failed", zap.Error(err))
			return nil, err
		}
		m.commit(ticket, "refresh", resolved(user))
		return user, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*auth.User), nil
	}
}

// Bootstrap resolves the initial identity once. Any failure settles to
// Anonymous, so the session never stays in Loading.
func (m *Manager) Bootstrap(ctx context.Context) Snapshot {
	ticket := m.ticket()
	user, err := m.auth.CurrentUser(ctx)
	if err != nil {
		m.log.Info("session bootstrap settled anonymous", zap.Error(err))
		user = nil
	}
	m.commit(ticket, "bootstrap", resolved(user))
	return m.Snapshot()
}

func resolved(user *auth.User) Snapshot {
	if user == nil {
		return Snapshot{State: StateAnonymous}
	}
	return Snapshot{State: StateAuthenticated, User: user}
}

func (m *Manager) ticket() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return m.issued
}

// commit installs next if ticket is not older than the last committed
// ticket, then notifies listeners. It reports whether next was installed.
func (m *Manager) commit(ticket uint64, op string, next Snapshot) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if ticket < m.committed {
		committed := m.committed
		m.mu.Unlock()
		m.log.Debug("discarding stale session result",
			zap.String("op", op),
			zap.Uint64("ticket", ticket),
			zap.Uint64("committed", committed),
		)
		return false
	}
	m.committed = ticket
	m.snap = next
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.log.Debug("session committed",
		zap.String("op", op),
		zap.String("state", next.State.String()),
		zap.Uint64("ticket", ticket),
	)
	for _, fn := range fns {
		fn(next)
	}
	return true
}
