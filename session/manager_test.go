package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"propdesk/auth"
)

type fakeAuth struct {
	mu            sync.Mutex
	loginRes      auth.LoginResult
	loginErr      error
	loginGate     chan struct{}
	verifyRes     auth.VerifyResult
	verifyErr     error
	lastChallenge auth.TwoFactorChallenge
	logoutErr     error
	logoutCalls   int
	user          *auth.User
	userErr       error
	userGate      chan struct{}
	userEntered   chan struct{}
	currentCalls  atomic.Int32
	userCtxErr    error
}

func (f *fakeAuth) Login(_ context.Context, _ auth.Credentials) (auth.LoginResult, error) {
	if f.loginGate != nil {
		<-f.loginGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginRes, f.loginErr
}

func (f *fakeAuth) Verify2FA(_ context.Context, c auth.TwoFactorChallenge) (auth.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastChallenge = c
	return f.verifyRes, f.verifyErr
}

func (f *fakeAuth) Logout(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*auth.User, error) {
	f.currentCalls.Add(1)
	if f.userEntered != nil {
		f.userEntered <- struct{}{}
	}
	if f.userGate != nil {
		<-f.userGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCtxErr = ctx.Err()
	return f.user, f.userErr
}

func newManager(t *testing.T, fa *fakeAuth) *Manager {
	t.Helper()
	return NewManager(fa, WithLogger(zaptest.NewLogger(t)))
}

func TestManager_StartsLoading(t *testing.T) {
	m := newManager(t, &fakeAuth{})
	snap := m.Snapshot()
	if !snap.IsLoading() || snap.IsAuthenticated() || snap.Requires2FA() {
		t.Fatalf("expected loading snapshot, got %+v", snap)
	}
}

func TestManager_Bootstrap(t *testing.T) {
	cases := []struct {
		name    string
		user    *auth.User
		err     error
		want    State
		wantUsr bool
	}{
		{name: "user", user: &auth.User{ID: 1}, want: StateAuthenticated, wantUsr: true},
		{name: "no user", want: StateAnonymous},
		{name: "error settles anonymous", err: errors.New("boom"), want: StateAnonymous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newManager(t, &fakeAuth{user: tc.user, userErr: tc.err})
			snap := m.Bootstrap(context.Background())
			if snap.State != tc.want {
				t.Fatalf("expected %s got %s", tc.want, snap.State)
			}
			if (snap.User != nil) != tc.wantUsr {
				t.Fatalf("unexpected user %+v", snap.User)
			}
		})
	}
}

func TestManager_LoginTransitions(t *testing.T) {
	fa := &fakeAuth{loginRes: auth.LoginResult{Pending2FA: true, UserID: "42", Message: "verification code sent"}}
	m := newManager(t, fa)

	if _, err := m.Login(context.Background(), auth.Credentials{Email: "a@b.com", Password: "x"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	snap := m.Snapshot()
	if !snap.Requires2FA() || snap.PendingUserID != "42" || snap.User != nil {
		t.Fatalf("expected pending 2FA for 42, got %+v", snap)
	}

	fa.verifyRes = auth.VerifyResult{Token: "t2", User: auth.User{ID: 42}}
	if _, err := m.Verify2FA(context.Background(), auth.TwoFactorChallenge{Code: "123456"}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if fa.lastChallenge.UserID != "42" {
		t.Fatalf("expected pending user id to be used, got %q", fa.lastChallenge.UserID)
	}
	snap = m.Snapshot()
	if !snap.IsAuthenticated() || snap.User.ID != 42 || snap.PendingUserID != "" {
		t.Fatalf("expected authenticated 42, got %+v", snap)
	}
}

func TestManager_ErrorsDoNotCommit(t *testing.T) {
	fa := &fakeAuth{user: &auth.User{ID: 1}}
	m := newManager(t, fa)
	m.Bootstrap(context.Background())

	fa.loginErr = auth.ErrMissingAuthData
	if _, err := m.Login(context.Background(), auth.Credentials{Email: "a", Password: "b"}); !errors.Is(err, auth.ErrMissingAuthData) {
		t.Fatalf("expected ErrMissingAuthData, got %v", err)
	}
	fa.verifyErr = auth.ErrInvalidChallenge
	if _, err := m.Verify2FA(context.Background(), auth.TwoFactorChallenge{}); !errors.Is(err, auth.ErrInvalidChallenge) {
		t.Fatalf("expected ErrInvalidChallenge, got %v", err)
	}
	fa.userErr = errors.New("server exploded")
	if _, err := m.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if snap := m.Snapshot(); !snap.IsAuthenticated() || snap.User.ID != 1 {
		t.Fatalf("expected untouched session, got %+v", snap)
	}
}

func TestManager_LogoutAlwaysAnonymous(t *testing.T) {
	fa := &fakeAuth{user: &auth.User{ID: 1}, logoutErr: errors.New("remote sign out failed")}
	m := newManager(t, fa)
	m.Bootstrap(context.Background())

	if err := m.Logout(context.Background()); err == nil {
		t.Fatal("expected remote error to be returned")
	}
	if snap := m.Snapshot(); snap.State != StateAnonymous || snap.User != nil {
		t.Fatalf("expected anonymous, got %+v", snap)
	}

	fa.logoutErr = nil
	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if fa.logoutCalls != 2 || m.Snapshot().State != StateAnonymous {
		t.Fatalf("expected idempotent logout, calls=%d state=%s", fa.logoutCalls, m.Snapshot().State)
	}
}

func TestManager_RefreshTransitions(t *testing.T) {
	fa := &fakeAuth{user: &auth.User{ID: 9}}
	m := newManager(t, fa)

	user, err := m.Refresh(context.Background())
	if err != nil || user == nil || user.ID != 9 {
		t.Fatalf("refresh: %+v %v", user, err)
	}
	if !m.Snapshot().IsAuthenticated() {
		t.Fatalf("expected authenticated, got %+v", m.Snapshot())
	}

	fa.user = nil
	user, err = m.Refresh(context.Background())
	if err != nil || user != nil {
		t.Fatalf("refresh to anonymous: %+v %v", user, err)
	}
	if m.Snapshot().State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", m.Snapshot().State)
	}
}

func TestManager_BootstrapResultDiscardedAfterLogin(t *testing.T) {
	fa := &fakeAuth{
		userGate:    make(chan struct{}),
		userEntered: make(chan struct{}, 1),
		loginRes:    auth.LoginResult{User: &auth.User{ID: 3}},
	}
	m := newManager(t, fa)

	done := make(chan Snapshot, 1)
	go func() { done <- m.Bootstrap(context.Background()) }()
	<-fa.userEntered

	if _, err := m.Login(context.Background(), auth.Credentials{Email: "a", Password: "b"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	close(fa.userGate)

	snap := <-done
	if !snap.IsAuthenticated() || snap.User.ID != 3 {
		t.Fatalf("expected stale bootstrap to be discarded, got %+v", snap)
	}
}

func TestManager_StaleLoginDiscarded(t *testing.T) {
	gate := make(chan struct{})
	fa := &fakeAuth{loginGate: gate, loginRes: auth.LoginResult{User: &auth.User{ID: 1}}}
	m := newManager(t, fa)

	type result struct {
		res auth.LoginResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := m.Login(context.Background(), auth.Credentials{Email: "a", Password: "b"})
		done <- result{res, err}
	}()

	// wait for the login ticket to be issued before the logout takes its own
	deadline := time.Now().Add(time.Second)
	for {
		m.mu.Lock()
		issued := m.issued
		m.mu.Unlock()
		if issued == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("login never issued a ticket")
		}
		time.Sleep(time.Millisecond)
	}

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(gate)

	r := <-done
	if r.err != nil || r.res.User == nil {
		t.Fatalf("caller should still receive the login result, got %+v %v", r.res, r.err)
	}
	if snap := m.Snapshot(); snap.State != StateAnonymous {
		t.Fatalf("expected stale login discarded, got %+v", snap)
	}
}

func TestManager_RefreshCollapsesConcurrentCalls(t *testing.T) {
	fa := &fakeAuth{
		user:        &auth.User{ID: 5},
		userGate:    make(chan struct{}),
		userEntered: make(chan struct{}, 1),
	}
	m := newManager(t, fa)

	var wg sync.WaitGroup
	users := make([]*auth.User, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		users[0], _ = m.Refresh(context.Background())
	}()
	<-fa.userEntered

	for i := 1; i < len(users); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i], _ = m.Refresh(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(fa.userGate)
	wg.Wait()

	if got := fa.currentCalls.Load(); got != 1 {
		t.Fatalf("expected one CurrentUser call, got %d", got)
	}
	for i, u := range users {
		if u == nil || u.ID != 5 {
			t.Fatalf("caller %d: unexpected user %+v", i, u)
		}
	}
}

func TestManager_RefreshSurvivesFirstCallerCancel(t *testing.T) {
	fa := &fakeAuth{
		user:        &auth.User{ID: 7},
		userGate:    make(chan struct{}),
		userEntered: make(chan struct{}, 1),
	}
	m := newManager(t, fa)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Refresh(firstCtx)
		firstErr <- err
	}()
	<-fa.userEntered

	type result struct {
		user *auth.User
		err  error
	}
	second := make(chan result, 1)
	go func() {
		u, err := m.Refresh(context.Background())
		second <- result{u, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first caller canceled, got %v", err)
	}

	close(fa.userGate)
	res := <-second
	if res.err != nil || res.user == nil || res.user.ID != 7 {
		t.Fatalf("expected shared refresh to succeed, got %+v %v", res.user, res.err)
	}
	if got := fa.currentCalls.Load(); got != 1 {
		t.Fatalf("expected one CurrentUser call, got %d", got)
	}
	fa.mu.Lock()
	ctxErr := fa.userCtxErr
	fa.mu.Unlock()
	if ctxErr != nil {
		t.Fatalf("shared call saw canceled context: %v", ctxErr)
	}
	if m.Snapshot().State != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", m.Snapshot().State)
	}
}

func TestManager_Subscribe(t *testing.T) {
	fa := &fakeAuth{user: &auth.User{ID: 1}}
	m := newManager(t, fa)

	var seen []State
	cancel := m.Subscribe(func(s Snapshot) { seen = append(seen, s.State) })

	m.Bootstrap(context.Background())
	_ = m.Logout(context.Background())
	cancel()
	cancel()
	m.Bootstrap(context.Background())

	if len(seen) != 2 || seen[0] != StateAuthenticated || seen[1] != StateAnonymous {
		t.Fatalf("unexpected notifications %v", seen)
	}
}
