package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"propdesk/apiclient"
	"propdesk/logger"
)

var (
	// ErrMissingAuthData signals a success answer without the token or user it
	// is contractually bound to carry.
	ErrMissingAuthData = errors.New("auth: response missing authentication details")
	// ErrInvalidCredentials signals an empty email or password.
	ErrInvalidCredentials = errors.New("auth: email and password are required")
	// ErrInvalidChallenge signals an empty user id or verification code.
	ErrInvalidChallenge = errors.New("auth: user id and code are required")
)

const (
	loginPath  = "/users/login"
	verifyPath = "/users/login/verify"
	mePath     = "/users/me"
)

// API is the part of the HTTP client the gateway needs.
type API interface {
	Get(ctx context.Context, endpoint string, out any, opts ...apiclient.RequestOption) error
	Post(ctx context.Context, endpoint string, body, out any, opts ...apiclient.RequestOption) error
	SetToken(ctx context.Context, token string) error
	HasToken() bool
}

// Service turns the login, verification and identity endpoints into a
// single normalized contract.
type Service struct {
	api      API
	fallback IdentitySource
	log      *zap.Logger
}

// NewService creates an auth gateway. fallback may be nil when no secondary
// identity source is configured.
func NewService(api API, fallback IdentitySource, lg *zap.Logger) *Service {
	return &Service{
		api:      api,
		fallback: fallback,
		log:      logger.OrNop(lg),
	}
}

// Login submits credentials. A pending second factor stores no token; any
// other success stores the returned token before returning.
func (s *Service) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	var raw rawLoginResponse
	if err := s.api.Post(ctx, loginPath, creds, &raw, apiclient.WithoutAuth()); err != nil {
		return LoginResult{}, err
	}
	n := normalizeLogin(raw)

	if n.pending() {
		userID := n.userID
		if userID == "" {
			userID = creds.Email
		}
		s.log.Info("login requires second factor", zap.String("email", logger.MaskEmail(creds.Email)))
		return LoginResult{Pending2FA: true, UserID: userID, Message: n.message}, nil
	}

	if n.accessToken == "" || n.user == nil {
		return LoginResult{}, ErrMissingAuthData
	}
	if err := s.api.SetToken(ctx, n.accessToken); err != nil {
		return LoginResult{}, fmt.Errorf("auth: store token: %w", err)
	}

	s.log.Info("login succeeded", zap.Int64("user_id", n.user.ID))
	return LoginResult{User: n.user, Message: n.message}, nil
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify2FA answers a pending challenge and stores the returned token.
func (s *Service) Verify2FA(ctx context.Context, challenge TwoFactorChallenge) (VerifyResult, error) {
	challenge.UserID = strings.TrimSpace(challenge.UserID)
	challenge.Code = strings.TrimSpace(challenge.Code)
	if challenge.UserID == "" || challenge.Code == "" {
		return VerifyResult{}, ErrInvalidChallenge
	}

	var raw rawLoginResponse
	req := verifyRequest{Email: challenge.UserID, Code: challenge.Code}
	if err := s.api.Post(ctx, verifyPath, req, &raw, apiclient.WithoutAuth()); err != nil {
		return VerifyResult{}, err
	}
	n := normalizeLogin(raw)

	if n.accessToken == "" || n.user == nil {
		return VerifyResult{}, ErrMissingAuthData
	}
	if err := s.api.SetToken(ctx, n.accessToken); err != nil {
		return VerifyResult{}, fmt.Errorf("auth: store token: %w", err)
	}

	s.log.Info("second factor verified", zap.Int64("user_id", n.user.ID))
	return VerifyResult{Token: n.accessToken, User: *n.user}, nil
}

// Logout clears the local token first and then ends the secondary identity
// session. A failed remote sign-out is returned after local cleanup.
func (s *Service) Logout(ctx context.Context) error {
	var errs []error
	if err := s.api.SetToken(ctx, ""); err != nil {
		errs = append(errs, err)
	}
	if s.fallback != nil {
		if err := s.fallback.SignOut(ctx); err != nil {
			s.log.Warn("remote sign-out failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("auth: sign out: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CurrentUser resolves the signed-in user. A nil user with a nil error means
// nobody is signed in. Only unexpected API errors are returned.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	if !s.api.HasToken() {
		return s.fallbackUser(ctx), nil
	}

	var user User
	err := s.api.Get(ctx, mePath, &user)
	if err == nil {
		return &user, nil
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return nil, nil
	}
	if apiErr, ok := apiclient.AsError(err); ok && apiErr.Kind == apiclient.KindAPI && apiErr.Status != http.StatusNotFound {
		return nil, err
	}

	s.log.Debug("identity endpoint unavailable, using fallback", zap.Error(err))
	return s.fallbackUser(ctx), nil
}

func (s *Service) fallbackUser(ctx context.Context) *User {
	if s.fallback == nil {
		return nil
	}
	user, err := s.fallback.CurrentUser(ctx)
	if err != nil {
		s.log.Debug("fallback identity lookup failed", zap.Error(err))
		return nil
	}
	return user
}
