package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"propdesk/apiclient"
	"propdesk/auth"
	"propdesk/companies"
	"propdesk/config"
	"propdesk/dashboard"
	"propdesk/db"
	"propdesk/logger"
	"propdesk/session"
	"propdesk/tokenstore"
	"propdesk/users"
)

const identitySessionFile = "identity_session"

// app holds everything a command needs for one run.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	registry  *prometheus.Registry
	client    *apiclient.Client
	auth      *auth.Service
	session   *session.Manager
	companies *companies.Service
	users     *users.Service
	dashboard *dashboard.Loader
	otp       *auth.OTPIssuer

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	lg, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: lg, registry: prometheus.NewRegistry()}

	metrics, err := apiclient.NewMetrics(apiclient.MetricsOptions{Registerer: a.registry})
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, err := a.tokenStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	identity, err := a.identitySource(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.client = apiclient.New(cfg.API.BaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		apiclient.WithTokenStore(store),
		apiclient.WithMetrics(metrics),
		apiclient.WithLogger(lg),
	)
	a.auth = auth.NewService(a.client, identity, lg)
	a.session = session.NewManager(a.auth, session.WithLogger(lg))
	a.companies = companies.NewService(a.client)
	a.users = users.NewService(a.client)
	a.dashboard = dashboard.NewLoader(a.auth, a.companies, a.users)
	return a, nil
}

func newLogger(s config.LogSettings) (*zap.Logger, error) {
	lg, err := logger.New(s.Env, s.Level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return lg, nil
}

func (a *app) tokenStore() (apiclient.TokenStore, error) {
	switch a.cfg.Token.Store {
	case config.StoreMemory:
		return tokenstore.NewMemory(), nil
	case config.StoreRedis:
		rc := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, rc.Close)
		return tokenstore.NewRedis(rc, a.cfg.Redis.Prefix, a.cfg.Token.Key, a.cfg.Redis.TokenTTL), nil
	default:
		path := a.cfg.Token.File
		if path == "" {
			var err error
			if path, err = tokenstore.DefaultPath(a.cfg.Token.Key); err != nil {
				return nil, err
			}
		}
		return tokenstore.NewFile(path), nil
	}
}

// identitySource returns nil when the secondary identity is disabled.
func (a *app) identitySource(ctx context.Context) (auth.IdentitySource, error) {
	if !a.cfg.Identity.Enabled {
		return nil, nil
	}

	path := a.cfg.Identity.SessionFile
	if path == "" {
		var err error
		if path, err = tokenstore.DefaultPath(identitySessionFile); err != nil {
			return nil, err
		}
	}

	pool, err := db.NewPool(ctx, a.cfg.Identity.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("identity directory: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	repo := auth.NewRepository(pool)
	a.otp = auth.NewOTPIssuer(repo)

	sessions := auth.NewTokenSession(tokenstore.NewFile(path), a.cfg.Identity.JWTSecret)
	return auth.NewDirectoryIdentity(sessions, repo), nil
}

// start rehydrates the token and resolves the initial session.
func (a *app) start(ctx context.Context) session.Snapshot {
	if err := a.client.LoadToken(ctx); err != nil {
		a.log.Warn("could not load stored token", zap.Error(err))
	}
	snap := a.session.Bootstrap(ctx)
	a.log.Debug("session ready", zap.String("state", snap.State.String()))
	return snap
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	_ = a.log.Sync()
	return errors.Join(errs...)
}
