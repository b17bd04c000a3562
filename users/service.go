package users

import (
	"context"
	"fmt"

	"propdesk/apiclient"
)

const (
	basePath     = "/users"
	registerPath = "/users/register"
)

// API is the part of the HTTP client the service needs.
type API interface {
	Get(ctx context.Context, endpoint string, out any, opts ...apiclient.RequestOption) error
	Post(ctx context.Context, endpoint string, body, out any, opts ...apiclient.RequestOption) error
	Patch(ctx context.Context, endpoint string, body, out any, opts ...apiclient.RequestOption) error
	Delete(ctx context.Context, endpoint string, out any, opts ...apiclient.RequestOption) error
}

// Service exposes user administration.
type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := s.api.Get(ctx, basePath, &out); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	if id <= 0 {
		return Account{}, ErrInvalidID
	}
	var out Account
	if err := s.api.Get(ctx, itemPath(id), &out); err != nil {
		return Account{}, fmt.Errorf("users: get %d: %w", id, err)
	}
	return out, nil
}

// Create registers a new user on behalf of the signed-in administrator.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var out Account
	if err := s.api.Post(ctx, registerPath, in, &out); err != nil {
		return Account{}, fmt.Errorf("users: create: %w", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Account, error) {
	if id <= 0 {
		return Account{}, ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var out Account
	if err := s.api.Patch(ctx, itemPath(id), in, &out); err != nil {
		return Account{}, fmt.Errorf("users: update %d: %w", id, err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.api.Delete(ctx, itemPath(id), nil); err != nil {
		return fmt.Errorf("users: delete %d: %w", id, err)
	}
	return nil
}

func itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
