package companies

import (
	"context"
	"fmt"

	"propdesk/apiclient"
)

const basePath = "/property-management/companies"

// API is the part of the HTTP client the service needs.
type API interface {
	Get(ctx context.Context, endpoint string, out any, opts ...apiclient.RequestOption) error
	Post(ctx context.Context, endpoint string, body, out any, opts ...apiclient.RequestOption) error
	Patch(ctx context.Context, endpoint string, body, out any, opts ...apiclient.RequestOption) error
	Delete(ctx context.Context, endpoint string, out any, opts ...apiclient.RequestOption) error
}

// Service exposes the company endpoints of the dashboard API.
type Service struct {
	api API
}

// NewService builds a Service on top of an authenticated client.
func NewService(api API) *Service {
	return &Service{api: api}
}

// List returns every company visible to the signed-in user.
func (s *Service) List(ctx context.Context) ([]Company, error) {
	var out []Company
	if err := s.api.Get(ctx, basePath, &out); err != nil {
		return nil, fmt.Errorf("companies: list: %w", err)
	}
	return out, nil
}

// Get returns one company.
func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, ErrInvalidID
	}
	var out Company
	if err := s.api.Get(ctx, itemPath(id), &out); err != nil {
		return Company{}, fmt.Errorf("companies: get %d: %w", id, err)
	}
	return out, nil
}

// Create registers a new company.
func (s *Service) Create(ctx context.Context, in Input) (Company, error) {
	if err := in.Validate(); err != nil {
		return Company{}, err
	}
	var out Company
	if err := s.api.Post(ctx, basePath, in, &out); err != nil {
		return Company{}, fmt.Errorf("companies: create: %w", err)
	}
	return out, nil
}

// Update replaces the editable fields of a company.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Company, error) {
	if id <= 0 {
		return Company{}, ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return Company{}, err
	}
	var out Company
	if err := s.api.Patch(ctx, itemPath(id), in, &out); err != nil {
		return Company{}, fmt.Errorf("companies: update %d: %w", id, err)
	}
	return out, nil
}

// Delete removes a company.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.api.Delete(ctx, itemPath(id), nil); err != nil {
		return fmt.Errorf("companies: delete %d: %w", id, err)
	}
	return nil
}

func itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
