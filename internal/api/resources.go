package api

import (
	"context"
	"fmt"

	"github.com/gefiproj/gefiproj/internal/domain"
)

// Resource is the uniform CRUD surface every entity endpoint follows.
type Resource[T any] struct {
	c        *Client
	endpoint string
}

// NewResource binds a typed resource to an endpoint path like "/api/projets".
func NewResource[T any](c *Client, endpoint string) *Resource[T] {
	return &Resource[T]{c: c, endpoint: endpoint}
}

// List fetches all entities. A null backend body yields an empty slice,
// never nil.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, "GET", r.endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Get fetches one entity. The id is checked before any network call.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	out := new(T)
	if err := r.c.do(ctx, "GET", fmt.Sprintf("%s/%d", r.endpoint, id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new entity and returns the created record, which carries
// the server-assigned identifier.
func (r *Resource[T]) Create(ctx context.Context, entity T) (*T, error) {
	out := new(T)
	if err := r.c.do(ctx, "POST", r.endpoint, entity, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update puts the full entity under its id and returns the updated record.
func (r *Resource[T]) Update(ctx context.Context, id int64, entity T) (*T, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	out := new(T)
	if err := r.c.do(ctx, "PUT", fmt.Sprintf("%s/%d", r.endpoint, id), entity, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the entity. No body is expected back.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return r.c.do(ctx, "DELETE", fmt.Sprintf("%s/%d", r.endpoint, id), nil, nil)
}

// Projects returns the projects resource.
func (c *Client) Projects() *Resource[domain.Project] {
	return NewResource[domain.Project](c, "/api/projets")
}

// Funders returns the funders resource.
func (c *Client) Funders() *Resource[domain.Funder] {
	return NewResource[domain.Funder](c, "/api/financeurs")
}

// Fundings returns the fundings resource.
func (c *Client) Fundings() *Resource[domain.Funding] {
	return NewResource[domain.Funding](c, "/api/financements")
}

// Receipts returns the receipts resource.
func (c *Client) Receipts() *Resource[domain.Receipt] {
	return NewResource[domain.Receipt](c, "/api/recettes")
}

// Allocations returns the allocated-amounts resource.
func (c *Client) Allocations() *Resource[domain.Allocation] {
	return NewResource[domain.Allocation](c, "/api/montants")
}

// Expenses returns the expenses resource.
func (c *Client) Expenses() *Resource[domain.Expense] {
	return NewResource[domain.Expense](c, "/api/depenses")
}

// Users returns the users resource.
func (c *Client) Users() *Resource[domain.User] {
	return NewResource[domain.User](c, "/api/users")
}
