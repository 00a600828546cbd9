package repository

import (
	"context"
	"errors"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
)

// ErrStoreNotConfigured is the cause attached when no backend is wired.
var ErrStoreNotConfigured = errors.New("document store is not configured")

// Unconfigured stands in for a store that could not be opened. Every call
// fails with apperror.ErrUnavailable, which lets the process keep serving
// pages and auth endpoints while the data endpoints report 500.
type Unconfigured struct{}

var _ ResourceRepository = Unconfigured{}

func unavailable() error {
	return apperror.Unavailable("document store", ErrStoreNotConfigured)
}

func (Unconfigured) Create(context.Context, *model.Resource) error { return unavailable() }

func (Unconfigured) GetByID(context.Context, string) (*model.Resource, error) {
	return nil, unavailable()
}

func (Unconfigured) Update(context.Context, string, model.ResourcePatch) error { return unavailable() }

func (Unconfigured) Delete(context.Context, string) error { return unavailable() }

func (Unconfigured) ListPublished(context.Context, PublishedQuery) (*Page, error) {
	return nil, unavailable()
}

func (Unconfigured) ListAll(context.Context) ([]model.Resource, error) { return nil, unavailable() }

func (Unconfigured) ListFeatured(context.Context, int) ([]model.Resource, error) {
	return nil, unavailable()
}

func (Unconfigured) Ping(context.Context) error { return ErrStoreNotConfigured }
