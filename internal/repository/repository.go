// Package repository defines the persistence contract for resources and the
// query helpers shared by every backend.
//
// Backends live in sub-packages (mongo, sqlite) and a caching decorator in
// cache. The service layer only ever sees the ResourceRepository interface.
package repository

import (
	"context"

	"github.com/sakif/resource-showcase/internal/model"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// PublishedQuery selects published resources for the public listing.
type PublishedQuery struct {
	Category model.Category // "" or "all" means every category
	Search   string         // case-insensitive substring; "" disables
	Limit    int
	Cursor   string // opaque; from a previous Page.NextCursor
}

// Page is one slice of a published listing.
type Page struct {
	Resources  []model.Resource
	HasMore    bool
	NextCursor string // empty when HasMore is false
}

type ResourceRepository interface {
	Create(ctx context.Context, r *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	Update(ctx context.Context, id string, patch model.ResourcePatch) error
	// Delete succeeds when the id does not exist.
	Delete(ctx context.Context, id string) error
	ListPublished(ctx context.Context, q PublishedQuery) (*Page, error)
	ListAll(ctx context.Context) ([]model.Resource, error)
	ListFeatured(ctx context.Context, limit int) ([]model.Resource, error)
}

// Pinger is implemented by stores that can report connectivity for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}
