// Package service holds the business rules between the HTTP handlers and
// the repository.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, normalizes, enforces visibility rules
//	Repository      → reads and writes the store
//
// Services take plain Go values and return apperror values, never HTTP
// types, so they are tested with ordinary function calls against the
// in-memory store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxTags              = 20
	MaxTagLength         = 40

	DefaultFeaturedLimit = 6
	MaxFeaturedLimit     = 24

	// SearchResultCap bounds GET /resources/search.
	SearchResultCap = 100
)

// CreateInput is the body of a create request.
type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	MediaURL    string   `json:"mediaUrl"`
	MediaType   string   `json:"mediaType"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ResourceURL string   `json:"resourceUrl"`
	IsPublished bool     `json:"isPublished"`
	Featured    bool     `json:"featured"`
}

// ListInput selects a page of the public listing.
type ListInput struct {
	Category string
	Search   string
	Limit    int
	Cursor   string
}

// ResourceService implements every resource operation the API exposes.
type ResourceService struct {
	repo   repository.ResourceRepository
	logger *slog.Logger
}

func NewResourceService(repo repository.ResourceRepository, logger *slog.Logger) *ResourceService {
	return &ResourceService{repo: repo, logger: logger}
}

func invalidMediaType() error {
	return apperror.ValidationFailed("mediaType", `mediaType must be either "image" or "video"`)
}

func invalidCategory() error {
	ids := make([]string, 0, 9)
	for _, c := range model.Categories() {
		ids = append(ids, string(c.ID))
	}
	return apperror.ValidationFailed("category", "category must be one of: "+strings.Join(ids, ", "))
}

// parseCategoryFilter accepts "", "all" or a storable category.
func parseCategoryFilter(s string) (model.Category, error) {
	c := model.Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c == model.CategoryAll {
		return "", nil
	}
	if !c.Valid() {
		return "", invalidCategory()
	}
	return c, nil
}

// Create validates in, stores it and returns the stored resource.
//
// Required fields are checked in a fixed order and the first missing one is
// reported, so clients get one stable message per bad request. Enum checks
// follow, then URL and length checks.
func (s *ResourceService) Create(ctx context.Context, in CreateInput) (*model.Resource, error) {
	r := &model.Resource{
		Title:       cleanText(in.Title),
		Description: cleanText(in.Description),
		MediaURL:    strings.TrimSpace(in.MediaURL),
		MediaType:   model.MediaType(strings.TrimSpace(in.MediaType)),
		Category:    model.Category(strings.TrimSpace(in.Category)),
		ResourceURL: strings.TrimSpace(in.ResourceURL),
		IsPublished: in.IsPublished,
		Featured:    in.Featured,
	}

	required := []struct{ name, value string }{
		{"title", r.Title},
		{"description", r.Description},
		{"mediaUrl", r.MediaURL},
		{"mediaType", string(r.MediaType)},
		{"category", string(r.Category)},
		{"resourceUrl", r.ResourceURL},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, apperror.ValidationFailed(f.name, "Missing required field: "+f.name)
		}
	}
	if !r.MediaType.Valid() {
		return nil, invalidMediaType()
	}
	if !r.Category.Valid() {
		return nil, invalidCategory()
	}
	if err := firstError(
		checkLength("title", r.Title, MaxTitleLength),
		checkLength("description", r.Description, MaxDescriptionLength),
		checkURL("mediaUrl", r.MediaURL),
		checkURL("resourceUrl", r.ResourceURL),
	); err != nil {
		return nil, err
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	r.Tags = tags

	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create resource",
			slog.String("title", r.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	s.logger.Info("resource created",
		slog.String("id", r.ID),
		slog.String("category", string(r.Category)),
		slog.Bool("published", r.IsPublished),
	)
	return r, nil
}

// Update validates the present fields of patch and applies them.
// Fields absent from the patch are never touched.
func (s *ResourceService) Update(ctx context.Context, id string, patch model.ResourcePatch) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "resource ID is required")
	}

	if err := s.cleanPatch(&patch); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update resource",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("updating resource %s: %w", id, err)
	}

	s.logger.Info("resource updated", slog.String("id", id))
	return nil
}

// cleanPatch trims and validates the present fields in place.
func (s *ResourceService) cleanPatch(p *model.ResourcePatch) error {
	if p.Title != nil {
		v := cleanText(*p.Title)
		if v == "" {
			return apperror.ValidationFailed("title", "title cannot be empty")
		}
		if err := checkLength("title", v, MaxTitleLength); err != nil {
			return err
		}
		p.Title = &v
	}
	if p.Description != nil {
		v := cleanText(*p.Description)
		if v == "" {
			return apperror.ValidationFailed("description", "description cannot be empty")
		}
		if err := checkLength("description", v, MaxDescriptionLength); err != nil {
			return err
		}
		p.Description = &v
	}
	if p.MediaType != nil && !p.MediaType.Valid() {
		return invalidMediaType()
	}
	if p.Category != nil && !p.Category.Valid() {
		return invalidCategory()
	}
	if p.MediaURL != nil {
		v := strings.TrimSpace(*p.MediaURL)
		if err := checkURL("mediaUrl", v); err != nil {
			return err
		}
		p.MediaURL = &v
	}
	if p.ResourceURL != nil {
		v := strings.TrimSpace(*p.ResourceURL)
		if err := checkURL("resourceUrl", v); err != nil {
			return err
		}
		p.ResourceURL = &v
	}
	if p.Tags != nil {
		tags, err := normalizeTags(*p.Tags)
		if err != nil {
			return err
		}
		p.Tags = &tags
	}
	return nil
}

// Delete removes a resource. Deleting an unknown id succeeds.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "resource ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete resource",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting resource %s: %w", id, err)
	}
	s.logger.Info("resource deleted", slog.String("id", id))
	return nil
}

// Get returns one resource. Unpublished resources are only visible when
// includeUnpublished is set (an authenticated caller); everyone else gets
// NotFound, indistinguishable from a missing id.
func (s *ResourceService) Get(ctx context.Context, id string, includeUnpublished bool) (*model.Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "resource ID is required")
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsPublished && !includeUnpublished {
		return nil, apperror.NotFound("resource", id)
	}
	return r, nil
}

// ListPublished returns one page of published resources.
func (s *ResourceService) ListPublished(ctx context.Context, in ListInput) (*repository.Page, error) {
	category, err := parseCategoryFilter(in.Category)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPublished(ctx, repository.PublishedQuery{
		Category: category,
		Search:   strings.TrimSpace(in.Search),
		Limit:    repository.ClampLimit(in.Limit, repository.DefaultPageSize, repository.MaxPageSize),
		Cursor:   in.Cursor,
	})
}

// ListFeatured returns the newest published, featured resources.
func (s *ResourceService) ListFeatured(ctx context.Context, limit int) ([]model.Resource, error) {
	return s.repo.ListFeatured(ctx, repository.ClampLimit(limit, DefaultFeaturedLimit, MaxFeaturedLimit))
}

// ListAll returns every resource, drafts included, for the admin table.
func (s *ResourceService) ListAll(ctx context.Context) ([]model.Resource, error) {
	return s.repo.ListAll(ctx)
}

// Search returns published resources matching query, newest first, capped
// at SearchResultCap. An empty query is a validation error.
func (s *ResourceService) Search(ctx context.Context, query, category string) ([]model.Resource, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "Search query is required")
	}
	cat, err := parseCategoryFilter(category)
	if err != nil {
		return nil, err
	}

	out := []model.Resource{}
	q := repository.PublishedQuery{Category: cat, Search: query, Limit: repository.MaxPageSize}
	for len(out) < SearchResultCap {
		page, err := s.repo.ListPublished(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Resources...)
		if !page.HasMore {
			break
		}
		q.Cursor = page.NextCursor
	}
	if len(out) > SearchResultCap {
		out = out[:SearchResultCap]
	}
	return out, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
