// Package handler contains the HTTP handlers for the resource API, the
// sign-in endpoints, the media delegate and the HTML pages.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules; those live in internal/service.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/service"
)

// ResourceHandler serves /resources.
type ResourceHandler struct {
	svc       *service.ResourceService
	logger    *slog.Logger
	adminList http.Handler
}

// NewResourceHandler wires the handler. verifier and admins guard the
// admin listing (GET /resources?admin=true), which shares its route with
// the public listing and so cannot be protected by router middleware.
func NewResourceHandler(svc *service.ResourceService, verifier auth.Verifier, admins []string, logger *slog.Logger) *ResourceHandler {
	h := &ResourceHandler{svc: svc, logger: logger}
	h.adminList = auth.RequireAuth(verifier, nil)(
		auth.RequireEmail(admins)(http.HandlerFunc(h.listAll)),
	)
	return h
}

// ListResponse is the body of the public listing.
type ListResponse struct {
	Resources  []model.Resource `json:"resources"`
	HasMore    bool             `json:"hasMore"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ResourcesResponse is the body of the featured and admin listings.
type ResourcesResponse struct {
	Resources []model.Resource `json:"resources"`
}

// SearchResponse echoes the query next to the matches.
type SearchResponse struct {
	Resources []model.Resource `json:"resources"`
	Query     string           `json:"query"`
	Category  string           `json:"category"`
}

// CreatedResponse is returned by POST /resources.
type CreatedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// queryLimit parses ?limit. Absent means 0, which the service replaces
// with its default.
func queryLimit(r *http.Request) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("limit"))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed("limit", "limit must be a positive integer")
	}
	return n, nil
}

// HandleList serves GET /resources.
//
//	?featured=true  newest published+featured resources
//	?admin=true     every resource, drafts included (bearer required)
//	otherwise       one page of published resources; category, search,
//	                limit and cursor narrow it
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if queryBool(r, "admin") {
		h.adminList.ServeHTTP(w, r)
		return
	}

	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch resources")
		return
	}

	if queryBool(r, "featured") {
		rs, err := h.svc.ListFeatured(r.Context(), limit)
		if err != nil {
			writeError(w, r, h.logger, err, "Failed to fetch resources")
			return
		}
		writeJSON(w, http.StatusOK, ResourcesResponse{Resources: rs})
		return
	}

	q := r.URL.Query()
	page, err := h.svc.ListPublished(r.Context(), service.ListInput{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    limit,
		Cursor:   q.Get("cursor"),
	})
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch resources")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Resources:  page.Resources,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

func (h *ResourceHandler) listAll(w http.ResponseWriter, r *http.Request) {
	rs, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch resources")
		return
	}
	writeJSON(w, http.StatusOK, ResourcesResponse{Resources: rs})
}

// HandleSearch serves GET /resources/search?q=...&category=...
func (h *ResourceHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	rs, err := h.svc.Search(r.Context(), query, category)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to search resources")
		return
	}
	if category == "" {
		category = string(model.CategoryAll)
	}
	writeJSON(w, http.StatusOK, SearchResponse{Resources: rs, Query: query, Category: category})
}

// HandleGet serves GET /resources/{id}. Drafts are visible only to callers
// that OptionalAuth identified.
func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	_, signedIn := auth.IdentityFromContext(r.Context())

	res, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), signedIn)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch resource")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCreate serves POST /resources.
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err, "Failed to create resource")
		return
	}

	res, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to create resource")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: res.ID, Message: "Resource created successfully"})
}

// HandleUpdate serves PUT /resources/{id}. Only the keys present in the
// body are changed; id and createdAt in the body are ignored.
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.ResourcePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err, "Failed to update resource")
		return
	}

	if err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, r, h.logger, err, "Failed to update resource")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resource updated successfully"})
}

// HandleDelete serves DELETE /resources/{id}.
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "Failed to delete resource")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resource deleted successfully"})
}

// HandleCategories serves GET /categories for the UI's tabs and form.
func (h *ResourceHandler) HandleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": model.Categories()})
}
