package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/handler"
	"github.com/sakif/resource-showcase/internal/logger"
	"github.com/sakif/resource-showcase/internal/media"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
	"github.com/sakif/resource-showcase/internal/repository/memory"
	"github.com/sakif/resource-showcase/internal/service"
)

// stubVerifier accepts "good-token" (admin@example.com) and "other-token"
// (someone@example.com), reports "down-token" as an unreachable identity
// service and rejects everything else.
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*model.Identity, error) {
	switch token {
	case "good-token":
		return &model.Identity{UID: "u1", Email: "admin@example.com", EmailVerified: true}, nil
	case "other-token":
		return &model.Identity{UID: "u2", Email: "someone@example.com", EmailVerified: true}, nil
	case "down-token":
		return nil, &auth.Rejection{Reason: auth.ServiceUnavailable, Err: errors.New("certs: dial tcp: refused")}
	default:
		return nil, &auth.Rejection{Reason: auth.InvalidCredential}
	}
}

// stubMedia records the last delete and answers with the configured result.
type stubMedia struct {
	deleted  bool
	err      error
	lastID   string
	lastKind model.MediaType
}

func (m *stubMedia) Name() string { return "stub" }

func (m *stubMedia) Delete(_ context.Context, publicID string, kind model.MediaType) (bool, error) {
	m.lastID, m.lastKind = publicID, kind
	return m.deleted, m.err
}

func (m *stubMedia) UploadParams(_ context.Context, filename, contentType string) (*media.UploadParams, error) {
	kind, err := media.MediaTypeFor(contentType)
	if err != nil {
		return nil, err
	}
	return &media.UploadParams{
		Provider:  "stub",
		Method:    http.MethodPut,
		UploadURL: "https://cdn.example.com/upload/" + filename,
		MediaType: kind,
	}, nil
}

type env struct {
	router http.Handler
	store  *memory.Store
	media  *stubMedia
}

// newEnv mounts the handlers the way the server does, against an
// in-memory store.
func newEnv(t *testing.T, store repository.ResourceRepository, admins ...string) *env {
	t.Helper()
	log := logger.Discard()
	mem, _ := store.(*memory.Store)

	svc := service.NewResourceService(store, log)
	rh := handler.NewResourceHandler(svc, stubVerifier{}, admins, log)
	mp := &stubMedia{deleted: true}
	mh := handler.NewMediaHandler(mp, log)

	requireAuth := auth.RequireAuth(stubVerifier{}, nil)
	r := chi.NewRouter()
	r.Get("/resources", rh.HandleList)
	r.Get("/resources/search", rh.HandleSearch)
	r.Get("/categories", rh.HandleCategories)
	r.With(auth.OptionalAuth(stubVerifier{})).Get("/resources/{id}", rh.HandleGet)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth, auth.RequireEmail(admins))
		r.Post("/resources", rh.HandleCreate)
		r.Put("/resources/{id}", rh.HandleUpdate)
		r.Delete("/resources/{id}", rh.HandleDelete)
		r.Post("/media/delete", mh.HandleDelete)
		r.Get("/media/upload-params", mh.HandleUploadParams)
	})
	return &env{router: r, store: mem, media: mp}
}

func (e *env) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func seed(t *testing.T, store *memory.Store, title string, mutate func(*model.Resource)) *model.Resource {
	t.Helper()
	r := &model.Resource{
		Title:       title,
		Description: "about " + title,
		MediaURL:    "https://res.cloudinary.com/demo/image/upload/x.png",
		MediaType:   model.MediaImage,
		Category:    model.CategoryWeb,
		Tags:        []string{},
		ResourceURL: "https://example.com/" + title,
		IsPublished: true,
	}
	if mutate != nil {
		mutate(r)
	}
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

const validBody = `{
	"title": "React Patterns",
	"description": "Component patterns",
	"mediaUrl": "https://res.cloudinary.com/demo/image/upload/a.png",
	"mediaType": "image",
	"category": "web",
	"resourceUrl": "https://example.com/react"
}`

// =========================================================================
// LISTING
// =========================================================================

func TestList_PublicHidesDrafts(t *testing.T) {
	e := newEnv(t, memory.New())
	seed(t, e.store, "public", nil)
	seed(t, e.store, "draft", func(r *model.Resource) { r.IsPublished = false; r.Featured = true })

	rr := e.do(t, http.MethodGet, "/resources", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[handler.ListResponse](t, rr)
	require.Len(t, body.Resources, 1)
	assert.Equal(t, "public", body.Resources[0].Title)
	assert.False(t, body.HasMore)

	rr = e.do(t, http.MethodGet, "/resources?featured=true", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[handler.ResourcesResponse](t, rr).Resources)
}

func TestList_PaginatesWithCursor(t *testing.T) {
	e := newEnv(t, memory.New())
	for _, title := range []string{"a", "b", "c"} {
		seed(t, e.store, title, nil)
	}

	rr := e.do(t, http.MethodGet, "/resources?limit=2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	first := decode[handler.ListResponse](t, rr)
	require.Len(t, first.Resources, 2)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	rr = e.do(t, http.MethodGet, "/resources?limit=2&cursor="+first.NextCursor, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[handler.ListResponse](t, rr)
	require.Len(t, second.Resources, 1)
	assert.False(t, second.HasMore)
}

func TestList_BadQuery(t *testing.T) {
	e := newEnv(t, memory.New())

	for _, path := range []string{"/resources?limit=abc", "/resources?category=gaming", "/resources?cursor=%25%25%25"} {
		rr := e.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, "validation_error", decode[handler.ErrorResponse](t, rr).Error, path)
	}
}

func TestList_AdminRequiresToken(t *testing.T) {
	e := newEnv(t, memory.New())
	seed(t, e.store, "draft", func(r *model.Resource) { r.IsPublished = false })

	rr := e.do(t, http.MethodGet, "/resources?admin=true", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "unauthorized", body.Error)
	assert.Equal(t, "No valid authorization header", body.Message)

	rr = e.do(t, http.MethodGet, "/resources?admin=true", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid token", decode[handler.ErrorResponse](t, rr).Message)

	rr = e.do(t, http.MethodGet, "/resources?admin=true", "good-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[handler.ResourcesResponse](t, rr).Resources, 1)
}

func TestList_AdminEmailAllowlist(t *testing.T) {
	e := newEnv(t, memory.New(), "admin@example.com")

	rr := e.do(t, http.MethodGet, "/resources?admin=true", "other-token", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(t, http.MethodGet, "/resources?admin=true", "good-token", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIdentityServiceDown_IsGeneric500(t *testing.T) {
	e := newEnv(t, memory.New())

	rr := e.do(t, http.MethodPost, "/resources", "down-token", validBody)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "refused")
	assert.Equal(t, "internal_error", decode[handler.ErrorResponse](t, rr).Error)
}

func TestStoreUnavailable_IsGeneric500(t *testing.T) {
	e := newEnv(t, repository.Unconfigured{})

	rr := e.do(t, http.MethodGet, "/resources", "", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "internal_error", body.Error)
	assert.Equal(t, "Failed to fetch resources", body.Message)
}

// =========================================================================
// SEARCH / GET
// =========================================================================

func TestSearch(t *testing.T) {
	e := newEnv(t, memory.New())
	seed(t, e.store, "Foo", func(r *model.Resource) { r.Tags = []string{"react"} })
	seed(t, e.store, "Hidden", func(r *model.Resource) { r.Tags = []string{"react"}; r.IsPublished = false })

	rr := e.do(t, http.MethodGet, "/resources/search?q=REAC", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[handler.SearchResponse](t, rr)
	require.Len(t, body.Resources, 1)
	assert.Equal(t, "Foo", body.Resources[0].Title)
	assert.Equal(t, "REAC", body.Query)
	assert.Equal(t, "all", body.Category)

	rr = e.do(t, http.MethodGet, "/resources/search?q=xyz&category=web", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode[handler.SearchResponse](t, rr)
	assert.Empty(t, body.Resources)
	assert.Equal(t, "web", body.Category)
}

func TestSearch_RequiresQuery(t *testing.T) {
	e := newEnv(t, memory.New())

	rr := e.do(t, http.MethodGet, "/resources/search", "", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", body.Error)
	assert.Equal(t, "Search query is required", body.Message)
}

func TestGet_DraftVisibility(t *testing.T) {
	e := newEnv(t, memory.New())
	draft := seed(t, e.store, "draft", func(r *model.Resource) { r.IsPublished = false })

	rr := e.do(t, http.MethodGet, "/resources/"+draft.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(t, http.MethodGet, "/resources/"+draft.ID, "good-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, draft.ID, decode[model.Resource](t, rr).ID)

	rr = e.do(t, http.MethodGet, "/resources/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)
}

// =========================================================================
// MUTATIONS
// =========================================================================

func TestCreate_ThenFetch(t *testing.T) {
	e := newEnv(t, memory.New())

	rr := e.do(t, http.MethodPost, "/resources", "good-token", validBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[handler.CreatedResponse](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Resource created successfully", created.Message)

	got, err := e.store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "React Patterns", got.Title)
	assert.Equal(t, []string{}, got.Tags)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.IsPublished)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		body    string
		status  int
		message string
	}{
		{"no token", "", validBody, http.StatusUnauthorized, "No valid authorization header"},
		{"bad token", "forged", validBody, http.StatusUnauthorized, "Invalid token"},
		{"invalid json", "good-token", `{"title":`, http.StatusBadRequest, "Invalid JSON body"},
		{"missing title", "good-token", strings.Replace(validBody, `"React Patterns"`, `""`, 1),
			http.StatusBadRequest, "Missing required field: title"},
		{"audio", "good-token", strings.Replace(validBody, `"image"`, `"audio"`, 1),
			http.StatusBadRequest, `mediaType must be either "image" or "video"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, memory.New())

			rr := e.do(t, http.MethodPost, "/resources", tt.token, tt.body)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.message, decode[handler.ErrorResponse](t, rr).Message)
			all, _ := e.store.ListAll(context.Background())
			assert.Empty(t, all, "nothing may be stored")
		})
	}
}

func TestUpdate_Partial(t *testing.T) {
	e := newEnv(t, memory.New())
	orig := seed(t, e.store, "orig", func(r *model.Resource) { r.Tags = []string{"go"} })

	rr := e.do(t, http.MethodPut, "/resources/"+orig.ID, "good-token", `{"featured": true, "createdAt": "2001-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Resource updated successfully", decode[handler.MessageResponse](t, rr).Message)

	got, _ := e.store.GetByID(context.Background(), orig.ID)
	assert.True(t, got.Featured)
	assert.True(t, got.IsPublished)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
}

func TestUpdate_Errors(t *testing.T) {
	e := newEnv(t, memory.New())
	orig := seed(t, e.store, "orig", nil)

	rr := e.do(t, http.MethodPut, "/resources/"+orig.ID, "good-token", `{"category": "gaming"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPut, "/resources/missing", "good-token", `{"featured": true}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(t, http.MethodPut, "/resources/"+orig.ID, "", `{"featured": true}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDelete_TwiceSucceeds(t *testing.T) {
	e := newEnv(t, memory.New())
	r := seed(t, e.store, "gone", nil)

	for i := 0; i < 2; i++ {
		rr := e.do(t, http.MethodDelete, "/resources/"+r.ID, "good-token", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Resource deleted successfully", decode[handler.MessageResponse](t, rr).Message)
	}

	rr := e.do(t, http.MethodGet, "/resources/"+r.ID, "good-token", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreate_AngleBracketsRoundTrip(t *testing.T) {
	e := newEnv(t, memory.New())
	body := strings.Replace(validBody, `"React Patterns"`, `"Understanding the <canvas> element"`, 1)
	body = strings.Replace(body, `"Component patterns"`, `"Generic Vec<T> & Option<T>"`, 1)
	body = strings.Replace(body, `"category": "web"`, `"category": "web", "tags": ["<template>", "react"], "isPublished": true`, 1)

	rr := e.do(t, http.MethodPost, "/resources", "good-token", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decode[handler.CreatedResponse](t, rr).ID

	rr = e.do(t, http.MethodGet, "/resources/"+id, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[model.Resource](t, rr)
	assert.Equal(t, "Understanding the <canvas> element", got.Title)
	assert.Equal(t, "Generic Vec<T> & Option<T>", got.Description)
	assert.Equal(t, []string{"<template>", "react"}, got.Tags)
}

func TestMutations_WithoutTokenLeaveStoreUntouched(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   func(id string) string
		body   string
	}{
		{"update", http.MethodPut, func(id string) string { return "/resources/" + id },
			`{"title": "hijacked", "isPublished": false}`},
		{"delete", http.MethodDelete, func(id string) string { return "/resources/" + id }, ""},
		{"admin listing", http.MethodGet, func(string) string { return "/resources?admin=true" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, memory.New())
			r := seed(t, e.store, "kept", func(r *model.Resource) { r.Tags = []string{"go"} })
			seed(t, e.store, "draft", func(r *model.Resource) { r.IsPublished = false })
			before, err := e.store.ListAll(context.Background())
			require.NoError(t, err)

			rr := e.do(t, tt.method, tt.path(r.ID), "", tt.body)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "No valid authorization header", decode[handler.ErrorResponse](t, rr).Message)
			assert.NotContains(t, rr.Body.String(), "draft")
			after, err := e.store.ListAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

// =========================================================================
// MEDIA
// =========================================================================

func TestMediaDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		e := newEnv(t, memory.New())

		rr := e.do(t, http.MethodPost, "/media/delete", "good-token", `{"publicId":"folder/abc","resourceType":"video"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Media deleted successfully", decode[handler.MessageResponse](t, rr).Message)
		assert.Equal(t, "folder/abc", e.media.lastID)
		assert.Equal(t, model.MediaVideo, e.media.lastKind)
	})

	t.Run("missing id", func(t *testing.T) {
		e := newEnv(t, memory.New())

		rr := e.do(t, http.MethodPost, "/media/delete", "good-token", `{"publicId":"  "}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Public ID is required", decode[handler.ErrorResponse](t, rr).Message)
		assert.Empty(t, e.media.lastID, "CDN must not be called")
	})

	t.Run("CDN refuses", func(t *testing.T) {
		e := newEnv(t, memory.New())
		e.media.deleted = false

		rr := e.do(t, http.MethodPost, "/media/delete", "good-token", `{"publicId":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "media_error", decode[handler.ErrorResponse](t, rr).Error)
		assert.Equal(t, model.MediaImage, e.media.lastKind, "image is the default kind")
	})

	t.Run("CDN unreachable", func(t *testing.T) {
		e := newEnv(t, memory.New())
		e.media.deleted = false
		e.media.err = apperror.Unavailable("media service", errors.New("secret=shh"))

		rr := e.do(t, http.MethodPost, "/media/delete", "good-token", `{"publicId":"abc"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "shh")
	})
}

func TestUploadParams(t *testing.T) {
	e := newEnv(t, memory.New())

	rr := e.do(t, http.MethodGet, "/media/upload-params?filename=cat.png&contentType=image/png", "good-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	params := decode[media.UploadParams](t, rr)
	assert.Equal(t, model.MediaImage, params.MediaType)

	rr = e.do(t, http.MethodGet, "/media/upload-params?filename=a.pdf&contentType=application/pdf", "good-token", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodGet, "/media/upload-params?contentType=image/png", "good-token", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =========================================================================
// HEALTH / PAGES
// =========================================================================

func TestHealth(t *testing.T) {
	ok := handler.NewHealthHandler(memory.New(), "memory", logger.Discard())
	rr := httptest.NewRecorder()
	ok.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[handler.HealthResponse](t, rr).Store)

	down := handler.NewHealthHandler(repository.Unconfigured{}, "none", logger.Discard())
	rr = httptest.NewRecorder()
	down.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decode[handler.HealthResponse](t, rr)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Store)
}

func TestPages_Render(t *testing.T) {
	files := fstest.MapFS{
		"templates/base.html":      {Data: []byte(`{{define "base"}}<title>{{.Title}}</title>{{template "content" .}}{{end}}`)},
		"templates/index.html":     {Data: []byte(`{{define "content"}}home {{.Site.Name}}{{end}}`)},
		"templates/resources.html": {Data: []byte(`{{define "content"}}{{range .Categories}}[{{.ID}}]{{end}}{{end}}`)},
		"templates/admin.html":     {Data: []byte(`{{define "content"}}admin {{.Active}}{{end}}`)},
	}
	h, err := handler.NewPageHandler(files, handler.SiteInfo{Name: "Showcase"}, logger.Discard())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.Page(handler.PageHome, "Home <1>")(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "home Showcase")
	assert.Contains(t, rr.Body.String(), "Home &lt;1&gt;")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	h.Page(handler.PageResources, "Resources")(rr, httptest.NewRequest(http.MethodGet, "/resources", nil))
	assert.Contains(t, rr.Body.String(), "[web]")
	assert.NotContains(t, rr.Body.String(), "[all]")
}

func TestPages_MissingTemplate(t *testing.T) {
	_, err := handler.NewPageHandler(fstest.MapFS{}, handler.SiteInfo{}, logger.Discard())
	assert.Error(t, err)
}

// =========================================================================
// AUTH
// =========================================================================

func newAuthHandler(t *testing.T, github *auth.GitHubProvider) (*handler.AuthHandler, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService("0123456789abcdef-test-secret", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordService(4)
	hash, err := passwords.Hash("correct horse")
	require.NoError(t, err)

	svc := service.NewAuthService(tokens, passwords, service.AdminCredentials{
		Email:        "admin@example.com",
		PasswordHash: hash,
	}, logger.Discard())
	return handler.NewAuthHandler(svc, github, false, logger.Discard()), tokens
}

func TestToken(t *testing.T) {
	h, tokens := newAuthHandler(t, nil)

	rr := httptest.NewRecorder()
	h.HandleToken(rr, httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"email":"Admin@Example.com","password":"correct horse"}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode[handler.TokenResponse](t, rr)
	assert.NotEmpty(t, body.ExpiresAt)

	id, err := tokens.Verify(context.Background(), body.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", id.Email)

	rr = httptest.NewRecorder()
	h.HandleToken(rr, httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", decode[handler.ErrorResponse](t, rr).Message)
}

func TestGitHub_NotConfigured(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGitHub_LoginSetsState(t *testing.T) {
	gh := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback", []string{"octocat"})
	h, _ := newAuthHandler(t, gh)

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Contains(t, rr.Header().Get("Location"), "state="+cookies[0].Value)
}

func TestGitHub_CallbackRejectsBadState(t *testing.T) {
	gh := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback", nil)
	h, _ := newAuthHandler(t, gh)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
	rr := httptest.NewRecorder()
	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGitHub_CallbackDenied(t *testing.T) {
	gh := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback", nil)
	h, _ := newAuthHandler(t, gh)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rr := httptest.NewRecorder()
	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin?auth=denied", rr.Header().Get("Location"))
}

func TestMe(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	id := &model.Identity{UID: "u1", Email: "admin@example.com"}
	rr := httptest.NewRecorder()
	h.HandleMe(rr, req.WithContext(auth.WithIdentity(req.Context(), id)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", decode[model.Identity](t, rr).UID)

	rr = httptest.NewRecorder()
	h.HandleMe(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCategories_ListsTaxonomy(t *testing.T) {
	e := newEnv(t, memory.New())

	rr := e.do(t, http.MethodGet, "/categories", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Categories []model.CategoryInfo `json:"categories"`
	}](t, rr)
	assert.Equal(t, model.Categories(), body.Categories)
}
