package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/resource-showcase/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// RejectFunc writes the response for a rejected request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, rej *Rejection)

// RequireAuth rejects requests without a valid bearer token and stores the
// verified identity in the request context otherwise.
//
// Missing and invalid tokens get 401; an unavailable identity service gets
// 500 with a generic message. onReject may be nil to use WriteRejection.
func RequireAuth(v Verifier, onReject RejectFunc) func(http.Handler) http.Handler {
	if onReject == nil {
		onReject = WriteRejection
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authenticate(r, v)
			if err != nil {
				onReject(w, r, asRejection(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := Authenticate(r, v); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireEmail allows only identities whose email is in allowed
// (case-insensitive). An empty list allows every authenticated caller.
// It must run after RequireAuth.
func RequireEmail(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, e := range allowed {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		if len(set) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if ok {
				if _, allowed := set[strings.ToLower(id.Email)]; allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, "forbidden", "Not allowed to manage resources")
		})
	}
}

// Authenticate verifies the bearer token of r.
func Authenticate(r *http.Request, v Verifier) (*model.Identity, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, missing()
	}
	return v.Verify(r.Context(), token)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*model.Identity)
	return id, ok && id != nil
}

// WriteRejection writes rej as the standard JSON error body.
func WriteRejection(w http.ResponseWriter, _ *http.Request, rej *Rejection) {
	switch rej.Reason {
	case ServiceUnavailable:
		writeJSON(w, http.StatusInternalServerError, "internal_error", rej.Message())
	default:
		writeJSON(w, http.StatusUnauthorized, "unauthorized", rej.Message())
	}
}

func asRejection(err error) *Rejection {
	if rej, ok := err.(*Rejection); ok {
		return rej
	}
	return invalid(err)
}

func writeJSON(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": errType, "message": message})
}
