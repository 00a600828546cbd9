package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler serves the local sign-in endpoints.
//
//   - HandleToken          exchanges the admin email and password for a token
//   - HandleGitHubLogin    redirects the browser to GitHub
//   - HandleGitHubCallback verifies the state, exchanges the code, issues a token
//   - HandleMe             returns the caller's identity
//
// Tokens go back to the browser in the response body or the URL fragment
// and are sent as bearer headers afterwards. The API sets no session cookie.
type AuthHandler struct {
	svc          *service.AuthService
	github       *auth.GitHubProvider // nil when GitHub sign-in is off
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github *auth.GitHubProvider, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, github: github, secureCookie: secureCookie, logger: logger}
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// HandleToken serves POST /auth/token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err, "Failed to sign in")
		return
	}

	sess, err := h.svc.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to sign in")
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HandleGitHubLogin serves GET /auth/github/login.
//
// A random state goes into a short-lived HttpOnly cookie and the
// authorization URL; the callback accepts only a matching pair.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub sign-in is not configured"})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback serves GET /auth/github/callback?code=...&state=...
// and redirects to /admin with the token in the URL fragment, which the
// browser never sends back to a server.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub sign-in is not configured"})
		return
	}

	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		h.logger.Warn("GitHub callback with invalid state")
		writeError(w, r, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"), "Failed to sign in")
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if e := q.Get("error"); e != "" {
		h.logger.Info("GitHub authorization denied", slog.String("error", e))
		http.Redirect(w, r, "/admin?auth=denied", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("code", "missing OAuth code"), "Failed to sign in")
		return
	}

	user, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, r, h.logger, err, "GitHub sign-in failed")
		return
	}

	sess, err := h.svc.GitHubLogin(r.Context(), user, h.github.Allowed(user.Login))
	if err != nil {
		writeError(w, r, h.logger, err, "GitHub sign-in failed")
		return
	}
	http.Redirect(w, r, "/admin#token="+url.QueryEscape(sess.Token), http.StatusSeeOther)
}

// HandleMe serves GET /auth/me behind RequireAuth.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.WriteRejection(w, r, &auth.Rejection{Reason: auth.MissingCredential})
		return
	}
	writeJSON(w, http.StatusOK, id)
}
