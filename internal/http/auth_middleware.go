package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type authContextKey string

type authInfo struct {
	Username string
}

const contextKeyAuth authContextKey = "jserrlog-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAdmin gates JSON/websocket endpoints behind a valid admin session.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, ok := r.ensureAdmin(req)
		if !ok {
			r.logger.Warn("admin session missing or invalid", "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "administrative capability required")
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireAdminPage gates HTML views; unauthenticated browsers are sent to
// the login form instead of receiving a JSON error.
func (r *Router) requireAdminPage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, ok := r.ensureAdmin(req)
		if !ok {
			http.Redirect(w, req, "/admin/login", http.StatusSeeOther)
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAdmin validates the session token from the Authorization header or
// the session cookie and enriches the context.
func (r *Router) ensureAdmin(req *http.Request) (context.Context, bool) {
	token, err := r.sessionToken(req)
	if err != nil {
		return req.Context(), false
	}
	claims, err := r.admin.Authorize(token)
	if err != nil {
		return req.Context(), false
	}
	ctx := context.WithValue(req.Context(), contextKeyAuth, authInfo{Username: claims.Username})
	return ctx, true
}

// sessionToken extracts the admin session token, preferring the bearer
// header over the cookie.
func (r *Router) sessionToken(req *http.Request) (string, error) {
	if header := req.Header.Get("Authorization"); strings.TrimSpace(header) != "" {
		return bearerToken(header)
	}
	cookie, err := req.Cookie(r.cookieName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cookie.Value) == "" {
		return "", errors.New("empty session cookie")
	}
	return cookie.Value, nil
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
