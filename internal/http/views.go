package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/splax/jserrlog/internal/service/admin"
)

// handleLogin renders the sign-in form and processes credential posts. Form
// posts get a session cookie and a redirect; JSON posts get the token back
// in the body for header-based callers.
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		if _, ok := r.ensureAdmin(req); ok {
			http.Redirect(w, req, "/admin/logs", http.StatusSeeOther)
			return
		}
		r.render(w, "login", map[string]any{"Title": "Sign in", "Flash": "", "Username": ""})
	case http.MethodPost:
		username, password, isJSON, err := loginCredentials(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid login payload")
			return
		}
		tok, err := r.admin.Login(req.Context(), username, password)
		if err != nil {
			if errors.Is(err, admin.ErrLoginDisabled) {
				r.logger.Error("admin login attempted with no password hash configured")
				writeError(w, http.StatusInternalServerError, "admin login not configured")
				return
			}
			if isJSON {
				writeError(w, http.StatusUnauthorized, "login failed")
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			r.render(w, "login", map[string]any{
				"Title":    "Sign in",
				"Flash":    "login failed",
				"Username": username,
			})
			return
		}
		http.SetCookie(w, r.sessionCookie(tok))
		if isJSON {
			writeJSON(w, http.StatusOK, map[string]string{"token": tok})
			return
		}
		http.Redirect(w, req, "/admin/logs", http.StatusSeeOther)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	http.SetCookie(w, r.expiredCookie())
	http.Redirect(w, req, "/admin/login", http.StatusSeeOther)
}

// handleLogsPage renders the full error table, newest first, with the
// clear-all form. Each render embeds a freshly minted single-use nonce, and
// a one-time banner shows when the caller just cleared the log.
func (r *Router) handleLogsPage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	records, err := r.admin.List(req.Context())
	if err != nil {
		r.logger.Error("failed to list error records", "error", err)
		http.Error(w, "failed to load error log", http.StatusInternalServerError)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	r.render(w, "logs", map[string]any{
		"Title":      "JavaScript Error Logs",
		"Records":    records,
		"Cleared":    req.URL.Query().Get("cleared") == "1",
		"ClearNonce": r.nonces.Mint(),
		"Username":   info.Username,
	})
}

// handleClear truncates the error log. The posted nonce must match one
// minted for a prior page render and not yet consumed; any failure is
// terminal with no mutation.
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if err := req.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	if err := r.nonces.Consume(req.PostFormValue("clear_nonce")); err != nil {
		r.logger.Warn("clear nonce rejected", "path", req.URL.Path)
		writeError(w, http.StatusForbidden, "clear nonce verification failed")
		return
	}
	if err := r.admin.Clear(req.Context()); err != nil {
		r.logger.Error("failed to clear error log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear error log")
		return
	}
	http.Redirect(w, req, "/admin/logs?cleared=1", http.StatusSeeOther)
}

func (r *Router) render(w http.ResponseWriter, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("template render failed", "template", name, "error", err)
	}
}

func (r *Router) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     r.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(r.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (r *Router) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func loginCredentials(req *http.Request) (username, password string, isJSON bool, err error) {
	contentType := req.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			return "", "", true, err
		}
		return payload.Username, payload.Password, true, nil
	}
	if err := req.ParseForm(); err != nil {
		return "", "", false, err
	}
	username = req.PostFormValue("username")
	password = req.PostFormValue("password")
	if username == "" && password == "" {
		return "", "", false, errors.New("missing credentials")
	}
	return username, password, false, nil
}
