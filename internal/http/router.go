package httpx

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/splax/jserrlog/internal/domain"
	"github.com/splax/jserrlog/internal/service/admin"
	"github.com/splax/jserrlog/internal/service/ingest"
	"github.com/splax/jserrlog/internal/token"
	"github.com/splax/jserrlog/internal/ws"
	"github.com/splax/jserrlog/pkg/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	ingest       ingest.Service
	admin        admin.Service
	submit       *token.SubmitIssuer
	nonces       *token.ClearNonces
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	templates    *template.Template
	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration
	dbHealth     func(context.Context) error
}

const (
	reportAction       = "log_error"
	maxReportBody      = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, ingestSvc ingest.Service, adminSvc admin.Service, submit *token.SubmitIssuer, nonces *token.ClearNonces, hub *ws.Hub, cfg config.ServiceConfig, dbHealth func(context.Context) error) (*Router, error) {
	tmplFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	templates, err := template.ParseFS(tmplFS, "*.html")
	if err != nil {
		return nil, err
	}
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		ingest:    ingestSvc,
		admin:     adminSvc,
		submit:    submit,
		nonces:    nonces,
		hub:       hub,
		templates: templates,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool { return true },
		},
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		sessionTTL:   cfg.SessionTTL,
		dbHealth:     dbHealth,
	}
	r.register()
	return r, nil
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/report", r.audit(r.handleReport))
	r.mux.HandleFunc("/agent.js", r.audit(r.handleAgent))
	r.mux.HandleFunc("/admin/login", r.audit(r.handleLogin))
	r.mux.HandleFunc("/admin/logout", r.audit(r.handleLogout))
	r.mux.HandleFunc("/admin/logs", r.audit(r.requireAdminPage(r.handleLogsPage)))
	r.mux.HandleFunc("/admin/logs/clear", r.audit(r.requireAdminPage(r.handleClear)))
	r.mux.HandleFunc("/admin/api/logs", r.audit(r.requireAdmin(r.handleAPILogs)))
	r.mux.HandleFunc("/admin/ws/errors", r.audit(r.requireAdmin(r.handleErrorsWS)))
}

// handleReport accepts one form-encoded error report from the capture
// agent. Malformed field values degrade to defaults instead of failing; a
// missing or invalid possession token rejects the request before anything
// is stored.
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxReportBody)
	if err := req.ParseForm(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false)
		return
	}
	if req.PostFormValue("action") != reportAction {
		writeEnvelope(w, http.StatusBadRequest, false)
		return
	}
	if err := r.submit.Verify(req.PostFormValue("security")); err != nil {
		r.logger.Warn("submission token rejected", "ip", clientIP(req))
		writeEnvelope(w, http.StatusForbidden, false)
		return
	}
	report := ingest.Report{
		Message:   req.PostFormValue("message"),
		Source:    req.PostFormValue("source"),
		Lineno:    req.PostFormValue("lineno"),
		Colno:     req.PostFormValue("colno"),
		Stack:     req.PostFormValue("stack"),
		UserAgent: req.PostFormValue("user_agent"),
	}
	if _, err := r.ingest.Append(req.Context(), report, clientIP(req)); err != nil {
		r.logger.Error("failed to store error report", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, false)
		return
	}
	writeEnvelope(w, http.StatusOK, true)
}

// handleAPILogs returns every stored record as JSON, newest first.
func (r *Router) handleAPILogs(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	records, err := r.admin.List(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []domain.ErrorRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (r *Router) handleErrorsWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for errors websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(client)
	go func() {
		defer func() {
			r.hub.Unregister(client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "admin"
			fields = append(fields, "username", info.Username)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
