package httpx

import (
	_ "embed"
	"net/http"
	"sync"
	"text/template"
)

//go:embed web/agent.js
var agentSource string

var (
	agentOnce sync.Once
	agentTmpl *template.Template
	agentErr  error
)

// handleAgent serves the capture agent script with the report endpoint and
// a freshly minted possession token injected. The token proves the script
// was handed out by this service, so the response must not be cached.
func (r *Router) handleAgent(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	agentOnce.Do(func() {
		agentTmpl, agentErr = template.New("agent").Parse(agentSource)
	})
	if agentErr != nil {
		r.logger.Error("agent template parse failed", "error", agentErr)
		http.Error(w, "agent unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := map[string]string{
		"ReportURL": "/report",
		"Token":     r.submit.Mint(),
	}
	if err := agentTmpl.Execute(w, data); err != nil {
		r.logger.Error("agent template render failed", "error", err)
	}
}
