package http

import (
	"bytes"
	"net/http"

	"doorwatch/internal/page"
)

// PageHandler serves the door status page markup.
type PageHandler struct {
	scripts []string
}

// NewPageHandler constructs a page handler. scripts are linked from the
// page; with none the built-in reflector is linked.
func NewPageHandler(scripts ...string) *PageHandler {
	if len(scripts) == 0 {
		scripts = []string{DefaultScript}
	}
	return &PageHandler{scripts: scripts}
}

// ServeHTTP handles GET /.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var buf bytes.Buffer
	if err := page.NewDoorPage().RenderHTML(&buf, h.scripts...); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
