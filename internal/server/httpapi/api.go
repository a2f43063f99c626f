package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/blobgate/internal/logging"
)

// NewAPI wires the gateway routes behind the standard middleware stack.
func NewAPI(h *Handlers, m *Metrics, logger logging.Logger) http.Handler {
	logger = logger.With("module", "http")

	r := NewRouter()
	r.Use(RequestID(), AccessLog(logger), Recover(logger), Instrument(m))

	r.HandleFunc(http.MethodPost, "/register", h.Register)
	r.HandleFunc(http.MethodPost, "/login", h.Login)
	r.HandleFunc(http.MethodPost, "/upload", h.Upload)
	r.HandleFunc(http.MethodGet, "/files", h.Files)
	r.HandleFunc(http.MethodGet, "/convert", h.Convert)

	r.HandleFunc(http.MethodGet, "/healthz", h.Healthz)
	r.Handle(http.MethodGet, "/metrics", m.Handler())

	return r
}
