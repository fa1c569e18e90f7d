package server

import "net/http"

// HealthHandler answers liveness probes on every method.
type HealthHandler struct{}

func (HealthHandler) Routes() []string { return []string{"/health"} }

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
