package server

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/spotsess/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// relay copies an upstream status, content type and body to the client unchanged.
func relay(w http.ResponseWriter, resp *services.APIResponse) {
	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" && resp.IsJSON {
		contentType = "application/json"
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}
