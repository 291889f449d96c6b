package api

import (
	"encoding/json"
	"net/http"

	"github.com/bughive/bughive-server/internal/http/response"
)

// maxBodySize bounds request bodies; every BugHive payload is small.
const maxBodySize = 1 << 20

// decodeJSON reads the request body into v. On failure it writes the
// "invalid request body" response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.logger.Debug("Rejected request body", "path", r.URL.Path, "error", err)
		response.InvalidBody(w, s.logger)
		return false
	}
	return true
}
