package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/homebus/internal/audit"
)

// handleListCommands returns the command audit trail, most recent first.
//
// Query parameters:
//   - device: only commands sent to this device
//   - origin: request or profile
//   - pending: "true" for commands still awaiting acknowledgement
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil {
		writeUnavailable(w, "command audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Device: q.Get("device"),
		Origin: q.Get("origin"),
	}
	if v := q.Get("pending"); v != "" {
		pending, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "pending must be a boolean")
			return
		}
		filter.Pending = pending
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.trail.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
