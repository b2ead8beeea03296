package api

import (
	"net/http"
	"strconv"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
)

// record adds an API change to the audit trail. Failures are logged; the
// change itself has already been applied.
func (s *Server) record(r *http.Request, action string, e *registry.Entry, path string, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		ObjectID:   e.ID,
		ObjectName: e.Name,
		Path:       path,
		Source:     audit.SourceAPI,
		Details:    details,
	}
	if u := userOf(r); u != nil {
		entry.User = u.Username
	}
	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("recording audit entry failed", "action", action, "object", e.Name, "error", err)
	}
}

// handleListAudit pages through the audit trail. Query parameters: action,
// object (ID or name), user, limit and offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, codeUnavailable, "audit trail is not enabled")
		return
	}
	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action"), User: q.Get("user")}
	if obj := q.Get("object"); obj != "" {
		filter.ObjectID = obj
		if e, err := s.registry.Lookup(obj); err == nil {
			filter.ObjectID = e.ID
		}
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "invalid "+key+": "+raw)
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries failed", "error", err)
		writeInternalError(w, "listing audit entries failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
