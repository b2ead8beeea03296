package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/schemafile"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// History query defaults.
const (
	defaultHistoryWindow = time.Hour
	defaultHistoryLimit  = 1000
)

// propertyView is a visible property with its current value.
type propertyView struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	ReadOnly    bool            `json:"read_only,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Description string          `json:"description,omitempty"`
	Value       json.RawMessage `json:"value"`
}

// valueView is the response to value reads and writes.
type valueView struct {
	Path    string          `json:"path"`
	Value   json.RawMessage `json:"value"`
	Changed *bool           `json:"changed,omitempty"`
	Pending bool            `json:"pending,omitempty"`
}

// pathParam returns the unescaped {path} parameter, so that list
// indexes can be sent as %5B0%5D.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	p, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil || p == "" {
		writeBadRequest(w, "invalid property path")
		return "", false
	}
	return p, true
}

// encodeValue serializes v for the user; values that cannot be
// serialized, such as functions, become null.
func encodeValue(v any, user *permission.User) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	data, err := serialization.Marshal(v, user)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	user := userOf(r)
	props := e.Object.GetVisibleProperties()
	views := make([]propertyView, 0, len(props))
	for _, p := range props {
		v, err := e.Object.GetPropertyValue(p.Name())
		if err != nil {
			s.logger.Debug("property value unavailable", "object", e.Name, "property", p.Name(), "error", err)
		}
		views = append(views, propertyView{
			Name:        p.Name(),
			Type:        p.ValueType().String(),
			ReadOnly:    p.ReadOnly(),
			Unit:        p.Unit(),
			Description: p.Description(),
			Value:       encodeValue(v, user),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": views, "count": len(views)})
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	v, err := e.Object.GetPropertyValue(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueView{Path: path, Value: encodeValue(v, userOf(r))})
}

// handleSetValue writes the JSON body to a property. Writing the current
// value reports changed=false; inside an update the write is pending until
// end-update.
func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}
	v, err := e.Object.DecodeValue(path, body)
	if err != nil {
		writeError(w, err)
		return
	}

	changed := true
	if err := e.Object.SetPropertyValue(path, v); err != nil {
		if !errors.Is(err, status.ErrIgnored) {
			writeError(w, err)
			return
		}
		changed = false
	}
	if changed {
		s.record(r, audit.ActionSet, e, path, map[string]any{"value": string(body)})
	}
	if e.Object.IsUpdating() {
		writeJSON(w, http.StatusAccepted, valueView{Path: path, Value: body, Pending: true})
		return
	}

	current, err := e.Object.GetPropertyValue(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueView{Path: path, Value: encodeValue(current, userOf(r)), Changed: &changed})
}

func (s *Server) handleClearValue(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	switch err := e.Object.ClearPropertyValue(path); {
	case err == nil:
		s.record(r, audit.ActionClear, e, path, nil)
	case !errors.Is(err, status.ErrIgnored):
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	v, err := e.Object.GetPropertySelectionValue(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueView{Path: path, Value: encodeValue(v, userOf(r))})
}

// handleGetHistory returns recorded samples of a numeric property.
// Query parameters: since (RFC 3339, default one hour ago) and limit.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, codeUnavailable, "history is not enabled")
		return
	}
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	if _, err := e.Object.GetProperty(path); err != nil {
		writeError(w, err)
		return
	}

	since := time.Now().Add(-defaultHistoryWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid since %q: expected RFC 3339", raw))
			return
		}
		since = t
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	samples, err := s.history.History(r.Context(), coreevent.HistoryMeasurement, e.ID+"."+path, since, limit)
	if err != nil {
		s.logger.Error("history query failed", "object", e.Name, "path", path, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, codeUnavailable, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "samples": samples, "count": len(samples)})
}

func (s *Server) handleListDescriptors(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	raw, err := descriptorsJSON(e.Object.GetAllProperties())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": raw, "count": len(raw)})
}

// handleAddDescriptor adds a property described in the schema file format.
// The body may be JSON or YAML.
func (s *Server) handleAddDescriptor(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}
	var def schemafile.PropertyDef
	if err := yaml.Unmarshal(body, &def); err != nil {
		writeBadRequest(w, "invalid property definition: "+err.Error())
		return
	}
	p, err := schemafile.BuildProperty(s.registry.TypeManager(), def)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := e.Object.AddProperty(p); err != nil {
		writeError(w, err)
		return
	}
	s.persist(r, e)
	s.record(r, audit.ActionAddProperty, e, p.Name(), map[string]any{"type": p.ValueType().String()})

	data, err := serialization.Marshal(p, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, json.RawMessage(data))
}

func (s *Server) handleRemoveDescriptor(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	if err := e.Object.RemoveProperty(name); err != nil {
		writeError(w, err)
		return
	}
	s.persist(r, e)
	s.record(r, audit.ActionRemoveProperty, e, name, nil)
	w.WriteHeader(http.StatusNoContent)
}
