package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/propertyobject"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// objectView summarizes a registered root object.
type objectView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Class    string          `json:"class,omitempty"`
	Frozen   bool            `json:"frozen"`
	Updating bool            `json:"updating"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func viewOf(e *registry.Entry) objectView {
	return objectView{
		ID:       e.ID,
		Name:     e.Name,
		Class:    e.Object.ClassName(),
		Frozen:   e.Object.IsFrozen(),
		Updating: e.Object.IsUpdating(),
	}
}

type createObjectRequest struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

type cloneObjectRequest struct {
	Name string `json:"name"`
}

type orderRequest struct {
	Names []string `json:"names"`
}

// entry resolves the {id} URL parameter.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*registry.Entry, bool) {
	e, err := s.registry.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return e, true
}

// authorize checks that the request's user holds p on the root object.
func authorize(w http.ResponseWriter, r *http.Request, e *registry.Entry, p permission.Permission) bool {
	if e.Object.Permissions().IsAuthorized(userOf(r), p) {
		return true
	}
	writeError(w, fmt.Errorf("%w: %s on %s", status.ErrAccessDenied, p, e.Name))
	return false
}

// persist saves e after a change the relay may not report.
func (s *Server) persist(r *http.Request, e *registry.Entry) {
	if err := s.registry.Save(r.Context(), e.ID); err != nil {
		s.logger.Warn("persisting object failed", "id", e.ID, "name", e.Name, "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleListObjects(w http.ResponseWriter, _ *http.Request) {
	entries := s.registry.List()
	views := make([]objectView, 0, len(entries))
	for _, e := range entries {
		views = append(views, viewOf(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": views, "count": len(views)})
}

func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := s.registry.Create(r.Context(), req.Name, req.Class)
	if err != nil {
		writeError(w, err)
		return
	}
	s.record(r, audit.ActionCreate, e, "", map[string]any{"class": req.Class})
	writeJSON(w, http.StatusCreated, viewOf(e))
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	data, err := propertyobject.Marshal(e.Object, userOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	view := viewOf(e)
	view.Data = data
	writeJSON(w, http.StatusOK, view)
}

// handleUpdateObject applies a serialized snapshot to the object.
func (s *Server) handleUpdateObject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}
	so, err := serialization.ParseObject(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	decoder := propertyobject.NewDecoder(s.registry.TypeManager()).WithUser(userOf(r))
	if err := e.Object.Update(decoder, so); err != nil {
		writeError(w, err)
		return
	}
	s.persist(r, e)
	s.record(r, audit.ActionUpdate, e, "", nil)
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	if err := s.registry.Delete(r.Context(), e.ID); err != nil {
		writeError(w, err)
		return
	}
	s.record(r, audit.ActionDelete, e, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloneObject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Read) {
		return
	}
	var req cloneObjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.registry.Clone(r.Context(), e.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	s.record(r, audit.ActionClone, c, "", map[string]any{"source": e.ID})
	writeJSON(w, http.StatusCreated, viewOf(c))
}

func (s *Server) handleFreezeObject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	switch err := s.registry.Freeze(r.Context(), e.ID); {
	case err == nil:
		s.record(r, audit.ActionFreeze, e, "", nil)
	case !errors.Is(err, status.ErrIgnored):
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleBeginUpdate(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	if e.Object.IsFrozen() {
		writeError(w, fmt.Errorf("%w: %s", status.ErrFrozen, e.Name))
		return
	}
	e.Object.BeginUpdate()
	writeJSON(w, http.StatusOK, viewOf(e))
}

// handleEndUpdate replays the buffered writes. Failed writes are reported
// but do not undo the ones that succeeded.
func (s *Server) handleEndUpdate(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	err := e.Object.EndUpdate()
	if errors.Is(err, status.ErrInvalidState) {
		writeError(w, err)
		return
	}
	s.persist(r, e)
	s.record(r, audit.ActionEndUpdate, e, "", nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleSetOrder(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok || !authorize(w, r, e, permission.Write) {
		return
	}
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := e.Object.SetPropertyOrder(req.Names); err != nil {
		writeError(w, err)
		return
	}
	s.persist(r, e)
	s.record(r, audit.ActionOrder, e, "", map[string]any{"names": req.Names})
	w.WriteHeader(http.StatusNoContent)
}
