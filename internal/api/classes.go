package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
)

// classView describes a class with its inherited properties resolved.
type classView struct {
	Name       string            `json:"name"`
	Parent     string            `json:"parent,omitempty"`
	Properties []json.RawMessage `json:"properties"`
}

func descriptorsJSON(props []*property.Property) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(props))
	for _, p := range props {
		data, err := serialization.Marshal(p, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func (s *Server) classView(c *schema.Class) (classView, error) {
	props, err := s.registry.TypeManager().ClassProperties(c.Name())
	if err != nil {
		return classView{}, err
	}
	raw, err := descriptorsJSON(props)
	if err != nil {
		return classView{}, err
	}
	return classView{Name: c.Name(), Parent: c.ParentName(), Properties: raw}, nil
}

func (s *Server) handleListClasses(w http.ResponseWriter, _ *http.Request) {
	tm := s.registry.TypeManager()
	views := []classView{}
	for _, name := range tm.TypeNames() {
		c, err := tm.Resolve(name)
		if err != nil {
			continue
		}
		v, err := s.classView(c)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": views, "count": len(views)})
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	c, err := s.registry.TypeManager().Resolve(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := s.classView(c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
