// Package inspect serves a read-only HTTP view of a running Driver's rule
// engine and grammar engine state, for authoring-time observability: an
// author can point a browser or curl at it while a long rule set is
// running to see working memory, fired actions, and grammar state without
// instrumenting the rule or grammar files themselves. It is unauthenticated
// by design — it is local tooling, not a multi-tenant service, and carries
// no session or account concept of its own.
package inspect

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dekarrin/storyforge/internal/grammar"
	"github.com/dekarrin/storyforge/internal/rules"
)

// Server exposes a snapshot of a rule/grammar engine pair over HTTP.
type Server struct {
	Rules   *rules.Engine
	Grammar *grammar.Engine
}

// Router builds the chi router serving this Server's endpoints:
//
//	GET /facts     - every fact currently in working memory
//	GET /entities  - every known entity and its attributes
//	GET /actions   - every action fired so far, in order
//	GET /state     - the grammar engine's current variable state
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/facts", s.handleFacts)
	r.Get("/entities", s.handleEntities)
	r.Get("/actions", s.handleActions)
	r.Get("/state", s.handleState)
	return r
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Rules.WorkingMemory().Facts())
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Rules.Entities())
}

type actionView struct {
	Name     string            `json:"name"`
	Bindings map[string]string `json:"bindings"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	actions := s.Rules.Actions()
	out := make([]actionView, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionView{Name: a.Name, Bindings: bindingNames(a.Bindings)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.Grammar == nil {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, s.Grammar.ExportState())
}

func bindingNames(bindings rules.Bindings) map[string]string {
	out := make(map[string]string, len(bindings))
	for role, ent := range bindings {
		out[role] = ent.Name
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
