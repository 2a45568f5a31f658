// Package httpapi is the inbound HTTP API server of §6, routed with
// gorilla/mux.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

var errMissingGraphOrNode = errors.New("node envelope requires graph_id and node")

// Version is returned by GET /version.
type Version struct {
	Version string `json:"version"`
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
}

const (
	versionMajor = 1
	versionMinor = 0
)

// AlertQueue is the boundary to the single alert worker: the HTTP layer
// only enqueues, it never processes an alert inline.
type AlertQueue interface {
	Enqueue(raw *models.RawAlert) error
}

// nodeEnvelope is the wire shape for node CRUD: a node belongs to exactly
// one template, and the catalog's persisted document is keyed by template,
// so the envelope names which graph the node is (or will be) a part of.
type nodeEnvelope struct {
	GraphID string             `json:"graph_id"`
	Node    *models.AttackNode `json:"node"`
}

// Server wires the §6 endpoint table to the engine's catalogs and queue.
type Server struct {
	router     *mux.Router
	queue      AlertQueue
	conditions *condition.Engine
	graphs     *graphcatalog.Catalog
	workflows  *workflowcatalog.Catalog
}

// New constructs the HTTP API server and registers its routes.
func New(queue AlertQueue, conditions *condition.Engine, graphs *graphcatalog.Catalog, workflows *workflowcatalog.Catalog) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		queue:      queue,
		conditions: conditions,
		graphs:     graphs,
		workflows:  workflows,
	}
	s.routes()
	return s
}

// Handler returns the root http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	s.router.HandleFunc("/alert", s.handleAlertPost).Methods(http.MethodPost)
	s.router.HandleFunc("/condition", s.handleConditionGet).Methods(http.MethodGet)
	s.router.HandleFunc("/condition", s.handleConditionPost).Methods(http.MethodPost)
	s.router.HandleFunc("/node", s.handleNodeGet).Methods(http.MethodGet)
	s.router.HandleFunc("/node", s.handleNodePost).Methods(http.MethodPost)
	s.router.HandleFunc("/workflow", s.handleWorkflowGet).Methods(http.MethodGet)
	s.router.HandleFunc("/workflow", s.handleWorkflowPost).Methods(http.MethodPost)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Version{Version: "1.0", Major: versionMajor, Minor: versionMinor})
}

func (s *Server) handleAlertPost(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}
	if err := s.queue.Enqueue(&models.RawAlert{Document: doc}); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleConditionGet(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	c, ok := s.conditions.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleConditionPost(w http.ResponseWriter, r *http.Request) {
	var c models.Condition
	if !decodeJSONBody(w, r, &c) {
		return
	}
	if err := s.conditions.Load(&c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNodeGet(w http.ResponseWriter, r *http.Request) {
	graphID := r.URL.Query().Get("graph")
	id := r.URL.Query().Get("id")
	g, ok := s.graphs.Get(graphID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	n, ok := g.Nodes[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleNodePost(w http.ResponseWriter, r *http.Request) {
	var env nodeEnvelope
	if !decodeJSONBody(w, r, &env) {
		return
	}
	if env.Node == nil || env.GraphID == "" {
		writeError(w, http.StatusBadRequest, errMissingGraphOrNode)
		return
	}
	g, ok := s.graphs.Get(env.GraphID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	updated := cloneGraphWithNode(g, env.Node)
	if err := s.graphs.Put(updated); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWorkflowGet(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	sig, ok := s.workflows.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) handleWorkflowPost(w http.ResponseWriter, r *http.Request) {
	var sig models.WorkflowSignature
	if !decodeJSONBody(w, r, &sig) {
		return
	}
	if err := s.workflows.Put(&sig); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func cloneGraphWithNode(g *models.AttackGraph, n *models.AttackNode) *models.AttackGraph {
	nodes := make(map[string]*models.AttackNode, len(g.Nodes)+1)
	for id, existing := range g.Nodes {
		nodes[id] = existing
	}
	nodes[n.ID] = n
	return &models.AttackGraph{ID: g.ID, Description: g.Description, Initial: g.Initial, Nodes: nodes}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		w.WriteHeader(http.StatusNotAcceptable)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
