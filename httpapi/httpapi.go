// Package httpapi exposes the SupportMesh façade over HTTP. It is a thin
// transport shell: request decoding, status mapping and JSON rendering; all
// turn processing happens in the driver behind the façade.
//
// Endpoints:
//
//	POST   /message                   - submit a message, drives one turn
//	GET    /conversation/{id}         - fetch conversation state
//	DELETE /conversation/{id}         - delete a conversation
//	GET    /conversations             - list discussion ids
//	GET    /categories                - list the routing catalog
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hupe1980/supportmesh"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
)

// Server wires the façade to an http.Handler.
type Server struct {
	mesh   *supportmesh.Mesh
	logger logging.Logger
}

// Options configure the HTTP server.
type Options struct {
	Logger logging.Logger
}

// NewServer creates a Server over a mesh.
func NewServer(mesh *supportmesh.Mesh, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{mesh: mesh, logger: opts.Logger}
}

// Handler returns the route multiplexer for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /conversation/{id}", s.handleGet)
	mux.HandleFunc("DELETE /conversation/{id}", s.handleDelete)
	mux.HandleFunc("GET /conversations", s.handleList)
	mux.HandleFunc("GET /categories", s.handleCategories)
	return mux
}

// messageResponse is the reply to POST /message.
type messageResponse struct {
	DiscussionID   string             `json:"discussion_id"`
	Response       string             `json:"response"`
	WaitingForUser bool               `json:"waiting_for_user"`
	Conversation   *core.Conversation `json:"conversation_state"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req supportmesh.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	conv, err := s.mesh.Submit(r.Context(), req)
	if err != nil && !errors.Is(err, core.ErrControlLoopExceeded) {
		s.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	var response string
	if msgs := conv.History(); len(msgs) > 0 {
		if last := msgs[len(msgs)-1]; last.Role == core.RoleAssistant {
			response = last.Content
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{
		DiscussionID:   conv.DiscussionID,
		Response:       response,
		WaitingForUser: conv.WaitingForUser,
		Conversation:   conv,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	conv, err := s.mesh.Get(r.PathValue("id"))
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("get conversation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.mesh.Delete(id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("delete conversation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "conversation " + id + " deleted"})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	ids, err := s.mesh.List()
	if err != nil {
		s.logger.Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mesh.Categories())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
