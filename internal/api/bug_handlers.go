package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bughive/bughive-server/internal/http/response"
	"github.com/bughive/bughive-server/internal/service"
)

func (s *Server) handleCreateBug(w http.ResponseWriter, r *http.Request) {
	var req service.BugRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	bug, err := s.services.Bug.Create(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, bug, s.logger)
}

func (s *Server) handleListBugs(w http.ResponseWriter, r *http.Request) {
	bugs, err := s.services.Bug.List(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, bugs, s.logger)
}

func (s *Server) handleGetBug(w http.ResponseWriter, r *http.Request) {
	bug, err := s.services.Bug.Get(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, bug, s.logger)
}

func (s *Server) handleUpdateBug(w http.ResponseWriter, r *http.Request) {
	var req service.BugRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	bug, err := s.services.Bug.Update(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, bug, s.logger)
}

func (s *Server) handleDeleteBug(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Bug.Delete(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleDeleteAllBugs removes every bug of the requester. DELETE /api/bugs.
func (s *Server) handleDeleteAllBugs(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Bug.DeleteAll(r.Context(), getUserID(r.Context())); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
