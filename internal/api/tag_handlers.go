package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bughive/bughive-server/internal/http/response"
	"github.com/bughive/bughive-server/internal/service"
)

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req service.TagRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	tag, err := s.services.Tag.Create(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, tag, s.logger)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.services.Tag.List(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tags, s.logger)
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.services.Tag.Get(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tag, s.logger)
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req service.TagRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	tag, err := s.services.Tag.Update(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tag, s.logger)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Tag.Delete(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleDeleteAllTags removes every tag of the requester. DELETE /api/tags.
func (s *Server) handleDeleteAllTags(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Tag.DeleteAll(r.Context(), getUserID(r.Context())); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
