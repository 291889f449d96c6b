package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bughive/bughive-server/internal/dto"
	"github.com/bughive/bughive-server/internal/http/response"
	"github.com/bughive/bughive-server/internal/service"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.services.User.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, users, s.logger)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.User.Get(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.services.User.Update(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, dto.NewAccount(user), s.logger)
}

// handleDeleteUser removes the account with everything it owns.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.services.User.Delete(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
