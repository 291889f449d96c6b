package api

import (
	"net/http"

	"github.com/bughive/bughive-server/internal/dto"
	"github.com/bughive/bughive-server/internal/http/response"
	"github.com/bughive/bughive-server/internal/service"
)

// handleRegister creates an account. POST /api/users.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.services.Auth.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, dto.NewAccount(user), s.logger)
}

// handleLogin exchanges credentials for an access token. POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.services.Auth.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}
