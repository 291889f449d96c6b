package api

import "github.com/bughive/bughive-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Auth *service.AuthService
	User *service.UserService
	Bug  *service.BugService
	Tag  *service.TagService
}
