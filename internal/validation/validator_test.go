package validation_test

import (
	"net/http"
	"testing"

	"github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bugRequest struct {
	Title       string   `json:"title" validate:"required,min=5"`
	Description string   `json:"description,omitempty" validate:"omitempty,min=10"`
	References  []string `json:"references"`
}

type userRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(bugRequest{Title: "Segfault"}))
	assert.NoError(t, v.Validate(bugRequest{Title: "Segfault", Description: "crashes on start"}))
	assert.NoError(t, v.Validate(userRequest{Username: "test1", Email: "test1@gmail.com"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		req     any
		wantMsg string
		field   string
	}{
		{
			name:    "missing title",
			req:     bugRequest{},
			wantMsg: "title is required",
			field:   "title",
		},
		{
			name:    "short title",
			req:     bugRequest{Title: "Bug"},
			wantMsg: "title must be at least 5 characters long",
			field:   "title",
		},
		{
			name:    "short description",
			req:     bugRequest{Title: "Segfault", Description: "short"},
			wantMsg: "description must be at least 10 characters long",
			field:   "description",
		},
		{
			name:    "invalid email",
			req:     userRequest{Username: "test1", Email: "not-an-email"},
			wantMsg: "email must be a valid email address",
			field:   "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Equal(t, tt.wantMsg, domainErr.Message)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestValidator_FirstFieldWins(t *testing.T) {
	v := validation.New()

	err := v.Validate(userRequest{})
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "username is required", domainErr.Message)
	assert.Len(t, domainErr.Details, 2)
}
