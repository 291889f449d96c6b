package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/store"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJSON_BareDocument(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"id": "123"}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"123"}`, w.Body.String())
}

func TestJSON_NilLogger(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, []string{}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()

	Created(w, map[string]string{"id": "new-id"}, discard())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"new-id"}`, w.Body.String())
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError_Shape(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "title is required", discard())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"title is required"}`, w.Body.String())
}

func TestInvalidBody(t *testing.T) {
	w := httptest.NewRecorder()

	InvalidBody(w, discard())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation with details",
			err:        domainerrors.ValidationWithDetails("title is required", map[string]string{"title": "title is required"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"title is required","details":{"title":"title is required"}}`,
		},
		{
			name:       "ownership",
			err:        domainerrors.NotOwner("a user can only view their bugs"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"a user can only view their bugs"}`,
		},
		{
			name:       "malformed id",
			err:        domainerrors.MalformedID(),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"malformatted id"}`,
		},
		{
			name:       "domain not found has empty body",
			err:        domainerrors.NotFound("bug not found"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store not found has empty body",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store conflict",
			err:        fmt.Errorf("attach: %w", store.ErrConflict),
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"concurrent modification, try again"}`,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("update: %w", domainerrors.Validation("title must be unique")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"title must be unique"}`,
		},
		{
			name:       "unknown error is hidden",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
		{
			name:       "internal domain error is hidden",
			err:        domainerrors.Wrap(errors.New("boom"), domainerrors.CodeInternal, "secret detail"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleError(w, tt.err, discard())

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody == "" {
				assert.Empty(t, w.Body.String())
				return
			}
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestErrorBody_OmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(ErrorBody{Error: "token missing"})
	require.NoError(t, err)
	assert.Equal(t, `{"error":"token missing"}`, string(data))
}
