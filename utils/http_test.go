package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"result": "success"}

	err := WriteOK(w, data)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"id": "123"}

	err := WriteCreated(w, data)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response SuccessResponse
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "123", dataMap["id"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
		wantError  string
		wantMsg    string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter) error {
				return WriteBadRequest(w, "/api/signup", "bad body", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
			wantMsg:    "bad body",
		},
		{
			name: "unauthorized with default message",
			write: func(w http.ResponseWriter) error {
				return WriteUnauthorized(w, "/api/auth/me", "")
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
			wantMsg:    "Authentication required",
		},
		{
			name: "forbidden",
			write: func(w http.ResponseWriter) error {
				return WriteForbidden(w, "/api/admin", "Insufficient permissions")
			},
			wantStatus: http.StatusForbidden,
			wantError:  "forbidden",
			wantMsg:    "Insufficient permissions",
		},
		{
			name: "not found",
			write: func(w http.ResponseWriter) error {
				return WriteNotFound(w, "/api/users/x", "")
			},
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
			wantMsg:    "Resource not found",
		},
		{
			name: "conflict",
			write: func(w http.ResponseWriter) error {
				return WriteConflict(w, "/api/signup", "username taken", nil)
			},
			wantStatus: http.StatusConflict,
			wantError:  "conflict",
			wantMsg:    "username taken",
		},
		{
			name: "service unavailable",
			write: func(w http.ResponseWriter) error {
				return WriteServiceUnavailable(w, "/api/token/refresh", "")
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
			wantMsg:    "Service temporarily unavailable",
		},
		{
			name: "internal server error",
			write: func(w http.ResponseWriter) error {
				return WriteInternalServerError(w, "/api/login", "")
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)

			response := decodeError(t, w)
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantMsg, response.Message)
			assert.NotEmpty(t, response.Path)
		})
	}
}

func TestErrorResponseIncludesPath(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteUnauthorized(w, "/api/auth/me", "Invalid or expired token"))

	response := decodeError(t, w)
	assert.Equal(t, "/api/auth/me", response.Path)
}
