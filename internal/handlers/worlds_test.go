package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func demoWorld() *world.Document {
	doc := world.NewDocument("demo", "Les & <hory>")
	doc.Entities.Append(world.NewRecord(
		world.Field{Key: "id", Value: "hero"},
		world.Field{Key: "name", Value: "Hrdina"},
		world.Field{Key: "type", Value: "CHAR"},
	))
	return doc
}

func TestWorldHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		saveErr      error
		expectedCode int
		expectedBody string
		expectedErr  string
	}{
		{
			name:         "list worlds",
			method:       http.MethodGet,
			path:         "/v1/worlds",
			expectedCode: http.StatusOK,
			expectedBody: `["alpha","demo"]`,
		},
		{
			name:         "get world",
			method:       http.MethodGet,
			path:         "/v1/worlds/demo",
			expectedCode: http.StatusOK,
			expectedBody: `"description": "Les & <hory>"`,
		},
		{
			name:         "get world with json suffix",
			method:       http.MethodGet,
			path:         "/v1/worlds/demo.json",
			expectedCode: http.StatusOK,
			expectedBody: `"name": "Hrdina"`,
		},
		{
			name:         "missing world",
			method:       http.MethodGet,
			path:         "/v1/worlds/nowhere",
			expectedCode: http.StatusNotFound,
			expectedErr:  "World not found",
		},
		{
			name:         "traversal",
			method:       http.MethodGet,
			path:         "/v1/worlds/a..b",
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Invalid world name",
		},
		{
			name:         "save world",
			method:       http.MethodPut,
			path:         "/v1/worlds/fresh",
			body:         `{"name":"fresh","entities":[],"relations":[]}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"saved":"fresh"}`,
		},
		{
			name:         "save array body",
			method:       http.MethodPut,
			path:         "/v1/worlds/fresh",
			body:         `[1,2]`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Body must be a world JSON object",
		},
		{
			name:         "save null body",
			method:       http.MethodPut,
			path:         "/v1/worlds/fresh",
			body:         `null`,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Body must be a world JSON object",
		},
		{
			name:         "save failure",
			method:       http.MethodPut,
			path:         "/v1/worlds/demo",
			body:         `{"name":"demo"}`,
			saveErr:      errors.New("disk full"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "Failed to save world",
		},
		{
			name:         "delete not allowed",
			method:       http.MethodDelete,
			path:         "/v1/worlds/demo",
			expectedCode: http.StatusMethodNotAllowed,
			expectedErr:  "Method not allowed",
		},
		{
			name:         "put on collection not allowed",
			method:       http.MethodPut,
			path:         "/v1/worlds",
			expectedCode: http.StatusMethodNotAllowed,
			expectedErr:  "Method not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			store.AddWorld("demo", demoWorld())
			store.AddWorld("alpha", world.NewDocument("alpha", ""))
			store.SetSaveError(tt.saveErr)
			handler := NewWorldHandler(store, testLogger())

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			if tt.expectedErr != "" {
				var response ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.expectedErr, response.Error)
			}
		})
	}
}

func TestWorldHandler_PutThenGet(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewWorldHandler(store, testLogger())

	body := `{"name":"w","description":"","entities":[{"id":"a","type":"ENVI","custom":{"k":[1,2]}}],"relations":[]}`
	put := httptest.NewRequest(http.MethodPut, "/v1/worlds/w.json", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, put)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/worlds/w", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, body, w.Body.String())
}
