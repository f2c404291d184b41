package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Healthz(t *testing.T) {
	server := NewServer(0, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Status(t *testing.T) {
	t.Run("returns the status document", func(t *testing.T) {
		server := NewServer(0, nil, func() interface{} {
			return map[string]string{
				"us-east-1": "DOWN",
				"us-west-2": "UP",
			}
		}, nil)

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var doc map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, "DOWN", doc["us-east-1"])
		assert.Equal(t, "UP", doc["us-west-2"])
	})

	t.Run("nil status func yields null", func(t *testing.T) {
		server := NewServer(0, nil, nil, nil)

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null\n", rec.Body.String())
	})
}

func TestServer_Metrics(t *testing.T) {
	t.Run("mounted when a handler is given", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		})
		server := NewServer(0, nil, nil, handler)

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# metrics", rec.Body.String())
	})

	t.Run("absent without a handler", func(t *testing.T) {
		server := NewServer(0, nil, nil, nil)

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_UnknownRoute(t *testing.T) {
	server := NewServer(0, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
