package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yelpcamp/apiserver/config"
)

func newMemoryServer(t *testing.T) *Server {
	t.Helper()

	srv, err := New(context.Background(), config.Config{
		StoreBackend: "memory",
		JWTSecret:    "secret",
		BaseURL:      "http://localhost:8080",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresJWTSecret(t *testing.T) {
	_, err := New(context.Background(), config.Config{StoreBackend: "memory"})
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	_, err := New(context.Background(), config.Config{StoreBackend: "mongo", JWTSecret: "x"})
	assert.ErrorContains(t, err, "unknown store backend")

	_, err = New(context.Background(), config.Config{
		StoreBackend: "memory",
		JWTSecret:    "x",
		Storage:      config.StorageConfig{Backend: "ftp"},
	})
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestMemoryServerRoutes(t *testing.T) {
	srv := newMemoryServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"username":   "alice",
		"password":   "alice-password",
		"email":      "alice@example.com",
		"first_name": "Alice",
		"last_name":  "Tester",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/auth/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = serve(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	req = httptest.NewRequest(http.MethodDelete, "/campgrounds/1", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	rec = serve(srv, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `yelpcamp_authz_decisions_total{kind="campground",outcome="not_found"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestEmptyCampgroundListing(t *testing.T) {
	srv := newMemoryServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/campgrounds", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"page":1,"pages":0,"total":0}`, rec.Body.String())
}
