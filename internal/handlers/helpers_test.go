package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/yelpcamp/apiserver/internal/services"
	"github.com/yelpcamp/apiserver/internal/store/memory"
	"github.com/yelpcamp/apiserver/types"
)

const (
	testSecret    = "test-secret"
	testAdminCode = "letmein"
)

type stubImages struct {
	mu   sync.Mutex
	next int
}

func (s *stubImages) Upload(_ context.Context, filename string, _ []byte) (types.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("images/%d", s.next)
	return types.Image{URL: "https://images.test/" + id + "/" + filename, ID: id}, nil
}

func (s *stubImages) Destroy(context.Context, string) error { return nil }

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, address string) ([]types.GeoResult, error) {
	return []types.GeoResult{{Latitude: 1, Longitude: 2, FormattedAddress: address}}, nil
}

type outbox struct {
	mu   sync.Mutex
	sent []services.Notification
}

func (o *outbox) Send(_ context.Context, n services.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) last(t *testing.T) services.Notification {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type api struct {
	router      http.Handler
	store       *memory.Store
	outbox      *outbox
	campgrounds *services.CampgroundService
}

func newAPI(t *testing.T, limiter *RateLimiter) *api {
	t.Helper()

	store := memory.NewStore()
	images := &stubImages{}
	box := &outbox{}

	users := services.NewUserService(store.Users(), store.Campgrounds(), images, testAdminCode, nil)
	campgrounds := services.NewCampgroundService(store.Campgrounds(), store.Comments(), images, stubGeocoder{}, nil, nil)
	comments := services.NewCommentService(store.Comments(), nil, nil)
	reset := services.NewResetService(store.Users(), box, "https://camp.test", time.Hour)

	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}
	t.Cleanup(limiter.Stop)

	r := chi.NewRouter()
	r.Use(Identify(store.Users(), testSecret))
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, users, reset, testSecret, limiter)
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, users)
	})
	r.Route("/campgrounds", func(r chi.Router) {
		CampgroundRouter(r, campgrounds, comments)
	})

	return &api{router: r, store: store, outbox: box, campgrounds: campgrounds}
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *api) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *api) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return a.do(t, method, path, token, bytes.NewReader(data), "application/json")
}

// register signs up username with password username+"-password".
func (a *api) register(t *testing.T, username string, admin bool) (string, types.User) {
	t.Helper()

	fields := map[string]string{
		"username":   username,
		"password":   username + "-password",
		"email":      username + "@example.com",
		"first_name": username,
		"last_name":  "Tester",
	}
	if admin {
		fields["admin_code"] = testAdminCode
	}
	body, ct := multipartBody(t, fields, formFile{field: "avatar", filename: "me.png", data: []byte("png")})
	rec := a.do(t, http.MethodPost, "/auth/register", "", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func (a *api) createCampground(t *testing.T, token, name string) types.Campground {
	t.Helper()

	body, ct := multipartBody(t, map[string]string{
		"name":        name,
		"price":       "10",
		"description": "nice",
		"location":    "Portland",
	}, formFile{field: "image", filename: "camp.jpg", data: []byte("jpeg")})
	rec := a.do(t, http.MethodPost, "/campgrounds", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c types.Campground
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

var resetTokenPattern = regexp.MustCompile(`/reset/([0-9a-f]{40})`)

// countingReader records whether a handler consumed the request body.
type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}
