package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yelpcamp/apiserver/internal/services"
	"github.com/yelpcamp/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20
	maxJSONBytes       = 1 << 20

	msgNotLoggedIn   = "you need to be logged in to do that"
	msgNoPermission  = "you do not have permission to do that"
	msgUpstream      = "an upstream service is unavailable, please try again later"
	msgAlreadyExists = "a user with that username or email already exists"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries an informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

func withActor(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, actorContextKey, user)
}

// actorFromContext returns the acting user, or nil for anonymous requests.
func actorFromContext(ctx context.Context) *types.User {
	user, _ := ctx.Value(actorContextKey).(*types.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error onto a status code. Internal
// failures are logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var inputErr *services.InputError
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, msgNotLoggedIn)
	case errors.Is(err, services.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, msgNoPermission)
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Message)
	case errors.Is(err, services.ErrTokenInvalidOrExpired):
		writeError(w, http.StatusBadRequest, services.ErrTokenInvalidOrExpired.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, msgAlreadyExists)
	case errors.Is(err, services.ErrUpstream):
		slog.Warn("upstream failure", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusBadGateway, msgUpstream)
	default:
		slog.Error(fallback, slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// writeGuardedError is writeServiceError for guarded mutations: a missing
// target is reported exactly like a target the caller may not touch.
func writeGuardedError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusForbidden, msgNoPermission)
		return
	}
	writeServiceError(w, r, err, fallback)
}

func parseID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", strings.TrimSuffix(param, "ID")+" id")
	}
	return id, nil
}

// parsePage returns the 1-based page query parameter. Missing, malformed
// and non-positive values mean page 1.
func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

// parseForm accepts multipart and url-encoded bodies.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return errors.New("invalid multipart form")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errors.New("invalid form")
	}
	return nil
}

// formImage returns the uploaded file in field, or nil when none was sent.
func formImage(r *http.Request, field string) (*services.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, fmt.Errorf("only one %s file is allowed", field)
	}
	return readUpload(files[0])
}

func readUpload(header *multipart.FileHeader) (*services.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}
	return &services.Upload{Filename: header.Filename, Data: data}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
