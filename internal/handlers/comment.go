package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yelpcamp/apiserver/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CommentRouter registers comment routes. It is mounted below a
// {campgroundID} path segment.
func CommentRouter(r chi.Router, commentService *services.CommentService) {
	handler := NewCommentHandler(commentService)

	r.With(RequireUser).Post("/", handler.Create)
	r.With(RequireUser).Put("/{commentID}", handler.Update)
	r.With(RequireUser).Delete("/{commentID}", handler.Delete)
}

type CommentRequest struct {
	Text string `json:"text"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	campgroundID, err := parseID(r, "campgroundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.commentService.Create(r.Context(), actorFromContext(r.Context()), campgroundID, req.Text)
	if err != nil {
		writeServiceError(w, r, err, "failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.commentService.Update(r.Context(), actorFromContext(r.Context()), id, req.Text)
	if err != nil {
		writeGuardedError(w, r, err, "failed to update comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.commentService.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeGuardedError(w, r, err, "failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
