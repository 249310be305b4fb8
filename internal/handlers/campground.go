package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yelpcamp/apiserver/internal/services"
)

// CampgroundHandler serves the campground listing and its mutations.
type CampgroundHandler struct {
	campgroundService *services.CampgroundService
}

func NewCampgroundHandler(campgroundService *services.CampgroundService) *CampgroundHandler {
	return &CampgroundHandler{campgroundService: campgroundService}
}

// CampgroundRouter registers campground routes, including nested comments.
func CampgroundRouter(r chi.Router, campgroundService *services.CampgroundService, commentService *services.CommentService) {
	handler := NewCampgroundHandler(campgroundService)

	r.Get("/", handler.List)
	r.With(RequireUser).Post("/", handler.Create)
	r.Route("/{campgroundID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.With(RequireUser).Put("/", handler.Update)
		r.With(RequireUser).Delete("/", handler.Delete)
		r.Route("/comments", func(r chi.Router) {
			CommentRouter(r, commentService)
		})
	})
}

// List returns one page of campgrounds, optionally filtered by name.
func (h *CampgroundHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.campgroundService.List(r.Context(), parsePage(r), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err, "failed to list campgrounds")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CampgroundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "campgroundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	campground, err := h.campgroundService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load campground")
		return
	}
	writeJSON(w, http.StatusOK, campground)
}

func (h *CampgroundHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := campgroundInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	campground, err := h.campgroundService.Create(r.Context(), actorFromContext(r.Context()), input)
	if err != nil {
		writeServiceError(w, r, err, "failed to create campground")
		return
	}
	writeJSON(w, http.StatusCreated, campground)
}

func (h *CampgroundHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "campgroundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The form, which may carry an image, is read only for admitted callers.
	campground, err := h.campgroundService.UpdateWith(r.Context(), actorFromContext(r.Context()), id,
		func() (services.CampgroundInput, error) {
			input, err := campgroundInput(r)
			return input, services.AsInputError(err)
		})
	if err != nil {
		writeGuardedError(w, r, err, "failed to update campground")
		return
	}
	writeJSON(w, http.StatusOK, campground)
}

func (h *CampgroundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "campgroundID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.campgroundService.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeGuardedError(w, r, err, "failed to delete campground")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func campgroundInput(r *http.Request) (services.CampgroundInput, error) {
	if err := parseForm(r); err != nil {
		return services.CampgroundInput{}, err
	}
	image, err := formImage(r, "image")
	if err != nil {
		return services.CampgroundInput{}, err
	}
	return services.CampgroundInput{
		Name:        r.FormValue("name"),
		Price:       r.FormValue("price"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Image:       image,
	}, nil
}
