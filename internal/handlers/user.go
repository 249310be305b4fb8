package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yelpcamp/apiserver/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers profile routes.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewUserHandler(userService)

	r.Get("/{userID}", handler.Profile)
	r.With(RequireUser).Put("/{userID}", handler.Update)
}

// Profile returns the user and the campgrounds they created.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update edits the profile from a multipart form. Empty fields are left
// unchanged.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfileWith(r.Context(), actorFromContext(r.Context()), id, func() (services.ProfileInput, error) {
		input, err := profileInput(r)
		return input, services.AsInputError(err)
	})
	if err != nil {
		writeGuardedError(w, r, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func profileInput(r *http.Request) (services.ProfileInput, error) {
	if err := parseForm(r); err != nil {
		return services.ProfileInput{}, err
	}
	avatar, err := formImage(r, "avatar")
	if err != nil {
		return services.ProfileInput{}, err
	}
	return services.ProfileInput{
		Email:     r.FormValue("email"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Avatar:    avatar,
	}, nil
}
