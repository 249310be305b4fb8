package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yelpcamp/apiserver/internal/services"
	"github.com/yelpcamp/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

// forgotMessage is returned whether or not the address is registered.
const forgotMessage = "If an account with that e-mail address exists, an e-mail has been sent with further instructions."

// ActorLoader resolves the subject of a verified token.
type ActorLoader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// AuthHandler provides JWT authentication and password reset endpoints.
type AuthHandler struct {
	userService  *services.UserService
	resetService *services.ResetService
	secret       []byte
	tokenTTL     time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, resetService *services.ResetService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		resetService: resetService,
		secret:       []byte(jwtSecret),
		tokenTTL:     defaultTokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, resetService *services.ResetService, jwtSecret string, limiter *RateLimiter) {
	handler := NewAuthHandler(userService, resetService, jwtSecret)

	r.Post("/register", handler.Register)
	r.With(limiter.Middleware("login")).Post("/login", handler.Login)
	r.With(RequireUser).Get("/me", handler.Me)
	r.With(limiter.Middleware("forgot")).Post("/forgot", handler.Forgot)
	r.Get("/reset/{token}", handler.ValidateReset)
	r.Post("/reset/{token}", handler.Reset)
}

// Identify resolves the bearer token, if any, to the acting user. Requests
// without an Authorization header continue anonymously; a bad token or a
// token for a user that no longer exists is rejected.
func Identify(users ActorLoader, jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			subject, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := strconv.Atoi(subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				slog.Error("failed to load acting user", slog.Int("user_id", userID), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), &user)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, msgNotLoggedIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register creates a new account from a multipart form and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	avatar, err := formImage(r, "avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Username:  r.FormValue("username"),
		Password:  r.FormValue("password"),
		Email:     r.FormValue("email"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		AdminCode: r.FormValue("admin_code"),
		Avatar:    avatar,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create user")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user, "Welcome to YelpCamp, "+user.Username+"!")
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "failed to authenticate")
		return
	}

	h.respondWithToken(w, http.StatusOK, user, "")
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFromContext(r.Context()))
}

// Forgot starts a password reset. The response does not reveal whether the
// address belongs to an account.
func (h *AuthHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.resetService.RequestReset(r.Context(), req.Email); err != nil {
		if !errors.Is(err, services.ErrIdentityNotFound) {
			writeServiceError(w, r, err, "failed to start password reset")
			return
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: forgotMessage})
}

// ValidateReset reports whether the token in the path can still be used.
func (h *AuthHandler) ValidateReset(w http.ResponseWriter, r *http.Request) {
	user, err := h.resetService.ValidateToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err, "failed to validate token")
		return
	}
	writeJSON(w, http.StatusOK, ResetStatusResponse{Valid: true, Username: user.Username})
}

// Reset consumes the token, sets the new password and logs the user in.
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.resetService.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password, req.Confirm)
	if err != nil {
		writeServiceError(w, r, err, "failed to reset password")
		return
	}

	h.respondWithToken(w, http.StatusOK, user, "Success! Your password has been changed.")
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user types.User, message string) {
	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		slog.Error("failed to sign token", slog.Int("user_id", user.ID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user, Message: message})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ForgotRequest struct {
	Email string `json:"email"`
}

type ResetRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type AuthResponse struct {
	Token   string     `json:"token"`
	User    types.User `json:"user"`
	Message string     `json:"message,omitempty"`
}

type ResetStatusResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
