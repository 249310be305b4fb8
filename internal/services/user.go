package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetResetToken(ctx context.Context, userID int, token types.ResetToken) error
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error)
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (types.User, error)
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	AdminCode string
	Avatar    *Upload
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Email     string
	FirstName string
	LastName  string
	Avatar    *Upload
}

// Profile is a user together with the campgrounds they created.
type Profile struct {
	User        types.User         `json:"user"`
	Campgrounds []types.Campground `json:"campgrounds"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo        UserRepository
	campgrounds CampgroundRepository
	images      ImageStore
	adminCode   string
	guard       *Guard[types.User]
}

func NewUserService(repo UserRepository, campgrounds CampgroundRepository, images ImageStore, adminCode string, recorder AuthzRecorder) *UserService {
	return &UserService{
		repo:        repo,
		campgrounds: campgrounds,
		images:      images,
		adminCode:   adminCode,
		guard: NewGuard("user", repo.GetByID, func(u types.User) int {
			return u.ID
		}, recorder),
	}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates an account. A matching non-empty admin code grants the
// administrator role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	if input.Username == "" || input.Password == "" || input.Email == "" ||
		input.FirstName == "" || input.LastName == "" {
		return types.User{}, invalidInput("missing required fields")
	}
	if err := validateEmail(input.Email); err != nil {
		return types.User{}, err
	}
	if err := validateImage(input.Avatar); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsAdmin:      s.adminCode != "" && input.AdminCode == s.adminCode,
		PasswordHash: string(hashed),
	}

	if input.Avatar != nil {
		img, err := uploadImage(ctx, s.images, input.Avatar)
		if err != nil {
			return types.User{}, err
		}
		user.Avatar = img.URL
		user.AvatarID = img.ID
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		discardImage(ctx, s.images, user.AvatarID)
		return types.User{}, err
	}
	return created, nil
}

// Login checks the credentials. Unknown usernames and wrong passwords are
// not distinguished.
func (s *UserService) Login(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, invalidInput("missing credentials")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, id int) (Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	campgrounds, err := s.campgrounds.ListByAuthor(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Campgrounds: campgrounds}, nil
}

// UpdateProfile changes the profile of user id on behalf of actor, who must
// be that user or an administrator.
func (s *UserService) UpdateProfile(ctx context.Context, actor *types.User, id int, input ProfileInput) (types.User, error) {
	return s.UpdateProfileWith(ctx, actor, id, func() (ProfileInput, error) { return input, nil })
}

// UpdateProfileWith is UpdateProfile with the input produced by read, which
// is called only once actor has been admitted.
func (s *UserService) UpdateProfileWith(ctx context.Context, actor *types.User, id int, read func() (ProfileInput, error)) (types.User, error) {
	user, decision, err := s.guard.Resolve(ctx, actor, id)
	if err != nil {
		return types.User{}, err
	}
	if err := decision.Err(); err != nil {
		return types.User{}, err
	}
	input, err := read()
	if err != nil {
		return types.User{}, err
	}

	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.Email != "" {
		if err := validateEmail(input.Email); err != nil {
			return types.User{}, err
		}
		if err := s.ensureEmailAvailable(ctx, input.Email, user.ID); err != nil {
			return types.User{}, err
		}
		user.Email = input.Email
	}
	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if err := validateImage(input.Avatar); err != nil {
		return types.User{}, err
	}

	// The replaced avatar is released only once the row no longer refers
	// to it.
	previous := user.AvatarID
	var uploaded string
	if input.Avatar != nil {
		img, err := uploadImage(ctx, s.images, input.Avatar)
		if err != nil {
			return types.User{}, err
		}
		user.Avatar = img.URL
		user.AvatarID = img.ID
		uploaded = img.ID
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		discardImage(ctx, s.images, uploaded)
		return types.User{}, err
	}
	if uploaded != "" {
		discardImage(ctx, s.images, previous)
	}
	return updated, nil
}

// ensureEmailAvailable fails with ErrConflict when email belongs to an
// account other than userID.
func (s *UserService) ensureEmailAvailable(ctx context.Context, email string, userID int) error {
	owner, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case owner.ID != userID:
		return ErrConflict
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return invalidInput("invalid email address")
	}
	return nil
}
