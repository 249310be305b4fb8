package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yelpcamp/apiserver/types"
)

// PageSize is the number of campgrounds on one listing page.
const PageSize = 8

const noMatchMessage = "No campgrounds match that query, please try again."

// CampgroundRepository defines persistence operations for campgrounds.
type CampgroundRepository interface {
	List(ctx context.Context, pattern string, offset, limit int) ([]types.Campground, int, error)
	ListByAuthor(ctx context.Context, authorID int) ([]types.Campground, error)
	Get(ctx context.Context, id int) (types.Campground, error)
	Create(ctx context.Context, campground types.Campground) (types.Campground, error)
	Update(ctx context.Context, campground types.Campground) (types.Campground, error)
	Delete(ctx context.Context, id int) error
}

// CampgroundInput holds the user-editable campground fields. Image is
// required on create and optional on update.
type CampgroundInput struct {
	Name        string
	Price       string
	Description string
	Location    string
	Image       *Upload
}

// CampgroundPage is one page of the campground listing.
type CampgroundPage struct {
	Items   []types.Campground `json:"items"`
	Page    int                `json:"page"`
	Pages   int                `json:"pages"`
	Total   int                `json:"total"`
	Search  string             `json:"search,omitempty"`
	Message string             `json:"message,omitempty"`
}

// CampgroundService encapsulates campground use-cases.
type CampgroundService struct {
	repo      CampgroundRepository
	comments  CommentRepository
	images    ImageStore
	geocoder  Geocoder
	sanitizer Sanitizer
	guard     *Guard[types.Campground]
}

func NewCampgroundService(
	repo CampgroundRepository,
	comments CommentRepository,
	images ImageStore,
	geocoder Geocoder,
	sanitizer Sanitizer,
	recorder AuthzRecorder,
) *CampgroundService {
	if sanitizer == nil {
		sanitizer = plainSanitizer{}
	}
	return &CampgroundService{
		repo:      repo,
		comments:  comments,
		images:    images,
		geocoder:  geocoder,
		sanitizer: sanitizer,
		guard: NewGuard("campground", repo.Get, func(c types.Campground) int {
			return c.Author.ID
		}, recorder),
	}
}

// List returns the 1-based page of campgrounds whose name matches search.
// search is matched literally and case-insensitively; page < 1 is page 1.
func (s *CampgroundService) List(ctx context.Context, page int, search string) (CampgroundPage, error) {
	if page < 1 {
		page = 1
	}
	search = strings.TrimSpace(search)

	items, total, err := s.repo.List(ctx, EscapeRegex(search), (page-1)*PageSize, PageSize)
	if err != nil {
		return CampgroundPage{}, err
	}

	result := CampgroundPage{
		Items:  items,
		Page:   page,
		Pages:  (total + PageSize - 1) / PageSize,
		Total:  total,
		Search: search,
	}
	if search != "" && len(items) == 0 {
		result.Message = noMatchMessage
	}
	return result, nil
}

// Get returns the campground with its comments populated.
func (s *CampgroundService) Get(ctx context.Context, id int) (types.Campground, error) {
	campground, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Campground{}, err
	}
	comments, err := s.comments.ListByIDs(ctx, campground.CommentIDs)
	if err != nil {
		return types.Campground{}, err
	}
	campground.Comments = comments
	return campground, nil
}

// Create geocodes the location and stores the image before writing the
// campground. Either failure leaves the store untouched.
func (s *CampgroundService) Create(ctx context.Context, actor *types.User, input CampgroundInput) (types.Campground, error) {
	if actor == nil {
		return types.Campground{}, ErrNotAuthenticated
	}
	input = s.clean(input)
	if input.Name == "" || input.Location == "" {
		return types.Campground{}, invalidInput("name and location are required")
	}
	if input.Image == nil {
		return types.Campground{}, invalidInput("image is required")
	}
	if err := validateImage(input.Image); err != nil {
		return types.Campground{}, err
	}

	geo, err := s.geocode(ctx, input.Location)
	if err != nil {
		return types.Campground{}, err
	}
	img, err := uploadImage(ctx, s.images, input.Image)
	if err != nil {
		return types.Campground{}, err
	}

	created, err := s.repo.Create(ctx, types.Campground{
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		Image:       img.URL,
		ImageID:     img.ID,
		Location:    geo.FormattedAddress,
		Lat:         geo.Latitude,
		Lng:         geo.Longitude,
		Author:      actor.AuthorRef(),
	})
	if err != nil {
		discardImage(ctx, s.images, img.ID)
		return types.Campground{}, err
	}
	return created, nil
}

// Update changes the campground on behalf of actor, who must be its author
// or an administrator. A new image replaces the stored one.
func (s *CampgroundService) Update(ctx context.Context, actor *types.User, id int, input CampgroundInput) (types.Campground, error) {
	return s.UpdateWith(ctx, actor, id, func() (CampgroundInput, error) { return input, nil })
}

// UpdateWith is Update with the input produced by read, which is called
// only once actor has been admitted.
func (s *CampgroundService) UpdateWith(ctx context.Context, actor *types.User, id int, read func() (CampgroundInput, error)) (types.Campground, error) {
	campground, decision, err := s.guard.Resolve(ctx, actor, id)
	if err != nil {
		return types.Campground{}, err
	}
	if err := decision.Err(); err != nil {
		return types.Campground{}, err
	}
	input, err := read()
	if err != nil {
		return types.Campground{}, err
	}

	input = s.clean(input)
	if input.Name == "" || input.Location == "" {
		return types.Campground{}, invalidInput("name and location are required")
	}
	if err := validateImage(input.Image); err != nil {
		return types.Campground{}, err
	}

	geo, err := s.geocode(ctx, input.Location)
	if err != nil {
		return types.Campground{}, err
	}

	previous := campground.ImageID
	var uploaded string
	if input.Image != nil {
		img, err := uploadImage(ctx, s.images, input.Image)
		if err != nil {
			return types.Campground{}, err
		}
		campground.Image = img.URL
		campground.ImageID = img.ID
		uploaded = img.ID
	}

	campground.Name = input.Name
	campground.Price = input.Price
	campground.Description = input.Description
	campground.Location = geo.FormattedAddress
	campground.Lat = geo.Latitude
	campground.Lng = geo.Longitude
	updated, err := s.repo.Update(ctx, campground)
	if err != nil {
		discardImage(ctx, s.images, uploaded)
		return types.Campground{}, err
	}
	if uploaded != "" {
		discardImage(ctx, s.images, previous)
	}
	return updated, nil
}

// Delete removes the campground and releases its image. Its comments are
// kept.
func (s *CampgroundService) Delete(ctx context.Context, actor *types.User, id int) error {
	campground, decision, err := s.guard.Resolve(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}

	if err := destroyImage(ctx, s.images, campground.ImageID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Authorize reports whether actor may mutate campground id.
func (s *CampgroundService) Authorize(ctx context.Context, actor *types.User, id int) (Decision, error) {
	return s.guard.Authorize(ctx, actor, id)
}

func (s *CampgroundService) geocode(ctx context.Context, address string) (types.GeoResult, error) {
	if s.geocoder == nil {
		return types.GeoResult{}, fmt.Errorf("%w: geocoder is not configured", ErrUpstream)
	}
	results, err := s.geocoder.Geocode(ctx, address)
	if err != nil || len(results) == 0 {
		return types.GeoResult{}, invalidInput("invalid address")
	}
	return results[0], nil
}

func (s *CampgroundService) clean(input CampgroundInput) CampgroundInput {
	input.Name = strings.TrimSpace(s.sanitizer.Sanitize(input.Name))
	input.Price = strings.TrimSpace(input.Price)
	input.Description = strings.TrimSpace(s.sanitizer.Sanitize(input.Description))
	input.Location = strings.TrimSpace(input.Location)
	return input
}
