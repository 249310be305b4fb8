package services

import (
	"context"
	"strings"

	"github.com/yelpcamp/apiserver/types"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Get(ctx context.Context, id int) (types.Comment, error)
	ListByIDs(ctx context.Context, ids []int) ([]types.Comment, error)
	CreateForCampground(ctx context.Context, campgroundID int, comment types.Comment) (types.Comment, error)
	Update(ctx context.Context, comment types.Comment) (types.Comment, error)
	Delete(ctx context.Context, id int) error
}

// CommentService encapsulates comment use-cases.
type CommentService struct {
	repo      CommentRepository
	sanitizer Sanitizer
	guard     *Guard[types.Comment]
}

func NewCommentService(repo CommentRepository, sanitizer Sanitizer, recorder AuthzRecorder) *CommentService {
	if sanitizer == nil {
		sanitizer = plainSanitizer{}
	}
	return &CommentService{
		repo:      repo,
		sanitizer: sanitizer,
		guard: NewGuard("comment", repo.Get, func(c types.Comment) int {
			return c.Author.ID
		}, recorder),
	}
}

// Create attaches a comment by actor to the campground.
func (s *CommentService) Create(ctx context.Context, actor *types.User, campgroundID int, text string) (types.Comment, error) {
	if actor == nil {
		return types.Comment{}, ErrNotAuthenticated
	}
	text = s.clean(text)
	if text == "" {
		return types.Comment{}, invalidInput("comment text is required")
	}
	return s.repo.CreateForCampground(ctx, campgroundID, types.Comment{
		Text:   text,
		Author: actor.AuthorRef(),
	})
}

func (s *CommentService) Update(ctx context.Context, actor *types.User, id int, text string) (types.Comment, error) {
	comment, decision, err := s.guard.Resolve(ctx, actor, id)
	if err != nil {
		return types.Comment{}, err
	}
	if err := decision.Err(); err != nil {
		return types.Comment{}, err
	}

	text = s.clean(text)
	if text == "" {
		return types.Comment{}, invalidInput("comment text is required")
	}
	comment.Text = text
	return s.repo.Update(ctx, comment)
}

func (s *CommentService) Delete(ctx context.Context, actor *types.User, id int) error {
	decision, err := s.guard.Authorize(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *CommentService) clean(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}
