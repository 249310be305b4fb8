package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
)

type CommentRepository struct {
	s *Store
}

func (r *CommentRepository) Get(_ context.Context, id int) (types.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (r *CommentRepository) ListByIDs(_ context.Context, ids []int) ([]types.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]types.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.comments[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CommentRepository) CreateForCampground(_ context.Context, campgroundID int, c types.Comment) (types.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	campground, ok := r.s.campgrounds[campgroundID]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}

	now := time.Now().UTC()
	r.s.nextCommentID++
	c.ID = r.s.nextCommentID
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.comments[c.ID] = c

	campground.CommentIDs = append(copyInts(campground.CommentIDs), c.ID)
	r.s.campgrounds[campgroundID] = campground
	return c, nil
}

func (r *CommentRepository) Update(_ context.Context, c types.Comment) (types.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.comments[c.ID]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	existing.Text = c.Text
	existing.UpdatedAt = time.Now().UTC()
	r.s.comments[c.ID] = existing
	return existing, nil
}

func (r *CommentRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.comments, id)

	for cid, campground := range r.s.campgrounds {
		kept := make([]int, 0, len(campground.CommentIDs))
		for _, ref := range campground.CommentIDs {
			if ref != id {
				kept = append(kept, ref)
			}
		}
		if len(kept) != len(campground.CommentIDs) {
			campground.CommentIDs = kept
			r.s.campgrounds[cid] = campground
		}
	}
	return nil
}
