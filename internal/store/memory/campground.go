package memory

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
)

type CampgroundRepository struct {
	s *Store
}

func (r *CampgroundRepository) List(_ context.Context, pattern string, offset, limit int) ([]types.Campground, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 8
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, 0, err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := make([]types.Campground, 0, len(r.s.campgrounds))
	for _, c := range r.s.campgrounds {
		if re == nil || re.MatchString(c.Name) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if offset >= total {
		return []types.Campground{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]types.Campground, 0, end-offset)
	for _, c := range matched[offset:end] {
		page = append(page, cloneCampground(c))
	}
	return page, total, nil
}

func (r *CampgroundRepository) ListByAuthor(_ context.Context, authorID int) ([]types.Campground, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]types.Campground, 0)
	for _, c := range r.s.campgrounds {
		if c.Author.ID == authorID {
			out = append(out, cloneCampground(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CampgroundRepository) Get(_ context.Context, id int) (types.Campground, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campgrounds[id]
	if !ok {
		return types.Campground{}, store.ErrNotFound
	}
	return cloneCampground(c), nil
}

func (r *CampgroundRepository) Create(_ context.Context, c types.Campground) (types.Campground, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	r.s.nextCampgroundID++
	c.ID = r.s.nextCampgroundID
	c.CommentIDs = []int{}
	c.Comments = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.campgrounds[c.ID] = c
	return cloneCampground(c), nil
}

func (r *CampgroundRepository) Update(_ context.Context, c types.Campground) (types.Campground, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.campgrounds[c.ID]
	if !ok {
		return types.Campground{}, store.ErrNotFound
	}
	existing.Name = c.Name
	existing.Price = c.Price
	existing.Description = c.Description
	existing.Image = c.Image
	existing.ImageID = c.ImageID
	existing.Location = c.Location
	existing.Lat = c.Lat
	existing.Lng = c.Lng
	existing.UpdatedAt = time.Now().UTC()
	r.s.campgrounds[c.ID] = existing
	return cloneCampground(existing), nil
}

func (r *CampgroundRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.campgrounds[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.campgrounds, id)
	return nil
}

func cloneCampground(c types.Campground) types.Campground {
	c.CommentIDs = copyInts(c.CommentIDs)
	c.Comments = nil
	return c
}
