// Package memory implements the repositories in process. It backs
// STORE_BACKEND=memory and the service tests.
package memory

import (
	"sync"

	"github.com/yelpcamp/apiserver/types"
)

// Store holds all records behind one mutex. No method performs I/O while
// holding it.
type Store struct {
	mu sync.Mutex

	users       map[int]types.User
	campgrounds map[int]types.Campground
	comments    map[int]types.Comment

	nextUserID       int
	nextCampgroundID int
	nextCommentID    int
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int]types.User),
		campgrounds: make(map[int]types.Campground),
		comments:    make(map[int]types.Comment),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Campgrounds returns the campground repository view of the store.
func (s *Store) Campgrounds() *CampgroundRepository {
	return &CampgroundRepository{s: s}
}

// Comments returns the comment repository view of the store.
func (s *Store) Comments() *CommentRepository {
	return &CommentRepository{s: s}
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}
