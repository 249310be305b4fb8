package types

import "time"

// Campground is a location-tagged listing with an image.
type Campground struct {
	// ID is the unique identifier of the campground.
	ID int `json:"id" db:"id"`

	// Name is the human-readable name, matched by the search filter.
	Name string `json:"name" db:"name"`

	// Price is the free-form nightly price as entered by the author.
	Price string `json:"price" db:"price"`

	// Description is the sanitized description text.
	Description string `json:"description" db:"description"`

	// Image is the public image URL and ImageID its identifier in the
	// image store, used to destroy it on replace or delete.
	Image   string `json:"image" db:"image"`
	ImageID string `json:"-" db:"image_id"`

	// Location is the formatted address returned by the geocoder.
	Location string  `json:"location" db:"location"`
	Lat      float64 `json:"lat" db:"lat"`
	Lng      float64 `json:"lng" db:"lng"`

	// Author is the creator snapshot.
	Author Author `json:"author"`

	// CommentIDs are the ordered references to this campground's comments.
	CommentIDs []int `json:"comment_ids"`

	// Comments is populated only on the detail view.
	Comments []Comment `json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Comment is a short text attached to a campground.
type Comment struct {
	ID        int       `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
