package services

import (
	"context"

	"github.com/yelpcamp/apiserver/types"
)

// ImageStore keeps uploaded images.
type ImageStore interface {
	Upload(ctx context.Context, filename string, data []byte) (types.Image, error)
	Destroy(ctx context.Context, id string) error
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) ([]types.GeoResult, error)
}

// Notification is one outbound message to a user.
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers notifications out of band.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Sanitizer strips markup from user-supplied text.
type Sanitizer interface {
	Sanitize(s string) string
}

type plainSanitizer struct{}

func (plainSanitizer) Sanitize(s string) string { return s }
