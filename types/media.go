package types

// Image is a stored image as returned by the image store.
type Image struct {
	// URL is the public address of the image.
	URL string `json:"url"`

	// ID identifies the object inside the image store.
	ID string `json:"id"`
}

// GeoResult is one candidate returned by the geocoder.
type GeoResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}
