// Package geocode resolves campground addresses with the Google Maps
// Geocoding API.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/types"
	"googlemaps.github.io/maps"
)

// Google is a geocoder backed by the Google Maps Geocoding API.
type Google struct {
	client *maps.Client
}

// NewGoogle constructs a geocoder from config. Extra client options are
// applied after those derived from cfg.
func NewGoogle(cfg config.GeocoderConfig, opts ...maps.ClientOption) (*Google, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("geocoder api key is required")
	}
	base := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base = append(base, maps.WithBaseURL(cfg.BaseURL))
	}
	client, err := maps.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Google{client: client}, nil
}

// Geocode returns every candidate for address. An address with no match
// yields an empty slice and no error.
func (g *Google) Geocode(ctx context.Context, address string) ([]types.GeoResult, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return []types.GeoResult{}, nil
		}
		return nil, err
	}

	out := make([]types.GeoResult, 0, len(results))
	for _, r := range results {
		out = append(out, types.GeoResult{
			Latitude:         r.Geometry.Location.Lat,
			Longitude:        r.Geometry.Location.Lng,
			FormattedAddress: r.FormattedAddress,
		})
	}
	return out, nil
}
