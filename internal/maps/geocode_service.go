package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// ErrNoMatch means the geocoder found nothing for the query.
var ErrNoMatch = errors.New("no geocoding match")

// Location is a resolved destination.
type Location struct {
	FormattedAddress string
	PlaceID          string
	Lat              float64
	Lng              float64
}

// GeocodeService handles interactions with the Google Maps Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
// Extra options (e.g. maps.WithBaseURL) are applied after the key.
func NewGeocodeService(apiKey string, opts ...maps.ClientOption) (*GeocodeService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Locate returns the best match for a free-text destination such as "Paris, France".
func (s *GeocodeService) Locate(ctx context.Context, destination string) (Location, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return Location{}, ErrNoMatch
	}

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  destination,
		Language: "en",
	})
	if err != nil {
		return Location{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return Location{}, ErrNoMatch
	}

	r := results[0]
	return Location{
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
	}, nil
}
