package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"roadassist/internal/types"
)

// ErrGeocodingFailed means the address could not be resolved. Callers should
// treat it as recoverable: ask the user for coordinates or let them retry.
var ErrGeocodingFailed = errors.New("geocoding failed")

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	client  *maps.Client
	timeout time.Duration
}

func NewGoogleGeocoder(apiKey string, timeout time.Duration) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleGeocoder{client: client, timeout: timeout}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (types.Point, error) {
	if address == "" {
		return types.Point{}, ErrGeocodingFailed
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: %v", ErrGeocodingFailed, err)
	}
	if len(results) == 0 {
		return types.Point{}, ErrGeocodingFailed
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
