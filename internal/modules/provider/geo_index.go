package provider

import (
	"context"

	"github.com/redis/go-redis/v9"

	"roadassist/internal/types"
)

const providerGeoKey = "providers:geo"

// GeoIndex tracks provider positions in Redis GEO for radius lookups.
type GeoIndex struct {
	redis *redis.Client
}

func NewGeoIndex(client *redis.Client) *GeoIndex {
	return &GeoIndex{redis: client}
}

func (g *GeoIndex) Add(ctx context.Context, id types.ID, p types.Point) error {
	return g.redis.GeoAdd(ctx, providerGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, id types.ID) error {
	return g.redis.ZRem(ctx, providerGeoKey, string(id)).Err()
}

// Nearby returns provider ids within radiusKm of p, nearest first.
func (g *GeoIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := g.redis.GeoSearch(ctx, providerGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
