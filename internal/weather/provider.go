package weather

import (
	"context"
)

// Provider abstracts a current-weather data source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, pos Position) (Snapshot, error)
}

// Store is the contract the snapshot cache must satisfy. Get returns an
// error for missing or expired entries.
type Store interface {
	SaveSnapshot(key string, snapshot Snapshot)
	GetSnapshot(key string) (Snapshot, error)
	Prune() int
}
