// Package store persists normalized placemark records and answers the
// spatial, folder, and timeline queries. Two backends: Postgres/PostGIS for
// production, SQLite with in-process spatial evaluation for local use.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geomark/internal/config"
	"github.com/sells-group/geomark/internal/db"
	"github.com/sells-group/geomark/internal/feature"
)

// Store is the persistence interface for placemark records.
type Store interface {
	// Import upserts styles, then writes all features and their extended
	// attributes in a single all-or-nothing transaction. When truncate is
	// set, existing feature rows are removed first (styles never are).
	Import(ctx context.Context, styles []feature.Style, features []feature.Feature, truncate bool) error

	// List returns features in insertion order with pagination, optionally
	// filtered to those whose folder path contains the given folder name.
	List(ctx context.Context, limit, offset int, folder string) ([]feature.Feature, error)

	// Get returns one feature with its extended attributes.
	Get(ctx context.Context, id int) (*feature.Feature, error)

	// QueryBBox returns features whose geometry truly intersects the box,
	// in store-native order, capped at limit; limit <= 0 means no cap.
	QueryBBox(ctx context.Context, bbox feature.BBox, limit int) ([]feature.Feature, error)

	// Timeline derives events from features whose names start with a date,
	// sorted lexicographically by name.
	Timeline(ctx context.Context) ([]feature.TimelineEvent, error)

	// ListFolders returns the deduplicated, sorted set of folder names seen
	// at any depth of any feature's folder path.
	ListFolders(ctx context.Context) ([]string, error)

	// Stats summarizes the persisted data set.
	Stats(ctx context.Context) (*feature.Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
