package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/db"
	"github.com/sells-group/geomark/internal/feature"
)

// PostgresStore implements Store on Postgres with PostGIS.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS styles (
	id          TEXT PRIMARY KEY,
	icon_href   TEXT,
	icon_scale  DOUBLE PRECISION,
	label_scale DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS placemarks (
	id              SERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT,
	style_id        TEXT REFERENCES styles(id),
	folder_path     TEXT[],
	geometry_type   TEXT NOT NULL,
	geom            GEOMETRY(GEOMETRY, 4326) NOT NULL,
	coordinates_raw TEXT,
	gx_media_links  TEXT[],
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS placemark_data (
	id           SERIAL PRIMARY KEY,
	placemark_id INTEGER REFERENCES placemarks(id) ON DELETE CASCADE,
	key          TEXT,
	value        TEXT
);

CREATE INDEX IF NOT EXISTS placemarks_geom_gix ON placemarks USING GIST (geom);
CREATE INDEX IF NOT EXISTS placemarks_folder_gin ON placemarks USING GIN (folder_path);
CREATE INDEX IF NOT EXISTS placemark_data_placemark_idx ON placemark_data (placemark_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Import runs the two import phases: style upserts, then one transaction
// covering the optional truncate and every feature + extended-attribute
// insert. A failure anywhere in phase 2 rolls the whole transaction back.
func (s *PostgresStore) Import(ctx context.Context, styles []feature.Style, features []feature.Feature, truncate bool) error {
	if err := s.upsertStyles(ctx, styles); err != nil {
		return err
	}

	known, err := s.styleIDs(ctx)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin import tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE placemark_data, placemarks RESTART IDENTITY CASCADE`); err != nil {
			return eris.Wrap(err, "postgres: truncate placemarks")
		}
	}

	for i, f := range features {
		styleID := resolveStyle(f.StyleID, known)

		var placemarkID int
		err := tx.QueryRow(ctx,
			`INSERT INTO placemarks
			 (name, description, style_id, folder_path, geometry_type, geom, coordinates_raw, gx_media_links)
			 VALUES ($1, $2, $3, $4, $5, ST_GeomFromText($6, 4326), $7, $8)
			 RETURNING id`,
			f.Name, f.Description, styleID, f.FolderPath, f.GeometryType,
			f.WKT, f.CoordinatesRaw, f.MediaLinks,
		).Scan(&placemarkID)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert placemark %d (%s)", i, f.Name)
		}

		for _, kv := range f.ExtendedData {
			if _, err := tx.Exec(ctx,
				`INSERT INTO placemark_data (placemark_id, key, value) VALUES ($1, $2, $3)`,
				placemarkID, kv.Key, kv.Value,
			); err != nil {
				return eris.Wrapf(err, "postgres: insert extended data for placemark %d", placemarkID)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit import tx")
	}

	zap.L().Info("import committed",
		zap.Int("styles", len(styles)),
		zap.Int("placemarks", len(features)),
		zap.Bool("truncate", truncate),
	)
	return nil
}

// upsertStyles writes style records by token identity; re-imports update
// fields instead of erroring. Styles accumulate across runs.
func (s *PostgresStore) upsertStyles(ctx context.Context, styles []feature.Style) error {
	if len(styles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range styles {
		batch.Queue(
			`INSERT INTO styles (id, icon_href, icon_scale, label_scale)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET
			   icon_href = EXCLUDED.icon_href,
			   icon_scale = EXCLUDED.icon_scale,
			   label_scale = EXCLUDED.label_scale`,
			st.ID, st.IconHref, st.IconScale, st.LabelScale,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close() //nolint:errcheck

	for range styles {
		if _, err := br.Exec(); err != nil {
			return eris.Wrap(err, "postgres: upsert style")
		}
	}
	return nil
}

// styleIDs loads the set of style tokens that exist after phase 1; feature
// style references are resolved against this set, not per-row lookups.
func (s *PostgresStore) styleIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM styles`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load style ids")
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan style id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate style ids")
}

// resolveStyle nulls out references to styles that were never imported.
// Dangling references are dropped silently, not treated as errors.
func resolveStyle(ref *string, known map[string]bool) *string {
	if ref == nil || !known[*ref] {
		return nil
	}
	return ref
}

const placemarkColumns = `id, name, description, style_id, folder_path, geometry_type,
	ST_AsGeoJSON(geom) AS geometry, coordinates_raw, gx_media_links, created_at`

func (s *PostgresStore) List(ctx context.Context, limit, offset int, folder string) ([]feature.Feature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+placemarkColumns+`
		FROM placemarks
		WHERE ($3 = '' OR $3 = ANY(folder_path))
		ORDER BY id
		LIMIT $1 OFFSET $2`,
		limit, offset, folder,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list placemarks")
	}
	defer rows.Close()

	return scanFeatures(rows)
}

func (s *PostgresStore) Get(ctx context.Context, id int) (*feature.Feature, error) {
	var f feature.Feature
	err := s.pool.QueryRow(ctx, `
		SELECT `+placemarkColumns+`
		FROM placemarks
		WHERE id = $1`,
		id,
	).Scan(
		&f.ID, &f.Name, &f.Description, &f.StyleID, &f.FolderPath,
		&f.GeometryType, &f.Geometry, &f.CoordinatesRaw, &f.MediaLinks, &f.CreatedAt,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get placemark %d", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM placemark_data WHERE placemark_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get extended data")
	}
	defer rows.Close()

	for rows.Next() {
		var kv feature.KVPair
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, eris.Wrap(err, "postgres: scan extended data")
		}
		f.ExtendedData = append(f.ExtendedData, kv)
	}
	return &f, eris.Wrap(rows.Err(), "postgres: iterate extended data")
}

// QueryBBox uses ST_Intersects against the stored shape, not a bounds
// overlap, so features merely near the box are excluded. A non-positive
// limit means no cap (LIMIT NULL).
func (s *PostgresStore) QueryBBox(ctx context.Context, bbox feature.BBox, limit int) ([]feature.Feature, error) {
	var rowCap any
	if limit > 0 {
		rowCap = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+placemarkColumns+`
		FROM placemarks
		WHERE ST_Intersects(geom, ST_MakeEnvelope($1, $2, $3, $4, 4326))
		LIMIT $5`,
		bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat, rowCap,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: bbox query")
	}
	defer rows.Close()

	return scanFeatures(rows)
}

// Timeline selects features whose names start with an M/D/YYYY prefix,
// ordered lexicographically by name (inherited ordering; see handler docs).
func (s *PostgresStore) Timeline(ctx context.Context) ([]feature.TimelineEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, geometry_type, ST_AsGeoJSON(geom) AS geometry,
		       gx_media_links, folder_path
		FROM placemarks
		WHERE name ~ '^\d{1,2}/\d{1,2}/\d{4}'
		ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: timeline query")
	}
	defer rows.Close()

	var events []feature.TimelineEvent
	for rows.Next() {
		var f feature.Feature
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Description, &f.GeometryType, &f.Geometry,
			&f.MediaLinks, &f.FolderPath,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan timeline row")
		}
		events = append(events, feature.DeriveEvent(f))
	}
	return events, eris.Wrap(rows.Err(), "postgres: iterate timeline rows")
}

func (s *PostgresStore) ListFolders(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT unnest(folder_path) AS folder
		FROM placemarks
		WHERE array_length(folder_path, 1) > 0
		ORDER BY folder`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list folders")
	}
	defer rows.Close()

	var folders []string
	for rows.Next() {
		var folder string
		if err := rows.Scan(&folder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan folder")
		}
		folders = append(folders, folder)
	}
	return folders, eris.Wrap(rows.Err(), "postgres: iterate folders")
}

func (s *PostgresStore) Stats(ctx context.Context) (*feature.Stats, error) {
	stats := &feature.Stats{
		GeometryTypes: make(map[string]int),
		TopFolders:    make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM placemarks`).Scan(&stats.TotalPlacemarks); err != nil {
		return nil, eris.Wrap(err, "postgres: count placemarks")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM styles`).Scan(&stats.TotalStyles); err != nil {
		return nil, eris.Wrap(err, "postgres: count styles")
	}

	rows, err := s.pool.Query(ctx, `SELECT geometry_type, COUNT(*) FROM placemarks GROUP BY geometry_type`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: geometry type counts")
	}
	defer rows.Close()
	for rows.Next() {
		var gtype string
		var count int
		if err := rows.Scan(&gtype, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geometry type count")
		}
		stats.GeometryTypes[gtype] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate geometry type counts")
	}

	frows, err := s.pool.Query(ctx, `
		SELECT folder, COUNT(*) FROM (SELECT unnest(folder_path) AS folder FROM placemarks) f
		GROUP BY folder ORDER BY COUNT(*) DESC LIMIT 10`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top folders")
	}
	defer frows.Close()
	for frows.Next() {
		var folder string
		var count int
		if err := frows.Scan(&folder, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan top folder")
		}
		stats.TopFolders[folder] = count
	}
	return stats, eris.Wrap(frows.Err(), "postgres: iterate top folders")
}

func scanFeatures(rows pgx.Rows) ([]feature.Feature, error) {
	var out []feature.Feature
	for rows.Next() {
		var f feature.Feature
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Description, &f.StyleID, &f.FolderPath,
			&f.GeometryType, &f.Geometry, &f.CoordinatesRaw, &f.MediaLinks, &f.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan placemark")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate placemarks")
}
