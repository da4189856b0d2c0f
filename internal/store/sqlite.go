package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geomark/internal/feature"
	"github.com/sells-group/geomark/internal/geometry"
)

// SQLiteStore implements Store on modernc.org/sqlite. Geometries are stored
// as WKB blobs with bounds columns for prefiltering; exact bbox intersection
// is evaluated in-process with go-geom.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode and foreign keys (needed for the extended-data cascade).
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// single connection so the pragmas below hold for every statement
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS styles (
	id          TEXT PRIMARY KEY,
	icon_href   TEXT,
	icon_scale  REAL,
	label_scale REAL
);

CREATE TABLE IF NOT EXISTS placemarks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	description     TEXT,
	style_id        TEXT REFERENCES styles(id),
	folder_path     TEXT NOT NULL DEFAULT '[]',
	geometry_type   TEXT NOT NULL,
	geom            BLOB NOT NULL,
	min_lon         REAL NOT NULL,
	min_lat         REAL NOT NULL,
	max_lon         REAL NOT NULL,
	max_lat         REAL NOT NULL,
	coordinates_raw TEXT,
	gx_media_links  TEXT NOT NULL DEFAULT '[]',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS placemark_data (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	placemark_id INTEGER NOT NULL REFERENCES placemarks(id) ON DELETE CASCADE,
	key          TEXT,
	value        TEXT
);

CREATE INDEX IF NOT EXISTS idx_placemarks_bounds ON placemarks(min_lon, max_lon, min_lat, max_lat);
CREATE INDEX IF NOT EXISTS idx_placemarks_name ON placemarks(name);
CREATE INDEX IF NOT EXISTS idx_placemark_data_placemark ON placemark_data(placemark_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Import(ctx context.Context, styles []feature.Style, features []feature.Feature, truncate bool) error {
	if err := s.upsertStyles(ctx, styles); err != nil {
		return err
	}

	known, err := s.styleIDs(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin import tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if truncate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM placemarks`); err != nil {
			return eris.Wrap(err, "sqlite: truncate placemarks")
		}
	}

	for i, f := range features {
		g, err := geometry.DecodeWKT(f.WKT)
		if err != nil {
			return eris.Wrapf(err, "sqlite: placemark %d (%s)", i, f.Name)
		}
		wkb, err := geometry.EncodeWKB(g)
		if err != nil {
			return eris.Wrapf(err, "sqlite: placemark %d (%s)", i, f.Name)
		}
		bounds := g.Bounds()

		folderJSON, err := json.Marshal(emptyIfNil(f.FolderPath))
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal folder path")
		}
		mediaJSON, err := json.Marshal(emptyIfNil(f.MediaLinks))
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal media links")
		}

		var styleID any
		if resolved := resolveStyle(f.StyleID, known); resolved != nil {
			styleID = *resolved
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO placemarks
			(name, description, style_id, folder_path, geometry_type, geom,
			 min_lon, min_lat, max_lon, max_lat, coordinates_raw, gx_media_links, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.Name, f.Description, styleID, string(folderJSON), f.GeometryType, wkb,
			bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1),
			f.CoordinatesRaw, string(mediaJSON), time.Now().UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert placemark %d (%s)", i, f.Name)
		}

		placemarkID, err := res.LastInsertId()
		if err != nil {
			return eris.Wrap(err, "sqlite: last insert id")
		}

		for _, kv := range f.ExtendedData {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO placemark_data (placemark_id, key, value) VALUES (?, ?, ?)`,
				placemarkID, kv.Key, kv.Value,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert extended data for placemark %d", placemarkID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit import tx")
	}

	zap.L().Info("import committed",
		zap.Int("styles", len(styles)),
		zap.Int("placemarks", len(features)),
		zap.Bool("truncate", truncate),
	)
	return nil
}

func (s *SQLiteStore) upsertStyles(ctx context.Context, styles []feature.Style) error {
	if len(styles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin style tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, st := range styles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO styles (id, icon_href, icon_scale, label_scale)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				icon_href = excluded.icon_href,
				icon_scale = excluded.icon_scale,
				label_scale = excluded.label_scale`,
			st.ID, st.IconHref, st.IconScale, st.LabelScale,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert style %s", st.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit style tx")
}

func (s *SQLiteStore) styleIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM styles`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load style ids")
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan style id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate style ids")
}

const sqlitePlacemarkColumns = `id, name, description, style_id, folder_path, geometry_type,
	geom, coordinates_raw, gx_media_links, created_at`

func (s *SQLiteStore) List(ctx context.Context, limit, offset int, folder string) ([]feature.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlitePlacemarkColumns+`
		FROM placemarks
		WHERE (?1 = '' OR EXISTS (
			SELECT 1 FROM json_each(placemarks.folder_path) WHERE json_each.value = ?1
		))
		ORDER BY id
		LIMIT ?2 OFFSET ?3`,
		folder, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list placemarks")
	}
	defer rows.Close()

	return s.scanFeatures(rows)
}

func (s *SQLiteStore) Get(ctx context.Context, id int) (*feature.Feature, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqlitePlacemarkColumns+`
		FROM placemarks WHERE id = ?`,
		id,
	)

	f, err := scanFeatureRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get placemark %d", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM placemark_data WHERE placemark_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get extended data")
	}
	defer rows.Close()

	for rows.Next() {
		var kv feature.KVPair
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan extended data")
		}
		f.ExtendedData = append(f.ExtendedData, kv)
	}
	return f, eris.Wrap(rows.Err(), "sqlite: iterate extended data")
}

// QueryBBox prefilters on the stored bounds columns, then confirms true
// intersection against the decoded geometry.
func (s *SQLiteStore) QueryBBox(ctx context.Context, bbox feature.BBox, limit int) ([]feature.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlitePlacemarkColumns+`
		FROM placemarks
		WHERE max_lon >= ? AND min_lon <= ? AND max_lat >= ? AND min_lat <= ?
		ORDER BY id`,
		bbox.MinLon, bbox.MaxLon, bbox.MinLat, bbox.MaxLat,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: bbox query")
	}
	defer rows.Close()

	var out []feature.Feature
	for rows.Next() {
		f, g, err := scanFeatureGeom(rows)
		if err != nil {
			return nil, err
		}
		if !geometry.BBoxIntersects(g, bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat) {
			continue
		}
		out = append(out, *f)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate bbox rows")
}

func (s *SQLiteStore) Timeline(ctx context.Context) ([]feature.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlitePlacemarkColumns+`
		FROM placemarks
		ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: timeline query")
	}
	defer rows.Close()

	var events []feature.TimelineEvent
	for rows.Next() {
		f, _, err := scanFeatureGeom(rows)
		if err != nil {
			return nil, err
		}
		if !feature.HasDatePrefix(f.Name) {
			continue
		}
		events = append(events, feature.DeriveEvent(*f))
	}
	return events, eris.Wrap(rows.Err(), "sqlite: iterate timeline rows")
}

func (s *SQLiteStore) ListFolders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT folder_path FROM placemarks`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list folders")
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var pathJSON string
		if err := rows.Scan(&pathJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan folder path")
		}
		var path []string
		if err := json.Unmarshal([]byte(pathJSON), &path); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal folder path")
		}
		for _, folder := range path {
			seen[folder] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate folder paths")
	}

	folders := make([]string, 0, len(seen))
	for folder := range seen {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*feature.Stats, error) {
	stats := &feature.Stats{
		GeometryTypes: make(map[string]int),
		TopFolders:    make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM placemarks`).Scan(&stats.TotalPlacemarks); err != nil {
		return nil, eris.Wrap(err, "sqlite: count placemarks")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM styles`).Scan(&stats.TotalStyles); err != nil {
		return nil, eris.Wrap(err, "sqlite: count styles")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT geometry_type, COUNT(*) FROM placemarks GROUP BY geometry_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: geometry type counts")
	}
	defer rows.Close()
	for rows.Next() {
		var gtype string
		var count int
		if err := rows.Scan(&gtype, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geometry type count")
		}
		stats.GeometryTypes[gtype] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate geometry type counts")
	}

	frows, err := s.db.QueryContext(ctx, `
		SELECT value, COUNT(*) FROM placemarks, json_each(placemarks.folder_path)
		GROUP BY value ORDER BY COUNT(*) DESC LIMIT 10`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top folders")
	}
	defer frows.Close()
	for frows.Next() {
		var folder string
		var count int
		if err := frows.Scan(&folder, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top folder")
		}
		stats.TopFolders[folder] = count
	}
	return stats, eris.Wrap(frows.Err(), "sqlite: iterate top folders")
}

// helpers

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

type sqliteScannable interface {
	Scan(dest ...any) error
}

// scanFeatureGeom scans one placemark row, decoding the WKB blob into both
// the GeoJSON/WKT text the API serves and the geometry used for spatial
// checks. Scan errors (including sql.ErrNoRows) are returned unwrapped so
// callers can distinguish a missing row.
func scanFeatureGeom(row sqliteScannable) (*feature.Feature, geom.T, error) {
	var (
		f          feature.Feature
		desc       sql.NullString
		styleID    sql.NullString
		folderJSON string
		wkbBytes   []byte
		coordsRaw  sql.NullString
		mediaJSON  string
	)
	if err := row.Scan(
		&f.ID, &f.Name, &desc, &styleID, &folderJSON, &f.GeometryType,
		&wkbBytes, &coordsRaw, &mediaJSON, &f.CreatedAt,
	); err != nil {
		return nil, nil, err
	}

	f.Description = desc.String
	if styleID.Valid {
		f.StyleID = &styleID.String
	}
	f.CoordinatesRaw = coordsRaw.String

	if err := json.Unmarshal([]byte(folderJSON), &f.FolderPath); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal folder path")
	}
	if err := json.Unmarshal([]byte(mediaJSON), &f.MediaLinks); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal media links")
	}

	g, err := geometry.DecodeWKB(wkbBytes)
	if err != nil {
		return nil, nil, err
	}
	if f.Geometry, err = geometry.EncodeGeoJSON(g); err != nil {
		return nil, nil, err
	}
	if f.WKT, err = geometry.EncodeWKT(g); err != nil {
		return nil, nil, err
	}
	return &f, g, nil
}

func scanFeatureRow(row *sql.Row) (*feature.Feature, error) {
	f, _, err := scanFeatureGeom(row)
	return f, err
}

func (s *SQLiteStore) scanFeatures(rows *sql.Rows) ([]feature.Feature, error) {
	var out []feature.Feature
	for rows.Next() {
		f, _, err := scanFeatureGeom(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan placemark")
		}
		out = append(out, *f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate placemarks")
}
