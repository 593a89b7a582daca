package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Pure-Go sqlite driver.
	_ "modernc.org/sqlite"
)

// TimestampLayout is the formatted timestamp stored with every record.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when no records have been stored yet.
var ErrNotFound = errors.New("record not found")

// Record is one persisted derived event, enriched best-effort with the
// anomaly verdict and a reverse-geocoded address.
type Record struct {
	// ID is the insertion sequence number.
	ID int64 `json:"id"`
	// DeviceID identifies the reporting device.
	DeviceID string `json:"device"`
	// Lat and Lon are the coordinates in degrees.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// Timestamp is the local event time formatted with TimestampLayout.
	Timestamp string `json:"timestamp"`
	// Event is enter, leave, or empty for a baseline observation.
	Event string `json:"event,omitempty"`
	// Zone is the geofence the event refers to, if any.
	Zone string `json:"zone,omitempty"`
	// Anomaly is the combined verdict: normal, anomalous or unknown.
	Anomaly string `json:"anomaly"`
	// Address is the reverse-geocoded location, empty when unavailable.
	Address string `json:"address,omitempty"`
}

// Repository provides append-only storage of derived events in sqlite.
type Repository struct {
	db *sql.DB
}

// Open initializes the sqlite database at the provided path and prepares
// the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// WAL keeps readers from blocking the ingestion path.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			timestamp TEXT NOT NULL,
			event TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL DEFAULT '',
			anomaly TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT ''
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create appends one record and fills in its insertion sequence number.
func (r *Repository) Create(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO locations (device, lat, lon, timestamp, event, zone, anomaly, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		record.DeviceID,
		record.Lat,
		record.Lon,
		record.Timestamp,
		record.Event,
		record.Zone,
		record.Anomaly,
		record.Address,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	record.ID = id

	return nil
}

// Latest returns the most recently stored record across all devices,
// ordered by insertion sequence, not by event timestamp.
func (r *Repository) Latest(ctx context.Context) (*Record, error) {
	query := `
		SELECT id, device, lat, lon, timestamp, event, zone, anomaly, address
		FROM locations
		ORDER BY id DESC
		LIMIT 1`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("query latest record: %w", err)
	}

	return record, nil
}

// All returns every stored record in insertion order.
func (r *Repository) All(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, device, lat, lon, timestamp, event, zone, anomaly, address
		FROM locations
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// ByWeekday returns records whose local timestamp falls on the given
// weekday (Monday=0 through Sunday=6), in insertion order.
func (r *Repository) ByWeekday(ctx context.Context, weekday int) ([]Record, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record

	for _, record := range all {
		ts, err := time.Parse(TimestampLayout, record.Timestamp)
		if err != nil {
			// Legacy rows with unparseable timestamps are skipped.
			continue
		}

		if (int(ts.Weekday())+6)%7 == weekday {
			records = append(records, record)
		}
	}

	return records, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one record from a row.
func scanRecord(row rowScanner) (*Record, error) {
	var record Record

	err := row.Scan(
		&record.ID,
		&record.DeviceID,
		&record.Lat,
		&record.Lon,
		&record.Timestamp,
		&record.Event,
		&record.Zone,
		&record.Anomaly,
		&record.Address,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
