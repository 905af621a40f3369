package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gridcap/icafetch/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feeder_id TEXT NOT NULL,
		county TEXT,
		status TEXT NOT NULL,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_feeder ON downloads(feeder_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
	CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertDownload records one download attempt
func (db *DB) InsertDownload(rec *models.DownloadRecord) error {
	query := `
	INSERT INTO downloads (feeder_id, county, status, bytes, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.conn.Exec(query, rec.FeederID, rec.County, rec.Status, rec.Bytes, rec.Error, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting download record: %w", err)
	}

	return nil
}

// LatestStatus returns the most recent status per feeder
func (db *DB) LatestStatus() (map[string]string, error) {
	query := `
	SELECT feeder_id, status
	FROM downloads
	WHERE id IN (SELECT MAX(id) FROM downloads GROUP BY feeder_id)
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying latest status: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]string)
	for rows.Next() {
		var feederID, status string
		if err := rows.Scan(&feederID, &status); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		statuses[feederID] = status
	}

	return statuses, rows.Err()
}

// Counts returns the number of feeders per latest status
func (db *DB) Counts() (map[string]int, error) {
	statuses, err := db.LatestStatus()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, status := range statuses {
		counts[status]++
	}
	return counts, nil
}

// RecentFailures returns the latest failed attempts, newest first
func (db *DB) RecentFailures(limit int) ([]models.DownloadRecord, error) {
	query := `
	SELECT id, feeder_id, county, status, bytes, error, created_at
	FROM downloads
	WHERE status = ?
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := db.conn.Query(query, models.StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListDownloads returns every attempt for a feeder, newest first
func (db *DB) ListDownloads(feederID string) ([]models.DownloadRecord, error) {
	query := `
	SELECT id, feeder_id, county, status, bytes, error, created_at
	FROM downloads
	WHERE feeder_id = ?
	ORDER BY id DESC
	`

	rows, err := db.conn.Query(query, feederID)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]models.DownloadRecord, error) {
	var results []models.DownloadRecord
	for rows.Next() {
		var rec models.DownloadRecord
		var county, errMsg sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.FeederID, &county, &rec.Status, &rec.Bytes, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec.County = county.String
		rec.Error = errMsg.String

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t

		results = append(results, rec)
	}

	return results, rows.Err()
}
