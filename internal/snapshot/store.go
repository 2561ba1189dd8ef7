// Package snapshot persists growth pass results per (chapter, scene) in
// SQLite, so elaboration runs can be inspected, compared, and resumed
// across process restarts.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chapter TEXT NOT NULL,
	scene TEXT NOT NULL,
	record TEXT NOT NULL,
	quality REAL NOT NULL,
	health REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_scene
	ON snapshots(chapter, scene, created_at);
`

// Snapshot is one persisted growth pass result.
type Snapshot struct {
	Chapter        string    `json:"chapter"`
	Scene          string    `json:"scene"`
	SeedText       string    `json:"seed_text"`
	Expansions     []string  `json:"expansions"`
	FinalPhase     string    `json:"final_phase"`
	AverageQuality float64   `json:"average_quality"`
	HealthScore    float64   `json:"health_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is a SQLite-backed snapshot store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at path.
func New(path string) (*Store, error) {
	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends a snapshot. CreatedAt is stamped here if unset.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Chapter == "" || snap.Scene == "" {
		return fmt.Errorf("snapshot requires chapter and scene")
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	record, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (chapter, scene, record, quality, health, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Chapter, snap.Scene, string(record),
		snap.AverageQuality, snap.HealthScore, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a scene, or sql.ErrNoRows
// wrapped when none exists.
func (s *Store) Latest(ctx context.Context, chapter, scene string) (*Snapshot, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM snapshots
		WHERE chapter = ? AND scene = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		chapter, scene).Scan(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s/%s: %w", chapter, scene, err)
	}
	return unmarshalSnapshot(record)
}

// History returns up to limit snapshots for a scene, newest first.
func (s *Store) History(ctx context.Context, chapter, scene string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM snapshots
		WHERE chapter = ? AND scene = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		chapter, scene, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snap, err := unmarshalSnapshot(record)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Scenes lists the distinct (chapter, scene) pairs present, in chapter
// then scene order.
func (s *Store) Scenes(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT chapter, scene FROM snapshots
		ORDER BY chapter, scene`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	var scenes [][2]string
	for rows.Next() {
		var chapter, scene string
		if err := rows.Scan(&chapter, &scene); err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		scenes = append(scenes, [2]string{chapter, scene})
	}
	return scenes, rows.Err()
}

func unmarshalSnapshot(record string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(record), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot record: %w", err)
	}
	return &snap, nil
}
