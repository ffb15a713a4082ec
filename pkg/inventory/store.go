// Package inventory keeps a local history of the boards and targets pyocd
// reported, in a SQLite database.
package inventory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/probe"
	_ "github.com/mattn/go-sqlite3"
)

// Snapshot kinds.
const (
	KindBoards  = "boards"
	KindTargets = "targets"
)

// ErrNoSnapshot is returned when nothing of the requested kind was saved yet.
var ErrNoSnapshot = perrors.New(perrors.KindNotFound, "no snapshot recorded")

// Snapshot describes one saved listing.
type Snapshot struct {
	ID      int64     `json:"id"`
	Kind    string    `json:"kind"`
	TakenAt time.Time `json:"taken_at"`
	Count   int       `json:"count"`
}

// Store persists listings. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_kind ON snapshots(kind, id);

	CREATE TABLE IF NOT EXISTS boards (
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		board_name TEXT NOT NULL,
		vendor_name TEXT NOT NULL,
		product_name TEXT NOT NULL,
		target TEXT NOT NULL,
		info TEXT NOT NULL,
		unique_id TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	);

	CREATE TABLE IF NOT EXISTS targets (
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		vendor TEXT NOT NULL,
		part_number TEXT NOT NULL,
		part_families TEXT NOT NULL,
		svd_path TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveBoards records boards as a new snapshot, keeping their order.
func (s *Store) SaveBoards(boards []probe.Board) (Snapshot, error) {
	return s.save(KindBoards, len(boards), func(tx *sql.Tx, id int64) error {
		stmt, err := tx.Prepare(`
			INSERT INTO boards (snapshot_id, position, board_name, vendor_name, product_name, target, info, unique_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, b := range boards {
			if _, err := stmt.Exec(id, i, b.Name, b.VendorName, b.ProductName, b.TargetName, b.Description, b.UniqueID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTargets records targets as a new snapshot, keeping their order.
func (s *Store) SaveTargets(targets []probe.Target) (Snapshot, error) {
	return s.save(KindTargets, len(targets), func(tx *sql.Tx, id int64) error {
		stmt, err := tx.Prepare(`
			INSERT INTO targets (snapshot_id, position, name, vendor, part_number, part_families, svd_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range targets {
			families, err := json.Marshal(nonNil(t.Families))
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(id, i, t.Name, t.Vendor, t.PartNumber, string(families), t.SVDPath); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) save(kind string, count int, insert func(tx *sql.Tx, id int64) error) (Snapshot, error) {
	snap := Snapshot{Kind: kind, TakenAt: s.now().UTC(), Count: count}

	tx, err := s.db.Begin()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO snapshots (kind, taken_at, count) VALUES (?, ?, ?)`, kind, snap.TakenAt, count)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to record %s snapshot: %w", kind, err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return Snapshot{}, err
	}
	if err := insert(tx, snap.ID); err != nil {
		return Snapshot{}, fmt.Errorf("failed to record %s: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to commit %s snapshot: %w", kind, err)
	}
	return snap, nil
}

// Snapshots lists the most recent snapshots of kind, newest first.
// limit must be at least 1.
func (s *Store) Snapshots(kind string, limit int) ([]Snapshot, error) {
	if limit < 1 {
		return nil, perrors.Newf(perrors.KindConfig, "snapshot limit must be at least 1, got %d", limit)
	}
	rows, err := s.db.Query(`
		SELECT id, kind, taken_at, count
		FROM snapshots
		WHERE kind = ?
		ORDER BY id DESC
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Kind, &snap.TakenAt, &snap.Count); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *Store) latest(kind string) (Snapshot, error) {
	snaps, err := s.Snapshots(kind, 1)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	return snaps[0], nil
}

// LatestBoards returns the newest boards snapshot and its records.
func (s *Store) LatestBoards() (Snapshot, []probe.Board, error) {
	snap, err := s.latest(KindBoards)
	if err != nil {
		return Snapshot{}, nil, err
	}

	rows, err := s.db.Query(`
		SELECT board_name, vendor_name, product_name, target, info, unique_id
		FROM boards
		WHERE snapshot_id = ?
		ORDER BY position
	`, snap.ID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	defer rows.Close()

	boards := make([]probe.Board, 0, snap.Count)
	for rows.Next() {
		var b probe.Board
		if err := rows.Scan(&b.Name, &b.VendorName, &b.ProductName, &b.TargetName, &b.Description, &b.UniqueID); err != nil {
			return Snapshot{}, nil, err
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, nil, err
	}
	return snap, boards, nil
}

// LatestTargets returns the newest targets snapshot and its records.
func (s *Store) LatestTargets() (Snapshot, []probe.Target, error) {
	snap, err := s.latest(KindTargets)
	if err != nil {
		return Snapshot{}, nil, err
	}

	rows, err := s.db.Query(`
		SELECT name, vendor, part_number, part_families, svd_path
		FROM targets
		WHERE snapshot_id = ?
		ORDER BY position
	`, snap.ID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	defer rows.Close()

	targets := make([]probe.Target, 0, snap.Count)
	for rows.Next() {
		var t probe.Target
		var families string
		if err := rows.Scan(&t.Name, &t.Vendor, &t.PartNumber, &families, &t.SVDPath); err != nil {
			return Snapshot{}, nil, err
		}
		if err := json.Unmarshal([]byte(families), &t.Families); err != nil {
			return Snapshot{}, nil, fmt.Errorf("corrupt part_families for %s: %w", t.Name, err)
		}
		t.Families = nonNil(t.Families)
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, nil, err
	}
	return snap, targets, nil
}

// Prune deletes all but the newest keep snapshots of kind.
func (s *Store) Prune(kind string, keep int) (int64, error) {
	if keep < 0 {
		return 0, perrors.Newf(perrors.KindConfig, "snapshots to keep must not be negative, got %d", keep)
	}
	res, err := s.db.Exec(`
		DELETE FROM snapshots
		WHERE kind = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE kind = ? ORDER BY id DESC LIMIT ?
		)
	`, kind, kind, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
