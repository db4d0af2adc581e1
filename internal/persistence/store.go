// Package persistence stores hex and player records in SQLite and writes
// compressed world snapshots.
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gravitas-games/hexfront/internal/gamemap"
)

// Store wraps the SQLite database shared by all rooms.
type Store struct {
	db *sqlx.DB
}

// LeaderboardEntry is one row of the hex count ranking.
type LeaderboardEntry struct {
	Name          string `db:"name" json:"name"`
	Color         string `db:"color" json:"color"`
	TotalCaptures int    `db:"total_captures" json:"totalCaptures"`
	HexCount      int    `db:"hex_count" json:"hexCount"`
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return err
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS hexes (
		room TEXT NOT NULL,
		id TEXT NOT NULL,
		owner TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		terrain TEXT NOT NULL DEFAULT 'plain',
		resource_amount INTEGER NOT NULL DEFAULT 0,
		structure TEXT NOT NULL DEFAULT '',
		structure_hp INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (room, id)
	);

	CREATE TABLE IF NOT EXISTS players (
		room TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		total_captures INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (room, id)
	);

	CREATE INDEX IF NOT EXISTS idx_hexes_owner ON hexes(room, owner);
	`
	_, err := s.db.Exec(schema)
	return err
}

const (
	upsertHexSQL = `INSERT INTO hexes (room, id, owner, color, terrain, resource_amount, structure, structure_hp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room, id) DO UPDATE SET
			owner = excluded.owner,
			color = excluded.color,
			terrain = excluded.terrain,
			resource_amount = excluded.resource_amount,
			structure = excluded.structure,
			structure_hp = excluded.structure_hp`

	upsertPlayerSQL = `INSERT INTO players (room, id, name, color, total_captures)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room, id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			total_captures = excluded.total_captures`
)

// Apply upserts a batch of records for room in one transaction.
func (s *Store) Apply(ctx context.Context, room string, hexes []gamemap.HexRecord, players []gamemap.PlayerRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(hexes) > 0 {
		stmt, err := tx.PreparexContext(ctx, upsertHexSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, h := range hexes {
			if _, err := stmt.ExecContext(ctx, room, h.ID, h.Owner, h.Color, h.Terrain, h.ResourceAmount, h.Structure, h.StructureHP); err != nil {
				return fmt.Errorf("upsert hex %s: %w", h.ID, err)
			}
		}
	}
	if len(players) > 0 {
		stmt, err := tx.PreparexContext(ctx, upsertPlayerSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range players {
			if _, err := stmt.ExecContext(ctx, room, p.ID, p.Name, p.Color, p.TotalCaptures); err != nil {
				return fmt.Errorf("upsert player %s: %w", p.ID, err)
			}
		}
	}
	return tx.Commit()
}

// LoadHexes returns every stored hex of room.
func (s *Store) LoadHexes(ctx context.Context, room string) ([]gamemap.HexRecord, error) {
	var out []gamemap.HexRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, owner, color, terrain, resource_amount, structure, structure_hp FROM hexes WHERE room = ? ORDER BY rowid`, room)
	return out, err
}

// LoadPlayers returns every stored player of room.
func (s *Store) LoadPlayers(ctx context.Context, room string) ([]gamemap.PlayerRecord, error) {
	var out []gamemap.PlayerRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, color, total_captures FROM players WHERE room = ? ORDER BY id`, room)
	return out, err
}

// Counts returns the number of stored hexes and players across all rooms.
func (s *Store) Counts(ctx context.Context) (hexes, players int, err error) {
	if err = s.db.GetContext(ctx, &hexes, `SELECT COUNT(*) FROM hexes`); err != nil {
		return 0, 0, err
	}
	if err = s.db.GetContext(ctx, &players, `SELECT COUNT(*) FROM players`); err != nil {
		return 0, 0, err
	}
	return hexes, players, nil
}

// Leaderboard ranks the players of room by owned hex count.
func (s *Store) Leaderboard(ctx context.Context, room string, limit int) ([]LeaderboardEntry, error) {
	out := []LeaderboardEntry{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT p.name, p.color, p.total_captures, COUNT(h.id) AS hex_count
		FROM players p
		LEFT JOIN hexes h ON h.room = p.room AND h.owner = p.id
		WHERE p.room = ?
		GROUP BY p.id
		ORDER BY hex_count DESC, p.total_captures DESC, p.name
		LIMIT ?`, room, limit)
	return out, err
}
