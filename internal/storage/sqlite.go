// Package storage provides SQLite-based persistence for match results,
// checkpoint digests and desync reports.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/replay"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// MatchRecord is one finished match.
type MatchRecord struct {
	ID          int64
	MatchID     string
	Mode        string
	Seed        uint32
	LocalPlayer int
	Opponent    string
	Winner      int // -1 when nobody won
	EndReason   string
	Ticks       uint32
	Duration    int // seconds
	CreatedAt   time.Time
}

// Won reports whether the local player won.
func (r MatchRecord) Won() bool {
	return r.Winner >= 0 && r.Winner == r.LocalPlayer
}

// DesyncRecord is a stored divergence report. Dumps are returned
// decompressed.
type DesyncRecord struct {
	ID           int64
	MatchID      string
	Tick         uint32
	LocalDigest  string
	RemoteDigest string
	LocalDump    []byte
	RemoteDump   []byte
	CreatedAt    time.Time
}

// Stats aggregates the match history.
type Stats struct {
	Matches    int
	Wins       int
	Losses     int
	Draws      int
	Aborted    int
	Ticks      int64
	LastPlayed time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			seed INTEGER NOT NULL,
			local_player INTEGER NOT NULL,
			opponent TEXT NOT NULL DEFAULT '',
			winner INTEGER NOT NULL DEFAULT -1,
			end_reason TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at);

		CREATE TABLE IF NOT EXISTS checkpoints (
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (match_id, tick)
		);

		CREATE TABLE IF NOT EXISTS desyncs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			local_digest TEXT NOT NULL,
			remote_digest TEXT NOT NULL,
			local_dump BLOB,
			remote_dump BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_desyncs_match ON desyncs(match_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime handles both time.Time and the driver's string form.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveMatch records a finished match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(r MatchRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO matches
		 (match_id, mode, seed, local_player, opponent, winner, end_reason, ticks, duration_secs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, r.Mode, r.Seed, r.LocalPlayer, r.Opponent, r.Winner, r.EndReason, r.Ticks, r.Duration,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

const matchColumns = `id, match_id, mode, seed, local_player, opponent, winner, end_reason, ticks, duration_secs, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (MatchRecord, error) {
	var r MatchRecord
	var createdAt any
	err := row.Scan(&r.ID, &r.MatchID, &r.Mode, &r.Seed, &r.LocalPlayer, &r.Opponent,
		&r.Winner, &r.EndReason, &r.Ticks, &r.Duration, &createdAt)
	r.CreatedAt = parseTime(createdAt)
	return r, err
}

// MatchByID retrieves a match by its match ID. Returns nil if absent.
func (s *Store) MatchByID(matchID string) (*MatchRecord, error) {
	r, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, matchID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return &r, nil
}

// RecentMatches retrieves the most recent matches, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// SaveCheckpoint stores the digest of a match at a tick. Saving the same
// tick twice keeps the latest digest.
func (s *Store) SaveCheckpoint(matchID string, cp replay.Checkpoint) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO checkpoints (match_id, tick, digest) VALUES (?, ?, ?)`,
		matchID, cp.Tick, cp.Digest.String(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save checkpoint: %w", err)
	}
	return nil
}

// Checkpoints returns the stored digests of a match in tick order.
func (s *Store) Checkpoints(matchID string) ([]replay.Checkpoint, error) {
	rows, err := s.db.Query(
		`SELECT tick, digest FROM checkpoints WHERE match_id = ? ORDER BY tick`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []replay.Checkpoint
	for rows.Next() {
		var cp replay.Checkpoint
		var digest string
		if err := rows.Scan(&cp.Tick, &digest); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if cp.Digest, err = parseDigest(digest); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

func parseDigest(s string) (sim.Digest, error) {
	var d sim.Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(d) {
		return d, fmt.Errorf("storage: malformed digest %q", s)
	}
	copy(d[:], b)
	return d, nil
}

// SaveDesync stores a divergence report. The local dump is compressed like
// the one on the wire; the remote dump arrives compressed already.
func (s *Store) SaveDesync(matchID string, report netcode.DesyncReport) error {
	var local []byte
	if len(report.LocalDump) > 0 {
		local = protocol.CompressDump(report.LocalDump)
	}
	_, err := s.db.Exec(
		`INSERT INTO desyncs (match_id, tick, local_digest, remote_digest, local_dump, remote_dump)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		matchID, report.Tick, report.Local.String(), report.Remote.String(), local, report.RemoteDump,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save desync: %w", err)
	}
	return nil
}

// Desyncs returns the divergence reports of a match.
func (s *Store) Desyncs(matchID string) ([]DesyncRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, match_id, tick, local_digest, remote_digest, local_dump, remote_dump, created_at
		 FROM desyncs WHERE match_id = ? ORDER BY id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query desyncs: %w", err)
	}
	defer rows.Close()

	var out []DesyncRecord
	for rows.Next() {
		var r DesyncRecord
		var local, remote []byte
		var createdAt any
		if err := rows.Scan(&r.ID, &r.MatchID, &r.Tick, &r.LocalDigest, &r.RemoteDigest, &local, &remote, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		if r.LocalDump, err = decompress(local); err != nil {
			return nil, err
		}
		if r.RemoteDump, err = decompress(remote); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

func decompress(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	out, err := protocol.DecompressDump(b)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return out, nil
}

// SaveMatchResult implements multiplayer.MatchResultSaver.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	_, err := s.SaveMatch(MatchRecord{
		MatchID:     data.MatchID,
		Mode:        data.Mode,
		Seed:        data.Seed,
		LocalPlayer: data.LocalPlayer,
		Opponent:    data.Opponent,
		Winner:      data.Winner,
		EndReason:   data.EndReason,
		Ticks:       data.Ticks,
		Duration:    data.DurationSecs,
	})
	return err
}

// Ensure Store implements MatchResultSaver
var _ multiplayer.MatchResultSaver = (*Store)(nil)

// GetStats aggregates the whole match history from the local player's side.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	var lastPlayed any
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN winner >= 0 AND winner = local_player THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner >= 0 AND winner <> local_player THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner < 0 AND end_reason = 'completed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner < 0 AND end_reason <> 'completed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(ticks), 0),
		        MAX(created_at)
		 FROM matches`,
	).Scan(&stats.Matches, &stats.Wins, &stats.Losses, &stats.Draws, &stats.Aborted, &stats.Ticks, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get stats: %w", err)
	}
	stats.LastPlayed = parseTime(lastPlayed)
	return stats, nil
}
