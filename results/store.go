// store.go — sqlite run history

package results

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	digest       TEXT    NOT NULL,
	executor     TEXT    NOT NULL,
	transport    TEXT    NOT NULL,
	ring_size    INTEGER NOT NULL,
	rounds       INTEGER NOT NULL,
	pinned       INTEGER NOT NULL,
	hops         INTEGER NOT NULL,
	seconds      REAL    NOT NULL,
	final_value  INTEGER NOT NULL,
	final_sender INTEGER NOT NULL,
	final_ok     INTEGER NOT NULL,
	started_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_digest ON runs(digest);
`

// Store persists run records in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("results: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends r and returns its row id.
func (s *Store) Save(r Record) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO runs (digest, executor, transport, ring_size, rounds, pinned,
		                  hops, seconds, final_value, final_sender, final_ok, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Digest, r.Executor, r.Transport, r.RingSize, r.Rounds, r.Pinned,
		r.Hops, r.Seconds, r.FinalValue, r.FinalSender, r.FinalOK, r.StartedAt)
	if err != nil {
		return 0, fmt.Errorf("results: save: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, digest, executor, transport, ring_size, rounds, pinned,
		       hops, seconds, final_value, final_sender, final_ok, started_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("results: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Digest, &r.Executor, &r.Transport, &r.RingSize, &r.Rounds,
			&r.Pinned, &r.Hops, &r.Seconds, &r.FinalValue, &r.FinalSender, &r.FinalOK, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("results: recent: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates every run sharing one configuration digest.
type Summary struct {
	Digest        string
	Executor      string
	Transport     string
	RingSize      int
	Rounds        int
	Pinned        bool
	Runs          int
	MinSeconds    float64
	MeanSeconds   float64
	MaxSeconds    float64
	HopsPerSecond float64 // total hops over total time
}

// Summaries groups the history by configuration digest.
func (s *Store) Summaries() ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT digest, executor, transport, ring_size, rounds, pinned,
		       COUNT(*), MIN(seconds), AVG(seconds), MAX(seconds), SUM(hops), SUM(seconds)
		FROM runs
		GROUP BY digest
		ORDER BY ring_size, rounds, executor, transport, pinned`)
	if err != nil {
		return nil, fmt.Errorf("results: summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			hops      int64
			totalSecs float64
		)
		if err := rows.Scan(&sum.Digest, &sum.Executor, &sum.Transport, &sum.RingSize, &sum.Rounds,
			&sum.Pinned, &sum.Runs, &sum.MinSeconds, &sum.MeanSeconds, &sum.MaxSeconds,
			&hops, &totalSecs); err != nil {
			return nil, fmt.Errorf("results: summaries: %w", err)
		}
		if totalSecs > 0 {
			sum.HopsPerSecond = float64(hops) / totalSecs
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
