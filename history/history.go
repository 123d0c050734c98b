// Package history records the outcome of machine runs in SQLite.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/intcode/vm"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

var log = commonlog.GetLogger("intcode.history")

// Run is one recorded execution.
type Run struct {
	ID            string
	ProgramDigest string
	StartedAt     time.Time
	Duration      time.Duration
	State         string
	FinalPC       int
	Steps         uint64
	Outputs       []int64
	Fault         string
}

// NewRun starts a record for program with a fresh ID.
func NewRun(program []int64) *Run {
	return &Run{
		ID:            uuid.NewString(),
		ProgramDigest: Digest(program),
		StartedAt:     time.Now(),
	}
}

// Finish fills in the outcome of a run. runErr is the error returned by
// the machine, if any.
func (r *Run) Finish(res *vm.Result, outputs []int64, runErr error) {
	r.Duration = time.Since(r.StartedAt)
	r.Outputs = append([]int64(nil), outputs...)
	if res != nil {
		r.State = res.State.String()
		r.FinalPC = res.PC
		r.Steps = res.Steps
	}
	if runErr != nil {
		r.Fault = runErr.Error()
	}
}

// Digest identifies a program by the SHA-256 of its canonical CBOR encoding.
func Digest(program []int64) string {
	data, err := cborEncMode.Marshal(program)
	if err != nil {
		// []int64 always encodes
		panic(fmt.Sprintf("history: encode program: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("history: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Store handles SQLite storage for runs
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the run database at dbPath.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		program_digest TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		state TEXT NOT NULL,
		final_pc INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		outputs BLOB,
		fault TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record persists a run, replacing any run with the same ID.
func (s *Store) Record(ctx context.Context, r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outputs, err := cborEncMode.Marshal(r.Outputs)
	if err != nil {
		return fmt.Errorf("encoding outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		(id, program_digest, started_at, duration_ns, state, final_pc, steps, outputs, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProgramDigest, r.StartedAt.UnixNano(), int64(r.Duration),
		r.State, r.FinalPC, int64(r.Steps), outputs, r.Fault,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	log.Debugf("recorded run %s (%s, %d steps)", r.ID, r.State, r.Steps)
	return nil
}

const selectRuns = `SELECT id, program_digest, started_at, duration_ns, state, final_pc, steps, outputs, fault FROM runs`

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListByProgram returns runs of the program with the given digest, newest first.
func (s *Store) ListByProgram(ctx context.Context, digest string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+" WHERE program_digest = ? ORDER BY started_at DESC", digest)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r        Run
		started  int64
		duration int64
		steps    int64
		outputs  []byte
	)
	err := sc.Scan(&r.ID, &r.ProgramDigest, &started, &duration, &r.State, &r.FinalPC, &steps, &outputs, &r.Fault)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started)
	r.Duration = time.Duration(duration)
	r.Steps = uint64(steps)
	if len(outputs) > 0 {
		if err := cbor.Unmarshal(outputs, &r.Outputs); err != nil {
			return nil, fmt.Errorf("decoding outputs: %w", err)
		}
	}
	return &r, nil
}
