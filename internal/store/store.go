// Package store caches woven output in a sqlite database. Entries are keyed
// by a fingerprint of the model and configuration they were woven from, so a
// pass over unchanged inputs can be answered from the cache.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/weaver/internal/weaver"
)

// formatVersion is bumped when the printed output format changes, which
// invalidates every stored entry.
const formatVersion = "v1"

var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/funvibe/weaver/store"))

type Store struct {
	db   *sql.DB
	path string
}

// Entry is the cached outcome of one weaving pass.
type Entry struct {
	Key       uuid.UUID
	Printed   string
	Results   []Result
	CreatedAt time.Time
}

// Result records the status of one declaration in a cached pass.
type Result struct {
	Declaration string
	Status      string
	Fingerprint uuid.UUID // uuid.Nil unless woven
}

// Open opens the cache database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	var model string
	err := s.db.QueryRow(`SELECT name FROM pragma_table_info('fingerprints') WHERE name = 'model'`).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		// Fingerprints recorded before they were kept per model.
		if _, err := s.db.Exec(`DROP TABLE IF EXISTS fingerprints`); err != nil {
			return fmt.Errorf("initializing cache %s: %w", s.path, err)
		}
	} else if err != nil {
		return fmt.Errorf("initializing cache %s: %w", s.path, err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		printed TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS results (
		key TEXT NOT NULL,
		seq INTEGER NOT NULL,
		declaration TEXT NOT NULL,
		status TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (key, seq)
	);
	CREATE TABLE IF NOT EXISTS fingerprints (
		model TEXT NOT NULL,
		declaration TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (model, declaration)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing cache %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key fingerprints the inputs of a pass. Trailing whitespace on a line does
// not change the key.
func Key(model, config []byte) uuid.UUID {
	var sb strings.Builder
	sb.WriteString(formatVersion)
	sb.WriteString("\x00")
	sb.WriteString(normalize(model))
	sb.WriteString("\x00")
	sb.WriteString(normalize(config))
	return uuid.NewSHA1(keySpace, []byte(sb.String()))
}

func normalize(data []byte) string {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Get returns the entry stored under key. The second result is false on a
// cache miss.
func (s *Store) Get(ctx context.Context, key uuid.UUID) (*Entry, bool, error) {
	e := &Entry{Key: key}
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT printed, created_at FROM entries WHERE key = ?`, key.String()).
		Scan(&e.Printed, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	e.CreatedAt = time.Unix(created, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT declaration, status, fingerprint FROM results WHERE key = ? ORDER BY seq`, key.String())
	if err != nil {
		return nil, false, fmt.Errorf("reading cache results %s: %w", key, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Result
		var fp string
		if err := rows.Scan(&r.Declaration, &r.Status, &fp); err != nil {
			return nil, false, fmt.Errorf("reading cache results %s: %w", key, err)
		}
		if r.Fingerprint, err = uuid.Parse(fp); err != nil {
			return nil, false, fmt.Errorf("cache result %s: %w", r.Declaration, err)
		}
		e.Results = append(e.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading cache results %s: %w", key, err)
	}
	return e, true, nil
}

// Put stores the outcome of a pass over model under key, replacing any
// previous entry. It returns the declarations whose woven members differ from
// the last pass over the same model.
func (s *Store) Put(ctx context.Context, model string, key uuid.UUID, printed string, out *weaver.Output) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO entries (key, printed, created_at) VALUES (?, ?, ?)`,
		key.String(), printed, now); err != nil {
		return nil, fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key.String()); err != nil {
		return nil, fmt.Errorf("writing cache entry %s: %w", key, err)
	}

	var changed []string
	for i, r := range out.Results {
		fp := uuid.Nil
		if r.Status == weaver.StatusWoven {
			fp = r.Fingerprint
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (key, seq, declaration, status, fingerprint) VALUES (?, ?, ?, ?, ?)`,
			key.String(), i, r.Qualified, r.Status.String(), fp.String()); err != nil {
			return nil, fmt.Errorf("writing cache result %s: %w", r.Qualified, err)
		}

		var prev string
		err := tx.QueryRowContext(ctx, `SELECT fingerprint FROM fingerprints WHERE model = ? AND declaration = ?`, model, r.Qualified).Scan(&prev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if fp != uuid.Nil {
				changed = append(changed, r.Qualified)
			}
		case err != nil:
			return nil, fmt.Errorf("reading fingerprint of %s: %w", r.Qualified, err)
		case prev != fp.String():
			changed = append(changed, r.Qualified)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO fingerprints (model, declaration, fingerprint, updated_at) VALUES (?, ?, ?, ?)`,
			model, r.Qualified, fp.String(), now); err != nil {
			return nil, fmt.Errorf("writing fingerprint of %s: %w", r.Qualified, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return changed, nil
}

// Clean removes every entry and fingerprint.
func (s *Store) Clean(ctx context.Context) error {
	for _, table := range []string{"entries", "results", "fingerprints"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("cleaning cache %s: %w", s.path, err)
		}
	}
	return nil
}
