package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/unify"
)

const defaultCacheSize = 4096

// sqliteStore implements the Store interface using SQLite. Atoms are
// stored in their canonical s-expression form and parsed back on read;
// parsed atoms are kept in an LRU cache.
type sqliteStore struct {
	db    *sql.DB
	types *atom.TypeRegistry
	cache *lru.Cache[string, *atom.Atom]
}

// Option configures OpenSQLite.
type Option func(*options)

type options struct {
	types     *atom.TypeRegistry
	cacheSize int
}

// WithTypes sets the registry used to parse stored atoms.
func WithTypes(r *atom.TypeRegistry) Option {
	return func(o *options) { o.types = r }
}

// WithCacheSize sets the number of parsed atoms kept in memory.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (store.Store, error) {
	o := options{types: atom.DefaultTypes, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	cache, err := lru.New[string, *atom.Atom](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("atom cache: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db, types: o.types, cache: cache}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS facts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	arity INTEGER NOT NULL,
	strength REAL NOT NULL,
	confidence REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS facts_type_arity ON facts(type, arity);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// AddFact inserts a fact or updates its truth value. The row id, and with
// it the insertion order, survives updates.
func (s *sqliteStore) AddFact(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error {
	if a == nil || !a.IsGround() {
		return fmt.Errorf("add fact %v: not ground: %w", a, internalerr.ErrInvalidInput)
	}
	tv = tv.Clamp()

	const stmt = `
INSERT INTO facts (key, type, arity, strength, confidence)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	strength=excluded.strength,
	confidence=excluded.confidence;
`
	if _, err := s.db.ExecContext(ctx, stmt, a.Key(), string(a.Type()), a.Arity(), tv.Strength, tv.Confidence); err != nil {
		return fmt.Errorf("add fact: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	s.cache.Add(a.Key(), a)
	return nil
}

// SetTruthValue updates the truth value of an existing fact.
func (s *sqliteStore) SetTruthValue(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error {
	tv = tv.Clamp()
	res, err := s.db.ExecContext(ctx,
		"UPDATE facts SET strength = ?, confidence = ? WHERE key = ?",
		tv.Strength, tv.Confidence, a.Key())
	if err != nil {
		return fmt.Errorf("set truth value: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set truth value: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("set truth value %s: %w", a, internalerr.ErrNotFound)
	}
	return nil
}

// GetTruthValue returns the truth value of a stored atom.
func (s *sqliteStore) GetTruthValue(ctx context.Context, a *atom.Atom) (atom.TruthValue, bool, error) {
	var tv atom.TruthValue
	err := s.db.QueryRowContext(ctx,
		"SELECT strength, confidence FROM facts WHERE key = ?", a.Key(),
	).Scan(&tv.Strength, &tv.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return atom.TruthValue{}, false, nil
	}
	if err != nil {
		return atom.TruthValue{}, false, fmt.Errorf("get truth value: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return tv, true, nil
}

// QueryGroundings narrows candidates by type and arity in SQL and unifies
// the remainder in Go.
func (s *sqliteStore) QueryGroundings(ctx context.Context, pattern *atom.Atom) ([]store.Fact, error) {
	if pattern.IsGround() {
		tv, ok, err := s.GetTruthValue(ctx, pattern)
		if err != nil || !ok {
			return nil, err
		}
		return []store.Fact{{Atom: pattern, TV: tv}}, nil
	}

	var (
		query = "SELECT key, strength, confidence FROM facts ORDER BY id"
		args  []any
	)
	if !pattern.IsVariable() {
		query = "SELECT key, strength, confidence FROM facts WHERE type = ? AND arity = ? ORDER BY id"
		args = []any{string(pattern.Type()), pattern.Arity()}
	}

	facts, err := s.loadFacts(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := facts[:0]
	for _, f := range facts {
		if _, ok := unify.Match(pattern, f.Atom, nil); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Facts returns every fact in insertion order.
func (s *sqliteStore) Facts(ctx context.Context) ([]store.Fact, error) {
	return s.loadFacts(ctx, "SELECT key, strength, confidence FROM facts ORDER BY id")
}

func (s *sqliteStore) loadFacts(ctx context.Context, query string, args ...any) ([]store.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []store.Fact
	for rows.Next() {
		var (
			key string
			tv  atom.TruthValue
		)
		if err := rows.Scan(&key, &tv.Strength, &tv.Confidence); err != nil {
			return nil, fmt.Errorf("load facts: %w: %v", internalerr.ErrStoreUnavailable, err)
		}
		a, err := s.parse(key)
		if err != nil {
			return nil, fmt.Errorf("load fact %q: %w", key, err)
		}
		out = append(out, store.Fact{Atom: a, TV: tv})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load facts: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *sqliteStore) parse(key string) (*atom.Atom, error) {
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}
	a, err := s.types.Parse(key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, a)
	return a, nil
}
