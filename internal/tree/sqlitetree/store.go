// Package sqlitetree persists a tree.Backend in a SQLite database.
//
// Nodes live in a single table keyed by path. The autoincrement sequence
// column records insertion order, which is the order Children returns, and
// subtree operations match on the "<path>/" prefix. Every change set runs
// in one transaction and is retried while SQLite reports the database busy.
package sqlitetree

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"distq/internal/logging"
	"distq/internal/tree"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultBusyTimeout      = 5 * time.Second
)

// Options configures the SQLite backend.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Store is a SQLite tree.Backend.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or opens the database at opts.Path.
func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("sqlitetree: Options.Path is required")
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas below in effect and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   opts.Path,
		logger: logging.NewComponentLogger(opts.Logger, "store.sqlite"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.logger.Debug("sqlite tree store opened", logging.String("path", opts.Path))
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup implements tree.Backend.
func (s *Store) Lookup(ctx context.Context, path string) (tree.Node, bool, error) {
	if path == tree.RootPath {
		return tree.Node{Path: tree.RootPath}, true, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT path, type, props FROM nodes WHERE path = ?`, path)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tree.Node{}, false, nil
	}
	if err != nil {
		return tree.Node{}, false, fmt.Errorf("lookup node: %w", err)
	}
	return node, true, nil
}

// Children implements tree.Backend.
func (s *Store) Children(ctx context.Context, path string) ([]tree.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, type, props FROM nodes WHERE parent = ? ORDER BY seq`, path)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var nodes []tree.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// CountType implements tree.Backend.
func (s *Store) CountType(ctx context.Context, root, nodeType string) (int, error) {
	prefix := subtreePrefix(root)
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM nodes WHERE type = ? AND substr(path, 1, length(?)) = ?`,
		nodeType, prefix, prefix,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return count, nil
}

// Apply implements tree.Backend.
func (s *Store) Apply(ctx context.Context, ops []tree.Op) error {
	if len(ops) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := tree.ApplyOps(&txWriter{ctx: ctx, tx: tx}, ops); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

type txWriter struct {
	ctx context.Context
	tx  *sql.Tx
}

func (w *txWriter) Exists(path string) (bool, error) {
	var n int
	if err := w.tx.QueryRowContext(w.ctx, `SELECT COUNT(1) FROM nodes WHERE path = ?`, path).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (w *txWriter) Put(node tree.Node) error {
	props, err := tree.MarshalProperties(node.Props)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(
		w.ctx,
		`INSERT INTO nodes (path, parent, name, type, props) VALUES (?, ?, ?, ?, ?)`,
		node.Path, tree.Parent(node.Path), node.Name(), node.Type, string(props),
	)
	return err
}

func (w *txWriter) DeleteTree(path string) error {
	prefix := subtreePrefix(path)
	_, err := w.tx.ExecContext(
		w.ctx,
		`DELETE FROM nodes WHERE path = ? OR substr(path, 1, length(?)) = ?`,
		path, prefix, prefix,
	)
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func scanNode(scanner interface{ Scan(dest ...any) error }) (tree.Node, error) {
	var (
		path     string
		nodeType string
		rawProps sql.NullString
	)
	if err := scanner.Scan(&path, &nodeType, &rawProps); err != nil {
		return tree.Node{}, err
	}
	props, err := tree.UnmarshalProperties([]byte(rawProps.String))
	if err != nil {
		return tree.Node{}, fmt.Errorf("node %s: %w", path, err)
	}
	return tree.Node{Path: path, Type: nodeType, Props: props}, nil
}

func subtreePrefix(path string) string {
	if path == tree.RootPath {
		return tree.RootPath
	}
	return path + "/"
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
