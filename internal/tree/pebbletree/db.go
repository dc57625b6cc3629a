package pebbletree

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"distq/internal/logging"
	"distq/internal/tree"
)

// FsyncMode defines durability behavior for committed change sets.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every commit.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble's own policies.
	FsyncModeNever
)

// ParseFsyncMode maps a configuration value onto a FsyncMode.
func ParseFsyncMode(value string) (FsyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "interval":
		return FsyncModeInterval, nil
	case "always":
		return FsyncModeAlways, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeUnspecified, fmt.Errorf("unsupported fsync mode %q", value)
	}
}

// Options configures the Pebble backend.
type Options struct {
	// DataDir is the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group commit when Fsync is FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning. Defaults are used when nil.
	PebbleOptions *pebble.Options
	Logger        *slog.Logger
}

var (
	prefixNode  = []byte("n")
	prefixChild = []byte("c")
	keySeq      = []byte("m/seq")
)

type record struct {
	Type  string          `json:"type"`
	Seq   uint64          `json:"seq"`
	Props json.RawMessage `json:"props,omitempty"`
}

// DB is a Pebble tree.Backend.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	logger    *slog.Logger

	mu  sync.Mutex
	seq uint64
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebbletree: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync is requested on each commit.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		interval := opts.FsyncInterval
		po.WALMinSyncInterval = func() time.Duration { return interval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}

	db := &DB{
		inner:     inner,
		writeSync: opts.Fsync == FsyncModeAlways,
		logger:    logging.NewComponentLogger(opts.Logger, "store.pebble"),
	}
	if raw, closer, err := inner.Get(keySeq); err == nil {
		if len(raw) == 8 {
			db.seq = binary.BigEndian.Uint64(raw)
		}
		_ = closer.Close()
	} else if !errors.Is(err, pebble.ErrNotFound) {
		_ = inner.Close()
		return nil, fmt.Errorf("read sequence: %w", err)
	}
	db.logger.Debug("pebble tree store opened",
		logging.String("dir", opts.DataDir),
		logging.Uint64("seq", db.seq),
	)
	return db, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Lookup implements tree.Backend.
func (db *DB) Lookup(_ context.Context, path string) (tree.Node, bool, error) {
	if path == tree.RootPath {
		return tree.Node{Path: tree.RootPath}, true, nil
	}
	rec, ok, err := getRecord(db.inner, path)
	if err != nil || !ok {
		return tree.Node{}, ok, err
	}
	node, err := rec.node(path)
	if err != nil {
		return tree.Node{}, false, err
	}
	return node, true, nil
}

// Children implements tree.Backend.
func (db *DB) Children(_ context.Context, path string) ([]tree.Node, error) {
	lower, upper := childIndexBounds(path)
	iter, err := db.inner.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var nodes []tree.Node
	for ok := iter.First(); ok; ok = iter.Next() {
		childPath := string(iter.Value())
		rec, found, err := getRecord(db.inner, childPath)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		node, err := rec.node(childPath)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, iter.Error()
}

// CountType implements tree.Backend.
func (db *DB) CountType(_ context.Context, root, nodeType string) (int, error) {
	lower, upper := subtreeBounds(prefixNode, root)
	iter, err := db.inner.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		var rec record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return 0, fmt.Errorf("decode node %s: %w", iter.Key()[len(prefixNode):], err)
		}
		if rec.Type == nodeType {
			count++
		}
	}
	return count, iter.Error()
}

// Apply implements tree.Backend.
func (db *DB) Apply(_ context.Context, ops []tree.Op) error {
	if len(ops) == 0 {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	b := db.inner.NewIndexedBatch()
	defer b.Close()

	w := &batchWriter{batch: b, seq: db.seq}
	if err := tree.ApplyOps(w, ops); err != nil {
		return err
	}
	if w.seq != db.seq {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], w.seq)
		if err := b.Set(keySeq, buf[:], nil); err != nil {
			return err
		}
	}

	syncMode := pebble.NoSync
	if db.writeSync {
		syncMode = pebble.Sync
	}
	if err := b.Commit(syncMode); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	db.seq = w.seq
	return nil
}

type batchWriter struct {
	batch *pebble.Batch
	seq   uint64
}

func (w *batchWriter) Exists(path string) (bool, error) {
	if path == tree.RootPath {
		return true, nil
	}
	_, ok, err := getRecord(w.batch, path)
	return ok, err
}

func (w *batchWriter) Put(node tree.Node) error {
	props, err := tree.MarshalProperties(node.Props)
	if err != nil {
		return err
	}
	w.seq++
	raw, err := json.Marshal(record{Type: node.Type, Seq: w.seq, Props: props})
	if err != nil {
		return err
	}
	if err := w.batch.Set(nodeKey(node.Path), raw, nil); err != nil {
		return err
	}
	return w.batch.Set(childKey(tree.Parent(node.Path), w.seq), []byte(node.Path), nil)
}

func (w *batchWriter) DeleteTree(path string) error {
	rec, ok, err := getRecord(w.batch, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var keys [][]byte
	for _, bounds := range [][2][]byte{
		pair(subtreeBounds(prefixNode, path)),
		pair(subtreeBounds(prefixChild, path)),
		pair(childIndexBounds(path)),
	} {
		iter, err := w.batch.NewIter(&pebble.IterOptions{LowerBound: bounds[0], UpperBound: bounds[1]})
		if err != nil {
			return err
		}
		for valid := iter.First(); valid; valid = iter.Next() {
			keys = append(keys, append([]byte(nil), iter.Key()...))
		}
		if err := iter.Close(); err != nil {
			return err
		}
	}
	keys = append(keys, nodeKey(path), childKey(tree.Parent(path), rec.Seq))
	for _, k := range keys {
		if err := w.batch.Delete(k, nil); err != nil {
			return err
		}
	}
	return nil
}

func getRecord(r pebble.Reader, path string) (record, bool, error) {
	raw, closer, err := r.Get(nodeKey(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}
	defer closer.Close()

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, false, fmt.Errorf("decode node %s: %w", path, err)
	}
	return rec, true, nil
}

func (r record) node(path string) (tree.Node, error) {
	props, err := tree.UnmarshalProperties(r.Props)
	if err != nil {
		return tree.Node{}, fmt.Errorf("node %s: %w", path, err)
	}
	return tree.Node{Path: path, Type: r.Type, Props: props}, nil
}

func nodeKey(path string) []byte {
	return append(append([]byte(nil), prefixNode...), path...)
}

func childKey(parent string, seq uint64) []byte {
	key := make([]byte, 0, len(prefixChild)+len(parent)+9)
	key = append(key, prefixChild...)
	key = append(key, parent...)
	key = append(key, 0x00)
	return binary.BigEndian.AppendUint64(key, seq)
}

// childIndexBounds spans the child index entries of parent.
func childIndexBounds(parent string) ([]byte, []byte) {
	base := append(append([]byte(nil), prefixChild...), parent...)
	lower := append(append([]byte(nil), base...), 0x00)
	upper := append(append([]byte(nil), base...), 0x01)
	return lower, upper
}

// subtreeBounds spans every key under prefix+path+"/".
func subtreeBounds(prefix []byte, path string) ([]byte, []byte) {
	base := append(append([]byte(nil), prefix...), strings.TrimSuffix(path, "/")...)
	lower := append(append([]byte(nil), base...), '/')
	upper := append(append([]byte(nil), base...), '/'+1)
	return lower, upper
}

func pair(lower, upper []byte) [2][]byte { return [2][]byte{lower, upper} }
