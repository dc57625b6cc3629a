// Package queue names, stores, walks and prunes distribution queue entries
// inside a tree store.
//
// A queue is a root node holding ordered folders, one per segment of a
// yyyy/MM/dd/HH/mm time bucket, with item nodes as leaves. Entry ids are the
// bucket path plus a disambiguator, encoded by EncodeID. Because bucket
// segments are zero padded and most significant first, a depth-first walk in
// child order yields entries in creation order and whole buckets can be
// dropped once IsSafeToDelete reports that they are in the past.
//
// The package holds no locks. Every function that touches the store takes a
// *tree.Session and relies on its commit discipline; the only shared state is
// the IDGenerator counter, which is atomic. Queue wraps the functions for a
// single named queue.
package queue
