// Package pebbletree stores a tree.Backend in a Pebble key-value database.
//
// Key layout:
//
//	n<path>                    node record (type, sequence, typed properties)
//	c<parent>\x00<seq:8 BE>    ordered child index, value is the child path
//	m/seq                      last assigned sequence number
//
// Children are read from the child index, so they come back in insertion
// order. A change set is staged in an indexed batch and committed with the
// configured fsync policy; writers are serialized so existence checks and
// writes observe the same state.
//
// Usage:
//
//	db, err := pebbletree.Open(pebbletree.Options{
//	    DataDir: "./data/tree",
//	    Fsync:   pebbletree.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//	session := tree.NewSession(db)
package pebbletree
