// Package preflight provides readiness checks for the filesystem paths,
// tree store and listen addresses distq depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before taking its lock and refuses to start
//     when a check fails.
//   - The CLI "distq doctor" command renders every result as a table.
//
// Checks for disabled features are skipped.
package preflight
