// Package infofile implements the line-oriented text format used to persist
// replica metadata across restarts.
//
// A record file has two parts:
//
//   - a positional section: one value per line, in a fixed order that only
//     ever grows at the end; retired slots are kept as placeholders
//   - an optional extension section of "key" or "key=value" lines terminated
//     by END_MARKER, which records which fields are DEFAULT
//
// Every value is a Field. A Field knows how to read itself from one line,
// how to render its effective value, and whether it can be DEFAULT. Records
// describe their layout with package-level registries of accessor closures
// (Layout, Extension) that are applied to one record instance at a time.
//
// Nothing in this package is safe for concurrent use. Callers hold a lock for
// the whole duration of a load or save.
package infofile
