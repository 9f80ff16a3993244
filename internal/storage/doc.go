// Package storage holds the bounded metrics history and persists it, along
// with the recent query-analysis snapshot.
//
// The history can live in a JSON file (the default) or a Redis list. Both
// stores overwrite the snapshot wholesale on save and cap it at the newest
// configured number of samples. Every snapshot carries a schema_version so
// that a format change is detected instead of misparsed.
package storage
