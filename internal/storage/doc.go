// Package storage is the key-value persistence layer behind the schedule state.
//
// Every driver implements Store: reads return raw values by key, writes notify
// local subscribers synchronously, and Watch delivers changes made by other
// processes sharing the same backing store (another daemon, the CLI, an
// editor touching the data file).
package storage
