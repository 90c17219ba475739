// Package state owns the daemon's view of the day: the schedule and the user
// settings, cached in memory and persisted through a storage.Store.
//
// The cache is refreshed from store change notifications, so writes made by
// another process (the CLI, a second daemon) become visible without a reload.
package state
