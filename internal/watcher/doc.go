// Package watcher turns raw filesystem notifications into debounced file
// change events. It watches configured directory trees with fsnotify,
// filters ignored paths, and collapses rapid successive events on the same
// file into a single change.
package watcher
