package analysis

import "time"

// ChangeKind classifies a filesystem change event.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// FileChange is a single filesystem change observed by the watcher.
// Ownership passes watcher -> debouncer -> queue -> pipeline; the value is
// never mutated after creation.
type FileChange struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewChange builds a FileChange stamped with the current time.
func NewChange(path string, kind ChangeKind) FileChange {
	return FileChange{Path: path, Kind: kind, Timestamp: time.Now().UTC()}
}
