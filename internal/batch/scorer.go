package batch

import (
	"path/filepath"
	"time"

	"docsync/internal/analysis"
)

// NativeExts are the extensions with a grammar-backed analyzer. Changes to
// these files score higher because their analysis yields richer results.
// The set must stay in step with the pipeline's analyzer chain registry.
var NativeExts = map[string]bool{
	".go":  true,
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".py":  true,
}

const (
	nativeTypeWeight   = 30
	fallbackTypeWeight = 10

	recencyBonusMax = 10
)

var kindWeights = map[analysis.ChangeKind]int{
	analysis.ChangeAdded:    20,
	analysis.ChangeModified: 15,
	analysis.ChangeDeleted:  10,
	analysis.ChangeRenamed:  5,
}

// Scorer assigns a priority to a change from its file type, change kind,
// and recency. Higher scores run earlier.
type Scorer struct {
	// RecencyWindow is the span over which the recency bonus decays from
	// its maximum to zero.
	RecencyWindow time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// NewScorer returns a scorer with the given recency window.
func NewScorer(recencyWindow time.Duration) *Scorer {
	return &Scorer{RecencyWindow: recencyWindow, now: time.Now}
}

// Score computes the priority of a single change.
func (s *Scorer) Score(change analysis.FileChange) int {
	score := fallbackTypeWeight
	if NativeExts[filepath.Ext(change.Path)] {
		score = nativeTypeWeight
	}
	score += kindWeights[change.Kind]
	score += s.recencyBonus(change.Timestamp)
	return score
}

func (s *Scorer) recencyBonus(at time.Time) int {
	if s.RecencyWindow <= 0 {
		return 0
	}
	age := s.now().Sub(at)
	if age < 0 {
		age = 0
	}
	if age >= s.RecencyWindow {
		return 0
	}
	remaining := float64(s.RecencyWindow-age) / float64(s.RecencyWindow)
	return int(remaining * recencyBonusMax)
}
