package analysis

import "context"

// Analyzer extracts facts from a single source file. Implementations may
// shell out to subprocesses; they must honor ctx cancellation and return
// errors tagged with the services taxonomy markers.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, path string) (*Result, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc struct {
	AnalyzerName string
	Fn           func(ctx context.Context, path string) (*Result, error)
}

func (a AnalyzerFunc) Name() string { return a.AnalyzerName }

func (a AnalyzerFunc) Analyze(ctx context.Context, path string) (*Result, error) {
	return a.Fn(ctx, path)
}
