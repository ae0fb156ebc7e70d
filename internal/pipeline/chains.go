package pipeline

import (
	"path/filepath"

	"docsync/internal/analysis"
	"docsync/internal/analysis/goast"
	"docsync/internal/analysis/textscan"
	"docsync/internal/analysis/treesitter"
)

// chain pairs a primary analyzer with its ordered fallbacks.
type chain struct {
	primary   analysis.Analyzer
	fallbacks []analysis.Analyzer
}

// newChains builds the per-extension analyzer registry. The text scanner is
// the universal last resort; extensions without a native analyzer use it as
// their primary.
func newChains(maxScanBytes int64) map[string]chain {
	scan := textscan.New(maxScanBytes)
	js := treesitter.NewJavaScript()
	ts := treesitter.NewTypeScript()
	tsx := treesitter.NewTSX()
	py := treesitter.NewPython()

	return map[string]chain{
		".go":  {primary: goast.New(), fallbacks: []analysis.Analyzer{scan}},
		".js":  {primary: js, fallbacks: []analysis.Analyzer{scan}},
		".jsx": {primary: js, fallbacks: []analysis.Analyzer{scan}},
		".ts":  {primary: ts, fallbacks: []analysis.Analyzer{scan}},
		".tsx": {primary: tsx, fallbacks: []analysis.Analyzer{scan}},
		".py":  {primary: py, fallbacks: []analysis.Analyzer{scan}},
		"":     {primary: scan},
	}
}

// chainFor resolves the analyzer chain for a path.
func (p *Pipeline) chainFor(path string) chain {
	if c, ok := p.chains[filepath.Ext(path)]; ok {
		return c
	}
	return p.chains[""]
}
