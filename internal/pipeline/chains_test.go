package pipeline

import (
	"testing"

	"docsync/internal/batch"
)

// The scorer's native-extension set and the analyzer chain registry must
// agree: a change only deserves the native priority weight if a grammar
// analyzer actually handles it, and vice versa.
func TestChainRegistryMatchesNativeExtensions(t *testing.T) {
	chains := newChains(0)

	for ext := range batch.NativeExts {
		c, ok := chains[ext]
		if !ok {
			t.Errorf("no analyzer chain for native extension %q", ext)
			continue
		}
		if c.primary.Name() == "text-scan" {
			t.Errorf("native extension %q only has the text-scan primary", ext)
		}
	}

	for ext, c := range chains {
		if ext == "" {
			continue
		}
		if !batch.NativeExts[ext] {
			t.Errorf("extension %q has chain %q but is scored fallback-only", ext, c.primary.Name())
		}
	}
}
