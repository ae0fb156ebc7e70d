package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSource drops source content at the given path, creating parent
// directories as needed, and returns the path for convenience.
func WriteSource(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteGoSource writes a small but valid Go file containing one exported
// function, suitable for driving the AST analyzer in tests.
func WriteGoSource(t testing.TB, path string) string {
	t.Helper()

	const src = `package sample

import "fmt"

// Greet formats a greeting for the given name.
func Greet(name string) string {
	return fmt.Sprintf("hello, %s", name)
}
`
	return WriteSource(t, path, src)
}
