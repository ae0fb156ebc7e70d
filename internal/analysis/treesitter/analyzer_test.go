package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSample(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestJavaScriptExtraction(t *testing.T) {
	src := `// TODO: validate port before binding
import express from 'express';

class Router {
  dispatch(req) {
    return req;
  }
}

function startServer(port) {
  const app = express();
  app.get('/api/status', handleStatus);
  return app.listen(port);
}
`
	path := writeSample(t, "server.js", src)

	result, err := NewJavaScript().Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Language != "javascript" {
		t.Errorf("language = %q, want javascript", result.Language)
	}

	foundStart := false
	foundDispatch := false
	for _, fn := range result.Functions {
		switch fn.Name {
		case "startServer":
			foundStart = true
			if fn.Signature != "startServer(port)" {
				t.Errorf("signature = %q", fn.Signature)
			}
		case "dispatch":
			foundDispatch = true
		}
	}
	if !foundStart || !foundDispatch {
		t.Fatalf("missing functions, got %+v", result.Functions)
	}
	if len(result.Classes) != 1 || result.Classes[0].Name != "Router" {
		t.Fatalf("unexpected classes %+v", result.Classes)
	}
	if len(result.Imports) != 1 || result.Imports[0].Path != "express" {
		t.Fatalf("unexpected imports %+v", result.Imports)
	}
	if len(result.Todos) != 1 || result.Todos[0].Marker != "TODO" {
		t.Fatalf("unexpected todos %+v", result.Todos)
	}
	if len(result.APIEndpoints) != 1 {
		t.Fatalf("unexpected endpoints %+v", result.APIEndpoints)
	}
	ep := result.APIEndpoints[0]
	if ep.Method != "GET" || ep.Route != "/api/status" {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
}

func TestTypeScriptInterface(t *testing.T) {
	src := `interface Store {
  load(key: string): string;
}

class MemoryStore {
  load(key: string): string {
    return key;
  }
}
`
	path := writeSample(t, "store.ts", src)

	result, err := NewTypeScript().Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(result.Interfaces) != 1 || result.Interfaces[0].Name != "Store" {
		t.Fatalf("unexpected interfaces %+v", result.Interfaces)
	}
	if len(result.Classes) != 1 || result.Classes[0].Name != "MemoryStore" {
		t.Fatalf("unexpected classes %+v", result.Classes)
	}
}

func TestPythonExtraction(t *testing.T) {
	src := `# FIXME: cache the parsed config
import os
from collections import OrderedDict

def load_config(path):
    return {}

class Pipeline:
    def run(self):
        pass
`
	path := writeSample(t, "pipeline.py", src)

	result, err := NewPython().Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var names []string
	for _, fn := range result.Functions {
		names = append(names, fn.Name)
	}
	if len(names) != 2 {
		t.Fatalf("expected load_config and run, got %v", names)
	}
	if len(result.Classes) != 1 || result.Classes[0].Name != "Pipeline" {
		t.Fatalf("unexpected classes %+v", result.Classes)
	}
	if len(result.Imports) != 2 {
		t.Fatalf("unexpected imports %+v", result.Imports)
	}
	if len(result.Todos) != 1 || result.Todos[0].Marker != "FIXME" {
		t.Fatalf("unexpected todos %+v", result.Todos)
	}
}

func TestMissingFileTagged(t *testing.T) {
	_, err := NewJavaScript().Analyze(context.Background(), filepath.Join(t.TempDir(), "absent.js"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
