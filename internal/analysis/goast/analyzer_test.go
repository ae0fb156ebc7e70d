package goast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docsync/internal/services"
)

const sampleSource = `// Package sample is test input.
package sample

import (
	"fmt"
	nethttp "net/http"
)

// Greeting is the default message.
const Greeting = "hello"

// Server handles requests.
type Server struct {
	Addr string
	mux  *nethttp.ServeMux
}

// Handler is the request contract.
type Handler interface {
	Serve(w nethttp.ResponseWriter, r *nethttp.Request)
	Close() error
}

// Run starts the server.
// TODO: add graceful shutdown
func (s *Server) Run() error {
	s.mux.HandleFunc("GET /health", s.health)
	nethttp.HandleFunc("/index", s.index)
	return fmt.Errorf("not implemented")
}

func (s *Server) health(w nethttp.ResponseWriter, r *nethttp.Request) {}

func (s *Server) index(w nethttp.ResponseWriter, r *nethttp.Request) {}
`

func writeSample(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.go")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeExtractsDeclarations(t *testing.T) {
	path := writeSample(t, sampleSource)

	result, err := New().Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Language != "go" {
		t.Errorf("language = %q", result.Language)
	}
	if len(result.Imports) != 2 {
		t.Fatalf("imports = %d, want 2", len(result.Imports))
	}
	if result.Imports[1].Alias != "nethttp" {
		t.Errorf("alias = %q, want nethttp", result.Imports[1].Alias)
	}

	if len(result.Classes) != 1 || result.Classes[0].Name != "Server" {
		t.Fatalf("classes = %+v", result.Classes)
	}
	if len(result.Classes[0].Fields) != 2 {
		t.Errorf("struct fields = %v", result.Classes[0].Fields)
	}

	if len(result.Interfaces) != 1 || result.Interfaces[0].Name != "Handler" {
		t.Fatalf("interfaces = %+v", result.Interfaces)
	}
	if len(result.Interfaces[0].Methods) != 2 {
		t.Errorf("interface methods = %v", result.Interfaces[0].Methods)
	}

	var runFound bool
	for _, fn := range result.Functions {
		if fn.Name == "Run" {
			runFound = true
			if fn.Receiver != "*Server" {
				t.Errorf("receiver = %q, want *Server", fn.Receiver)
			}
			if !fn.Exported {
				t.Error("Run should be exported")
			}
			if fn.Doc == "" {
				t.Error("Run doc comment missing")
			}
		}
	}
	if !runFound {
		t.Fatalf("Run not extracted: %+v", result.Functions)
	}

	var greetingFound bool
	for _, export := range result.Exports {
		if export.Name == "Greeting" && export.Kind == "const" {
			greetingFound = true
		}
	}
	if !greetingFound {
		t.Errorf("Greeting const missing from exports: %+v", result.Exports)
	}
}

func TestAnalyzeDetectsEndpointsAndTodos(t *testing.T) {
	path := writeSample(t, sampleSource)

	result, err := New().Analyze(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.APIEndpoints) != 2 {
		t.Fatalf("endpoints = %+v, want 2", result.APIEndpoints)
	}
	if result.APIEndpoints[0].Method != "GET" || result.APIEndpoints[0].Route != "/health" {
		t.Errorf("endpoint[0] = %+v", result.APIEndpoints[0])
	}
	if result.APIEndpoints[1].Route != "/index" || result.APIEndpoints[1].Method != "" {
		t.Errorf("endpoint[1] = %+v", result.APIEndpoints[1])
	}

	if len(result.Todos) != 1 {
		t.Fatalf("todos = %+v, want 1", result.Todos)
	}
	if result.Todos[0].Marker != "TODO" || result.Todos[0].Text != "add graceful shutdown" {
		t.Errorf("todo = %+v", result.Todos[0])
	}
}

func TestAnalyzeParserErrorTagged(t *testing.T) {
	path := writeSample(t, "this is not go source {{{")

	_, err := New().Analyze(context.Background(), path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.Is(err, services.ErrParser) {
		t.Errorf("expected ErrParser marker, got %v", err)
	}
}
