package analysis

import (
	"encoding/json"
	"time"

	"docsync/internal/services"
)

// Millis is a duration that serializes as fractional milliseconds, so API
// payloads and persisted cache entries carry the unit the field name says.
type Millis time.Duration

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(m) / float64(time.Millisecond))
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*m = Millis(ms * float64(time.Millisecond))
	return nil
}

// Duration converts back to the stdlib representation.
func (m Millis) Duration() time.Duration { return time.Duration(m) }

// Function describes one function or method extracted from a source file.
type Function struct {
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Doc       string `json:"doc,omitempty"`
	Exported  bool   `json:"exported"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Class describes a class, struct, or equivalent aggregate type.
type Class struct {
	Name      string   `json:"name"`
	Fields    []string `json:"fields,omitempty"`
	Methods   []string `json:"methods,omitempty"`
	Doc       string   `json:"doc,omitempty"`
	Exported  bool     `json:"exported"`
	StartLine int      `json:"start_line"`
}

// Interface describes an interface or protocol declaration.
type Interface struct {
	Name      string   `json:"name"`
	Methods   []string `json:"methods,omitempty"`
	Doc       string   `json:"doc,omitempty"`
	Exported  bool     `json:"exported"`
	StartLine int      `json:"start_line"`
}

// Export describes a top-level exported symbol that is not a function,
// class, or interface (constants, variables, type aliases, module exports).
type Export struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
	Line int    `json:"line"`
}

// Import describes one import or dependency reference.
type Import struct {
	Path  string `json:"path"`
	Alias string `json:"alias,omitempty"`
	Line  int    `json:"line"`
}

// Comment is a standalone source comment.
type Comment struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

// Todo is a TODO/FIXME/HACK/NOTE marker found in a comment.
type Todo struct {
	Marker string `json:"marker"`
	Text   string `json:"text"`
	Line   int    `json:"line"`
}

// APIEndpoint is an HTTP route registration detected in the file.
type APIEndpoint struct {
	Method string `json:"method,omitempty"`
	Route  string `json:"route"`
	Line   int    `json:"line"`
}

// Result is the language-agnostic bag of facts an analyzer extracts from one
// file. It is immutable after the producing analyzer returns it.
type Result struct {
	Path         string        `json:"path"`
	Language     string        `json:"language,omitempty"`
	Functions    []Function    `json:"functions,omitempty"`
	Classes      []Class       `json:"classes,omitempty"`
	Interfaces   []Interface   `json:"interfaces,omitempty"`
	Exports      []Export      `json:"exports,omitempty"`
	Imports      []Import      `json:"imports,omitempty"`
	Comments     []Comment     `json:"comments,omitempty"`
	Todos        []Todo        `json:"todos,omitempty"`
	APIEndpoints []APIEndpoint `json:"api_endpoints,omitempty"`
}

// FactCount returns the number of extracted facts across all categories,
// used for logging and completeness heuristics.
func (r *Result) FactCount() int {
	if r == nil {
		return 0
	}
	return len(r.Functions) + len(r.Classes) + len(r.Interfaces) +
		len(r.Exports) + len(r.Imports) + len(r.Comments) +
		len(r.Todos) + len(r.APIEndpoints)
}

// Outcome is the envelope handed to documentation generators: either a fully
// successful analysis (Completeness == 1, no fallbacks) or a partial one.
// Completeness is strictly below 1 whenever a fallback produced the result
// or any recorded error is at least medium severity.
type Outcome struct {
	Path          string                   `json:"path"`
	Result        *Result                  `json:"result"`
	Analyzer      string                   `json:"analyzer,omitempty"`
	FallbacksUsed []string                 `json:"fallbacks_used,omitempty"`
	Completeness  float64                  `json:"completeness"`
	Errors        []services.ErrorRecord   `json:"errors,omitempty"`
	Duration      Millis                   `json:"duration_ms"`
	FromCache     bool                     `json:"from_cache,omitempty"`
	StoredAt      time.Time                `json:"stored_at,omitempty"`
}

// Partial reports whether the outcome is a partial result.
func (o *Outcome) Partial() bool {
	if o == nil {
		return false
	}
	return len(o.FallbacksUsed) > 0 || o.Completeness < 1.0
}
