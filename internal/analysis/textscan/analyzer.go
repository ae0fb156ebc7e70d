// Package textscan is the last-resort analyzer: a line scanner with a small
// set of regular expressions that recognizes function-ish declarations,
// imports, comments, TODO markers, and route registrations in any language.
// Its output is always less complete than a native analyzer's, which is why
// it sits at the end of every fallback chain.
package textscan

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"

	"docsync/internal/analysis"
	"docsync/internal/services"
)

var (
	functionPatterns = []*regexp.Regexp{
		// Go, Rust, C-family, JS/TS declarations.
		regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?func(?:tion)?\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`),
		// Python and Ruby.
		regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)\s*[(\s]`),
		// JS/TS arrow functions assigned to a const/let.
		regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\(`),
	}
	classPattern     = regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	interfacePattern = regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	importPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`^\s*(?:from)\s+([A-Za-z0-9_.]+)\s+import\b`),
		regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`),
	}
	exportPattern   = regexp.MustCompile(`^\s*(?:export\s+(?:default\s+)?(?:abstract\s+)?(?:async\s+)?(?:class|function|interface|const|let|var|type|enum)?\s*|module\.exports\s*=\s*)([A-Za-z_$][A-Za-z0-9_$]*)`)
	endpointPattern = regexp.MustCompile(`\.(get|post|put|patch|delete|HandleFunc|Handle)\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	commentPattern  = regexp.MustCompile(`^\s*(?://|#|/\*|\*)\s?(.*)`)
	todoPattern     = regexp.MustCompile(`\b(TODO|FIXME|HACK|NOTE)\b[:\s]+(.*)`)
)

// Analyzer is the regex fallback analyzer.
type Analyzer struct {
	// MaxBytes bounds how much of a file is scanned; 0 means no bound.
	MaxBytes int64
}

// New returns a text-scan analyzer with the given scan bound.
func New(maxBytes int64) *Analyzer {
	return &Analyzer{MaxBytes: maxBytes}
}

func (a *Analyzer) Name() string { return "text-scan" }

// Analyze scans the file line by line. It only fails on I/O errors; an empty
// or unrecognized file yields an empty result, not an error.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*analysis.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFileAccess, "text-scan", "open", path, err)
	}
	defer file.Close()

	result := &analysis.Result{Path: path}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var read int64
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		text := scanner.Text()
		read += int64(len(text)) + 1
		if a.MaxBytes > 0 && read > a.MaxBytes {
			break
		}

		a.scanLine(text, line, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrFileAccess, "text-scan", "read", path, err)
	}

	return result, nil
}

func (a *Analyzer) scanLine(text string, line int, result *analysis.Result) {
	if match := commentPattern.FindStringSubmatch(text); match != nil {
		body := strings.TrimSpace(match[1])
		if body != "" {
			result.Comments = append(result.Comments, analysis.Comment{Text: body, Line: line})
		}
		if todo := todoPattern.FindStringSubmatch(body); todo != nil {
			result.Todos = append(result.Todos, analysis.Todo{
				Marker: todo[1],
				Text:   strings.TrimSpace(todo[2]),
				Line:   line,
			})
		}
		return
	}

	for _, pattern := range functionPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			result.Functions = append(result.Functions, analysis.Function{
				Name:      match[1],
				Exported:  exportedName(match[1]),
				StartLine: line,
			})
			break
		}
	}

	if match := classPattern.FindStringSubmatch(text); match != nil {
		result.Classes = append(result.Classes, analysis.Class{
			Name:      match[1],
			Exported:  exportedName(match[1]),
			StartLine: line,
		})
	}
	if match := interfacePattern.FindStringSubmatch(text); match != nil {
		result.Interfaces = append(result.Interfaces, analysis.Interface{
			Name:      match[1],
			Exported:  exportedName(match[1]),
			StartLine: line,
		})
	}

	for _, pattern := range importPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			result.Imports = append(result.Imports, analysis.Import{Path: match[1], Line: line})
			break
		}
	}

	if strings.HasPrefix(strings.TrimSpace(text), "export ") || strings.Contains(text, "module.exports") {
		if match := exportPattern.FindStringSubmatch(text); match != nil && match[1] != "" {
			result.Exports = append(result.Exports, analysis.Export{Name: match[1], Line: line})
		}
	}

	if match := endpointPattern.FindStringSubmatch(text); match != nil {
		method := strings.ToUpper(match[1])
		route := match[2]
		if match[1] == "HandleFunc" || match[1] == "Handle" {
			method = ""
			if idx := strings.IndexByte(route, ' '); idx > 0 {
				method = route[:idx]
				route = route[idx+1:]
			}
		}
		result.APIEndpoints = append(result.APIEndpoints, analysis.APIEndpoint{
			Method: method,
			Route:  route,
			Line:   line,
		})
	}
}

func exportedName(name string) bool {
	if name == "" {
		return false
	}
	first := name[0]
	return first >= 'A' && first <= 'Z'
}
