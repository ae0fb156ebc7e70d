// Package treesitter provides grammar-backed analyzers for JavaScript,
// TypeScript, and Python built on tree-sitter. Each analyzer compiles a
// fixed set of queries against its grammar and maps captures onto the
// shared result types.
package treesitter

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"docsync/internal/analysis"
	"docsync/internal/services"
)

// queryKind names what a compiled query extracts.
type queryKind int

const (
	queryFunctions queryKind = iota
	queryClasses
	queryInterfaces
	queryImports
	queryComments
	queryEndpoints
)

type querySpec struct {
	kind    queryKind
	pattern string
}

var todoPattern = regexp.MustCompile(`\b(TODO|FIXME|HACK|NOTE)\b[:\s]+(.*)`)

var routeMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
}

// Analyzer parses one language with tree-sitter.
type Analyzer struct {
	name    string
	lang    *sitter.Language
	queries []querySpec
}

// NewJavaScript returns the tree-sitter analyzer for .js and .jsx files.
func NewJavaScript() *Analyzer {
	return &Analyzer{
		name: "tree-sitter-javascript",
		lang: javascript.GetLanguage(),
		queries: []querySpec{
			{queryFunctions, `(function_declaration name: (identifier) @name parameters: (formal_parameters) @params)`},
			{queryFunctions, `(method_definition name: (property_identifier) @name parameters: (formal_parameters) @params)`},
			{queryClasses, `(class_declaration name: (identifier) @name)`},
			{queryImports, `(import_statement source: (string) @source)`},
			{queryComments, `(comment) @comment`},
			{queryEndpoints, `(call_expression function: (member_expression property: (property_identifier) @method) arguments: (arguments (string) @route))`},
		},
	}
}

// NewTypeScript returns the tree-sitter analyzer for .ts files. The grammar
// extends JavaScript's, so the query set extends it too.
func NewTypeScript() *Analyzer {
	return &Analyzer{
		name: "tree-sitter-typescript",
		lang: typescript.GetLanguage(),
		queries: []querySpec{
			{queryFunctions, `(function_declaration name: (identifier) @name parameters: (formal_parameters) @params)`},
			{queryFunctions, `(method_definition name: (property_identifier) @name parameters: (formal_parameters) @params)`},
			{queryClasses, `(class_declaration name: (type_identifier) @name)`},
			{queryInterfaces, `(interface_declaration name: (type_identifier) @name)`},
			{queryImports, `(import_statement source: (string) @source)`},
			{queryComments, `(comment) @comment`},
			{queryEndpoints, `(call_expression function: (member_expression property: (property_identifier) @method) arguments: (arguments (string) @route))`},
		},
	}
}

// NewTSX returns the tree-sitter analyzer for .tsx files. The grammar is
// TypeScript's with JSX enabled, so it shares the TypeScript query set.
func NewTSX() *Analyzer {
	a := NewTypeScript()
	a.name = "tree-sitter-tsx"
	a.lang = tsx.GetLanguage()
	return a
}

// NewPython returns the tree-sitter analyzer for .py files.
func NewPython() *Analyzer {
	return &Analyzer{
		name: "tree-sitter-python",
		lang: python.GetLanguage(),
		queries: []querySpec{
			{queryFunctions, `(function_definition name: (identifier) @name parameters: (parameters) @params)`},
			{queryClasses, `(class_definition name: (identifier) @name)`},
			{queryImports, `(import_statement name: (dotted_name) @module)`},
			{queryImports, `(import_from_statement module_name: (dotted_name) @module)`},
			{queryComments, `(comment) @comment`},
		},
	}
}

func (a *Analyzer) Name() string { return a.name }

// Analyze parses the file and runs the analyzer's query set over the tree.
// Tree-sitter tolerates malformed input by inserting error nodes, so a parse
// only counts as failed when nothing at all could be extracted.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*analysis.Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFileAccess, a.name, "read", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(a.lang)
	tree := parser.Parse(nil, source)
	if tree == nil {
		return nil, services.Wrap(services.ErrParser, a.name, "parse", path, errors.New("parser produced no tree"))
	}
	defer tree.Close()

	result := &analysis.Result{Path: path, Language: a.languageLabel()}
	root := tree.RootNode()

	for _, spec := range a.queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query, err := sitter.NewQuery([]byte(spec.pattern), a.lang)
		if err != nil {
			return nil, services.Wrap(services.ErrParser, a.name, "compile-query", spec.pattern, err)
		}
		a.runQuery(query, spec.kind, root, source, result)
		query.Close()
	}

	if root.HasError() && result.FactCount() == 0 {
		return nil, services.Wrap(services.ErrParser, a.name, "parse", path, errors.New("syntax errors prevented extraction"))
	}
	return result, nil
}

func (a *Analyzer) runQuery(query *sitter.Query, kind queryKind, root *sitter.Node, source []byte, result *analysis.Result) {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, root)

	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		captures := map[string]*sitter.Node{}
		for _, cap := range match.Captures {
			captures[query.CaptureNameForId(cap.Index)] = cap.Node
		}
		a.record(kind, captures, source, result)
	}
}

func (a *Analyzer) record(kind queryKind, captures map[string]*sitter.Node, source []byte, result *analysis.Result) {
	switch kind {
	case queryFunctions:
		name := captures["name"]
		if name == nil {
			return
		}
		fn := analysis.Function{
			Name:      name.Content(source),
			Exported:  exportedName(name.Content(source)),
			StartLine: lineOf(name),
		}
		if params := captures["params"]; params != nil {
			fn.Signature = fn.Name + params.Content(source)
			fn.EndLine = int(params.Parent().EndPoint().Row) + 1
		}
		result.Functions = append(result.Functions, fn)

	case queryClasses:
		name := captures["name"]
		if name == nil {
			return
		}
		result.Classes = append(result.Classes, analysis.Class{
			Name:      name.Content(source),
			Exported:  exportedName(name.Content(source)),
			StartLine: lineOf(name),
		})

	case queryInterfaces:
		name := captures["name"]
		if name == nil {
			return
		}
		result.Interfaces = append(result.Interfaces, analysis.Interface{
			Name:      name.Content(source),
			Exported:  exportedName(name.Content(source)),
			StartLine: lineOf(name),
		})

	case queryImports:
		var node *sitter.Node
		if node = captures["source"]; node == nil {
			node = captures["module"]
		}
		if node == nil {
			return
		}
		result.Imports = append(result.Imports, analysis.Import{
			Path: strings.Trim(node.Content(source), `'"`),
			Line: lineOf(node),
		})

	case queryComments:
		node := captures["comment"]
		if node == nil {
			return
		}
		text := trimCommentMarkers(node.Content(source))
		if text == "" {
			return
		}
		result.Comments = append(result.Comments, analysis.Comment{Text: text, Line: lineOf(node)})
		if todo := todoPattern.FindStringSubmatch(text); todo != nil {
			result.Todos = append(result.Todos, analysis.Todo{
				Marker: todo[1],
				Text:   strings.TrimSpace(todo[2]),
				Line:   lineOf(node),
			})
		}

	case queryEndpoints:
		method := captures["method"]
		route := captures["route"]
		if method == nil || route == nil {
			return
		}
		verb := method.Content(source)
		if !routeMethods[verb] {
			return
		}
		result.APIEndpoints = append(result.APIEndpoints, analysis.APIEndpoint{
			Method: strings.ToUpper(verb),
			Route:  strings.Trim(route.Content(source), `'"`),
			Line:   lineOf(route),
		})
	}
}

func (a *Analyzer) languageLabel() string {
	return strings.TrimPrefix(a.name, "tree-sitter-")
}

func lineOf(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func trimCommentMarkers(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimPrefix(text, "#")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	return strings.TrimSpace(text)
}

func exportedName(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}
