// Package goast analyzes Go source files with the standard library parser.
// It is the native analyzer for .go files; other languages go through the
// tree-sitter or text-scan analyzers.
package goast

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"docsync/internal/analysis"
	"docsync/internal/services"
)

// Analyzer parses Go files into analysis results.
type Analyzer struct{}

// New returns the Go AST analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Name() string { return "go-ast" }

// Analyze parses the file and extracts declarations, imports, comments, and
// TODO markers. Parser failures are tagged ErrParser so the executor can
// fall through to the text-scan analyzer.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*analysis.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrFileAccess, "go-ast", "stat", path, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		// A partial AST is not trusted here; failing lets the executor fall
		// through to the text-scan analyzer for degraded extraction.
		return nil, services.Wrap(services.ErrParser, "go-ast", "parse", path, err)
	}

	result := &analysis.Result{
		Path:     path,
		Language: "go",
	}

	for _, imp := range file.Imports {
		record := analysis.Import{
			Path: strings.Trim(imp.Path.Value, `"`),
			Line: fset.Position(imp.Pos()).Line,
		}
		if imp.Name != nil && imp.Name.Name != "." && imp.Name.Name != "_" {
			record.Alias = imp.Name.Name
		}
		result.Imports = append(result.Imports, record)
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			result.Functions = append(result.Functions, extractFunction(fset, d))
			collectEndpoints(fset, d, result)
		case *ast.GenDecl:
			extractGenDecl(fset, d, result)
		}
	}

	for _, group := range file.Comments {
		for _, comment := range group.List {
			line := fset.Position(comment.Pos()).Line
			text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))
			result.Comments = append(result.Comments, analysis.Comment{Text: text, Line: line})
			if todo, ok := extractTodo(text, line); ok {
				result.Todos = append(result.Todos, todo)
			}
		}
	}

	return result, nil
}

func extractFunction(fset *token.FileSet, fn *ast.FuncDecl) analysis.Function {
	record := analysis.Function{
		Name:      fn.Name.Name,
		Signature: functionSignature(fn),
		Exported:  ast.IsExported(fn.Name.Name),
		StartLine: fset.Position(fn.Pos()).Line,
		EndLine:   fset.Position(fn.End()).Line,
	}
	if fn.Doc != nil {
		record.Doc = strings.TrimSpace(fn.Doc.Text())
	}
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		record.Receiver = exprString(fn.Recv.List[0].Type)
	}
	return record
}

func extractGenDecl(fset *token.FileSet, decl *ast.GenDecl, result *analysis.Result) {
	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := docText(ts.Doc, decl.Doc)
			line := fset.Position(ts.Pos()).Line
			switch t := ts.Type.(type) {
			case *ast.StructType:
				result.Classes = append(result.Classes, analysis.Class{
					Name:      ts.Name.Name,
					Fields:    structFields(t),
					Doc:       doc,
					Exported:  ast.IsExported(ts.Name.Name),
					StartLine: line,
				})
			case *ast.InterfaceType:
				result.Interfaces = append(result.Interfaces, analysis.Interface{
					Name:      ts.Name.Name,
					Methods:   interfaceMethods(t),
					Doc:       doc,
					Exported:  ast.IsExported(ts.Name.Name),
					StartLine: line,
				})
			default:
				if ast.IsExported(ts.Name.Name) {
					result.Exports = append(result.Exports, analysis.Export{
						Name: ts.Name.Name,
						Kind: "type",
						Line: line,
					})
				}
			}
		}
	case token.CONST, token.VAR:
		kind := "const"
		if decl.Tok == token.VAR {
			kind = "var"
		}
		for _, spec := range decl.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range vs.Names {
				if !ast.IsExported(name.Name) {
					continue
				}
				result.Exports = append(result.Exports, analysis.Export{
					Name: name.Name,
					Kind: kind,
					Line: fset.Position(name.Pos()).Line,
				})
			}
		}
	}
}

// collectEndpoints records http.HandleFunc / mux.HandleFunc style route
// registrations found inside function bodies.
func collectEndpoints(fset *token.FileSet, fn *ast.FuncDecl, result *analysis.Result) {
	if fn.Body == nil {
		return
	}
	ast.Inspect(fn.Body, func(node ast.Node) bool {
		call, ok := node.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		switch sel.Sel.Name {
		case "HandleFunc", "Handle":
		default:
			return true
		}
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		route := strings.Trim(lit.Value, `"`)
		method := ""
		// Go 1.22 mux patterns embed the method: "GET /path".
		if idx := strings.IndexByte(route, ' '); idx > 0 {
			method = route[:idx]
			route = route[idx+1:]
		}
		result.APIEndpoints = append(result.APIEndpoints, analysis.APIEndpoint{
			Method: method,
			Route:  route,
			Line:   fset.Position(call.Pos()).Line,
		})
		return true
	})
}

func functionSignature(fn *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		b.WriteString("(")
		b.WriteString(exprString(fn.Recv.List[0].Type))
		b.WriteString(") ")
	}
	b.WriteString(fn.Name.Name)
	b.WriteString("(")
	b.WriteString(fieldListString(fn.Type.Params))
	b.WriteString(")")
	if results := fieldListString(fn.Type.Results); results != "" {
		if fn.Type.Results != nil && (len(fn.Type.Results.List) > 1 || len(fn.Type.Results.List[0].Names) > 0) {
			b.WriteString(" (")
			b.WriteString(results)
			b.WriteString(")")
		} else {
			b.WriteString(" ")
			b.WriteString(results)
		}
	}
	return b.String()
}

func fieldListString(fields *ast.FieldList) string {
	if fields == nil || len(fields.List) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields.List))
	for _, field := range fields.List {
		typeStr := exprString(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typeStr)
			continue
		}
		names := make([]string, 0, len(field.Names))
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typeStr)
	}
	return strings.Join(parts, ", ")
}

func structFields(st *ast.StructType) []string {
	if st.Fields == nil {
		return nil
	}
	out := make([]string, 0, len(st.Fields.List))
	for _, field := range st.Fields.List {
		typeStr := exprString(field.Type)
		if len(field.Names) == 0 {
			out = append(out, typeStr)
			continue
		}
		for _, name := range field.Names {
			out = append(out, name.Name+" "+typeStr)
		}
	}
	return out
}

func interfaceMethods(it *ast.InterfaceType) []string {
	if it.Methods == nil {
		return nil
	}
	out := make([]string, 0, len(it.Methods.List))
	for _, method := range it.Methods.List {
		if len(method.Names) == 0 {
			out = append(out, exprString(method.Type))
			continue
		}
		for _, name := range method.Names {
			out = append(out, name.Name)
		}
	}
	return out
}

func docText(specDoc, declDoc *ast.CommentGroup) string {
	if specDoc != nil {
		return strings.TrimSpace(specDoc.Text())
	}
	if declDoc != nil {
		return strings.TrimSpace(declDoc.Text())
	}
	return ""
}

var todoMarkers = []string{"TODO", "FIXME", "HACK", "NOTE"}

func extractTodo(text string, line int) (analysis.Todo, bool) {
	upper := strings.ToUpper(text)
	for _, marker := range todoMarkers {
		if strings.HasPrefix(upper, marker+":") || strings.HasPrefix(upper, marker+" ") {
			return analysis.Todo{
				Marker: marker,
				Text:   strings.TrimSpace(text[len(marker):][1:]),
				Line:   line,
			}, true
		}
	}
	return analysis.Todo{}, false
}

func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.ArrayType:
		if e.Len == nil {
			return "[]" + exprString(e.Elt)
		}
		return "[" + exprString(e.Len) + "]" + exprString(e.Elt)
	case *ast.MapType:
		return "map[" + exprString(e.Key) + "]" + exprString(e.Value)
	case *ast.ChanType:
		switch e.Dir {
		case ast.SEND:
			return "chan<- " + exprString(e.Value)
		case ast.RECV:
			return "<-chan " + exprString(e.Value)
		default:
			return "chan " + exprString(e.Value)
		}
	case *ast.FuncType:
		return "func(" + fieldListString(e.Params) + ")"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.StructType:
		return "struct{}"
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	case *ast.BasicLit:
		return e.Value
	case *ast.Ellipsis:
		return "..." + exprString(e.Elt)
	case *ast.ParenExpr:
		return "(" + exprString(e.X) + ")"
	case *ast.IndexExpr:
		return exprString(e.X) + "[" + exprString(e.Index) + "]"
	default:
		return "?"
	}
}
