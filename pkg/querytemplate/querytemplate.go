// Package querytemplate implements the query template evaluator: a query's
// text is a Go text/template with fields resolved in layers (user-defined
// fields, overridden by environment fields, overridden by a reserved run_day
// field and any per-render fields).
//
// Field substitution uses Go's func-as-variable trick: every provided field
// is registered as a zero-argument template function, so a bare `{{ name }}`
// reference in template text resolves to that field's value, while
// conditionals and loops use Go's native `{{if}}`/`{{range}}` directives.
package querytemplate

import (
	"bytes"
	"fmt"
	"text/template"
	"text/template/parse"

	"github.com/nexustables/managedtable/internal/apperrors"
)

// RuntimeField is a template field name supplied only at render time, never
// by a user- or environment-provided field map. run_day is the one runtime
// field the core itself reserves.
const RuntimeField = "run_day"

// helperName is the one process-wide template helper registered alongside
// every field function. It is neither a provided field nor a reserved
// runtime field: a template may call it to abort rendering with a message.
const helperName = "raise_template_exception"

var builtinIdentifiers = map[string]struct{}{
	"and": {}, "call": {}, "html": {}, "index": {}, "slice": {}, "js": {},
	"len": {}, "not": {}, "or": {}, "print": {}, "printf": {}, "println": {},
	"urlquery": {}, "eq": {}, "ne": {}, "lt": {}, "le": {}, "gt": {}, "ge": {},
	helperName: {},
}

// Template is a query template whose provided fields have already been
// validated against the reserved field set and the template's own
// undeclared variables.
type Template struct {
	text     string
	provided map[string]any
}

// New validates and constructs a Template from raw text plus a
// user-provided and environment-provided field map. Environment fields take
// precedence over user fields with the same name.
//
// Construction fails if:
//   - a user or environment field is named run_day, the reserved runtime
//     field;
//   - the template references a variable that is neither a provided field
//     nor run_day.
func New(text string, envFields, userFields map[string]any) (*Template, error) {
	provided := mergeFields(userFields, envFields)
	if _, reserved := provided[RuntimeField]; reserved {
		return nil, apperrors.NewTemplateError(
			fmt.Sprintf("template field %q is reserved for the run day and cannot be provided", RuntimeField))
	}

	required, err := undeclaredVariables(text)
	if err != nil {
		return nil, apperrors.NewTemplateError(fmt.Sprintf("parsing template: %s", err))
	}
	for name := range required {
		if name == RuntimeField {
			continue
		}
		if _, ok := provided[name]; !ok {
			return nil, apperrors.NewTemplateError(
				fmt.Sprintf("template references undeclared field %q", name))
		}
	}

	return &Template{text: text, provided: provided}, nil
}

// Render executes the template for a given run day, layering runTimeFields
// (and run_day itself) over the provided fields. Render's own signature
// matches domain.QueryRenderer, so a *Template's Render method can be used
// directly wherever a QueryRenderer is expected.
func (t *Template) Render(runDay string, runTimeFields map[string]any) (string, error) {
	fields := mergeFields(t.provided, map[string]any{RuntimeField: runDay})
	fields = mergeFields(fields, runTimeFields)

	funcs := template.FuncMap{
		helperName: func(message string) (string, error) {
			return "", apperrors.NewTemplateError(message)
		},
	}
	for name, value := range fields {
		value := value
		funcs[name] = func() any { return value }
	}

	tmpl, err := template.New("query").Funcs(funcs).Parse(t.text)
	if err != nil {
		return "", apperrors.NewTemplateError(fmt.Sprintf("parsing template: %s", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		if templateErr, ok := asTemplateError(err); ok {
			return "", templateErr
		}
		return "", apperrors.NewTemplateError(fmt.Sprintf("rendering template: %s", err))
	}
	return buf.String(), nil
}

func asTemplateError(err error) (*apperrors.TemplateError, bool) {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if te, ok := e.(*apperrors.TemplateError); ok {
			return te, true
		}
		u, ok := e.(unwrapper)
		if !ok {
			return nil, false
		}
		e = u.Unwrap()
	}
	return nil, false
}

func mergeFields(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// undeclaredVariables parses text and returns the set of bare identifiers
// it references as zero-argument function calls, excluding Go template
// builtins and the process-wide helper. Since field substitution relies on
// registering each field as a template function, the template must be
// parsed once with function-name checking disabled (parse.SkipFuncCheck)
// to discover which names it needs before any FuncMap exists to supply
// them.
func undeclaredVariables(text string) (map[string]struct{}, error) {
	t := parse.New("query")
	t.Mode = parse.SkipFuncCheck
	tree, err := t.Parse(text, "", "", make(map[string]*parse.Tree))
	if err != nil {
		return nil, err
	}

	vars := make(map[string]struct{})
	walk(tree.Root, vars)
	return vars, nil
}

func walk(n parse.Node, vars map[string]struct{}) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *parse.ListNode:
		if v == nil {
			return
		}
		for _, c := range v.Nodes {
			walk(c, vars)
		}
	case *parse.ActionNode:
		walk(v.Pipe, vars)
	case *parse.PipeNode:
		if v == nil {
			return
		}
		for _, cmd := range v.Cmds {
			walk(cmd, vars)
		}
	case *parse.CommandNode:
		for _, arg := range v.Args {
			walk(arg, vars)
		}
	case *parse.IdentifierNode:
		if _, ok := builtinIdentifiers[v.Ident]; !ok {
			vars[v.Ident] = struct{}{}
		}
	case *parse.IfNode:
		walk(v.Pipe, vars)
		walk(v.List, vars)
		walk(v.ElseList, vars)
	case *parse.RangeNode:
		walk(v.Pipe, vars)
		walk(v.List, vars)
		walk(v.ElseList, vars)
	case *parse.WithNode:
		walk(v.Pipe, vars)
		walk(v.List, vars)
		walk(v.ElseList, vars)
	case *parse.TemplateNode:
		walk(v.Pipe, vars)
	}
}
