// Package preprocess rewrites `import`/`from ... import` lines into
// explicit loadModule bindings before tokenization (spec §4.3).
package preprocess

import (
	"path"
	"strings"

	"github.com/wudi/gscript/errs"
)

// Resolver canonicalizes module specs into path form and tracks which ones
// are being compiled, for cycle detection and caching. It does not touch
// the filesystem: finding a spec's source file is left to the caller
// (runtime.Runtime.findModuleFile), which reads SearchPaths.
type Resolver struct {
	searchPaths []string
	canonical   map[string]string
	visiting    map[string]bool
	discovered  []string // canonical specs seen for the first time, in order
}

// NewResolver builds a Resolver that carries searchPaths for SearchPaths;
// Resolve itself does not consult them.
func NewResolver(searchPaths []string) *Resolver {
	return &Resolver{
		searchPaths: searchPaths,
		canonical:   make(map[string]string),
		visiting:    make(map[string]bool),
	}
}

// SearchPaths exposes the configured search path list, for a caller
// resolving a canonical spec to an actual source file.
func (r *Resolver) SearchPaths() []string { return r.searchPaths }

// Take drains and returns every canonical spec discovered since the last
// Take call, letting a caller incrementally compile each newly-referenced
// module as Preprocess walks a file tree (runtime.Runtime.compileTree).
func (r *Resolver) Take() []string {
	out := r.discovered
	r.discovered = nil
	return out
}

// normalizeSpec turns a dotted module spec ("a.b.c") into path form
// ("a/b/c"); slash-form specs pass through unchanged.
func normalizeSpec(spec string) string {
	if strings.Contains(spec, "/") {
		return spec
	}
	return strings.ReplaceAll(spec, ".", "/")
}

// lastSegment returns the final dotted/slashed segment of a module spec,
// used as the default alias for a bare `import M`.
func lastSegment(spec string) string {
	norm := normalizeSpec(spec)
	return path.Base(norm)
}

// Resolve canonicalizes spec, memoizing the result, and raises
// errs.ErrImportCycle if spec is currently being resolved by an enclosing
// call (an import cycle).
func (r *Resolver) Resolve(spec string) (string, error) {
	norm := normalizeSpec(spec)
	if canon, ok := r.canonical[norm]; ok {
		if r.visiting[canon] {
			return "", errs.NewImport(errs.ErrImportCycle, "import cycle at %q", spec)
		}
		return canon, nil
	}
	if r.visiting[norm] {
		return "", errs.NewImport(errs.ErrImportCycle, "import cycle at %q", spec)
	}
	r.canonical[norm] = norm
	r.discovered = append(r.discovered, norm)
	return norm, nil
}

// Enter/Leave bracket the resolution of one module's body so nested
// imports can detect cycles back through it.
func (r *Resolver) Enter(canonical string) { r.visiting[canonical] = true }
func (r *Resolver) Leave(canonical string) { delete(r.visiting, canonical) }

// Preprocess rewrites every import line in source per spec §4.3 and
// returns the rewritten source, ready for tokenization.
func Preprocess(source string, resolver *Resolver) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		rewritten, err := rewriteLine(line, resolver)
		if err != nil {
			return "", err
		}
		out[i] = rewritten
	}
	return strings.Join(out, "\n"), nil
}

func rewriteLine(line string, resolver *Resolver) (string, error) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "from "):
		return rewriteFromImport(trimmed, resolver)
	case strings.HasPrefix(trimmed, "import "):
		return rewriteImport(trimmed, resolver)
	default:
		return line, nil
	}
}

// rewriteImport handles `import M [as N];`.
func rewriteImport(trimmed string, resolver *Resolver) (string, error) {
	rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "import ")), ";")
	spec, alias, hasAlias := splitAs(rest)
	if !hasAlias {
		alias = lastSegment(spec)
	}
	if _, err := resolver.Resolve(spec); err != nil {
		return "", err
	}
	return "let " + alias + " = loadModule(\"" + spec + "\");", nil
}

// rewriteFromImport handles `from M import a, b [as N];` and
// `from M import *` (alias required for the multi-name and star forms).
func rewriteFromImport(trimmed string, resolver *Resolver) (string, error) {
	rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "from ")), ";")
	parts := strings.SplitN(rest, " import ", 2)
	if len(parts) != 2 {
		return "", errs.NewImport(errs.ErrMalformedImport, "malformed import: %q", trimmed)
	}
	spec := strings.TrimSpace(parts[0])
	namesPart, alias, hasAlias := splitAs(strings.TrimSpace(parts[1]))

	if _, err := resolver.Resolve(spec); err != nil {
		return "", err
	}

	if namesPart == "*" {
		if !hasAlias {
			return "", errs.NewImport(errs.ErrMalformedImport, "from %s import * requires an alias", spec)
		}
		return "let " + alias + " = loadModule(\"" + spec + "\");", nil
	}

	names := splitNames(namesPart)
	if len(names) == 0 {
		return "", errs.NewImport(errs.ErrMalformedImport, "malformed import list in %q", trimmed)
	}
	if len(names) == 1 && !hasAlias {
		return "let " + names[0] + " = loadModule(\"" + spec + "\", \"" + names[0] + "\");", nil
	}
	if !hasAlias {
		return "", errs.NewImport(errs.ErrMalformedImport, "from %s import %s requires an alias", spec, namesPart)
	}
	var b strings.Builder
	b.WriteString("let ")
	b.WriteString(alias)
	b.WriteString(" = loadModule(\"")
	b.WriteString(spec)
	b.WriteString("\"")
	for _, n := range names {
		b.WriteString(", \"")
		b.WriteString(n)
		b.WriteString("\"")
	}
	b.WriteString(");")
	return b.String(), nil
}

// splitAs extracts a trailing " as Alias" suffix, if present.
func splitAs(s string) (rest, alias string, hasAlias bool) {
	idx := strings.LastIndex(s, " as ")
	if idx < 0 {
		return strings.TrimSpace(s), "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+4:]), true
}

func splitNames(s string) []string {
	raw := strings.Split(s, ",")
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}
