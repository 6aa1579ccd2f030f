package modules

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/config"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/pipeline"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/utils"
)

// Evaluator runs a compiled module's top-level code once, returning its
// completion value. Package vm's *vm.VM.RunProgram has exactly this
// signature, so a Loader is built with that method as its evaluator
// directly — internal/modules never imports internal/vm, the same
// "depend on the narrow function shape, not the concrete engine" pattern
// runtime.Invoker already uses for script-to-native calls.
type Evaluator func(desc *bytecode.Descriptor) (object.Value, *runtime.EcmaError)

// Resolver turns an import specifier written in referrer into an absolute,
// cache-key specifier. DefaultResolver implements plain relative/absolute
// filesystem resolution; a host can install a different policy (e.g.
// bare-specifier package resolution) since spec.md 6 treats
// specifier-resolution policy as a host hook, independent of the loader
// mechanism itself.
type Resolver func(referrer, specifier string) (string, error)

// Loader loads, links, and evaluates module Records, caching by resolved
// specifier. Grounded on funxy's Loader (LoadedModules/Processing maps,
// Load/loadDir), generalized from funxy's directory-of-files package model
// to ES's one-file-one-module model: LoadModule reads and compiles exactly
// one source file per call rather than scanning a directory for sibling
// files sharing a package declaration.
type Loader struct {
	records    map[string]*Record // by resolved specifier
	processing map[string]bool    // cycle detection during Link
	resolve    Resolver
	evaluate   Evaluator
}

// NewLoader builds a Loader. resolver, if nil, defaults to DefaultResolver.
func NewLoader(resolver Resolver, evaluate Evaluator) *Loader {
	if resolver == nil {
		resolver = DefaultResolver
	}
	return &Loader{
		records:    make(map[string]*Record),
		processing: make(map[string]bool),
		resolve:    resolver,
		evaluate:   evaluate,
	}
}

// DefaultResolver resolves a specifier relative to referrer's directory
// when it starts with "." or "/", appending config.SourceFileExt if the
// specifier names no recognized source extension, matching funxy's own
// "resolve relative to the importing file, default to the standard
// extension" convention (internal/utils.ResolveImportPath/GetModuleDir).
func DefaultResolver(referrer, specifier string) (string, error) {
	base := utils.GetModuleDir(referrer)
	resolved := utils.ResolveImportPath(base, specifier)
	if !config.HasSourceExt(resolved) {
		resolved += config.SourceFileExt
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving module specifier %q from %q: %w", specifier, referrer, err)
	}
	return abs, nil
}

// GetCachedModule returns an already-loaded Record for resolvedSpecifier,
// without touching the filesystem.
func (l *Loader) GetCachedModule(resolvedSpecifier string) (*Record, bool) {
	rec, ok := l.records[resolvedSpecifier]
	return rec, ok
}

// ResolveModule applies the Loader's Resolver, the host-hook-governed half
// of module resolution spec.md 6 separates from the loader mechanism.
func (l *Loader) ResolveModule(referrer, specifier string) (string, error) {
	return l.resolve(referrer, specifier)
}

// LoadModule resolves specifier against referrer, then reads, parses, and
// compiles the target file into a cached, StatusUnlinked Record. A cache
// hit short-circuits straight to the existing Record, so re-importing the
// same module from two different referrers returns the identical Record
// (and therefore the identical namespace object), per spec.md 3's "a
// module's Record is keyed by its resolved specifier, not by the import
// site".
func (l *Loader) LoadModule(referrer, specifier string) (*Record, error) {
	resolved, err := l.resolve(referrer, specifier)
	if err != nil {
		return nil, err
	}
	if rec, ok := l.records[resolved]; ok {
		return rec, nil
	}

	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("loading module %q: %w", resolved, err)
	}

	desc, errs := pipeline.CompileSource(resolved, string(src))
	if len(errs) > 0 {
		return nil, fmt.Errorf("compiling module %q: %w", resolved, errs[0])
	}

	rec := NewRecord(resolved, resolved, desc)
	l.records[resolved] = rec
	return rec, nil
}

// Link transitively loads rec's requested modules and advances rec through
// StatusLinking to StatusLinked. A module already past StatusUnlinked
// returns immediately, so an import cycle links without error (the
// l.processing guard below is never reached by a cycle). A module with no
// requested modules (the common case until front-end import-statement
// support exists, see record.go's package doc) links trivially.
func (l *Loader) Link(rec *Record) error {
	if rec.Status != StatusUnlinked {
		return nil
	}
	if l.processing[rec.Specifier] {
		return fmt.Errorf("circular dependency detected linking module: %s", rec.Specifier)
	}
	l.processing[rec.Specifier] = true
	defer delete(l.processing, rec.Specifier)

	rec.Status = StatusLinking
	for _, spec := range rec.RequestedModules {
		dep, err := l.LoadModule(rec.SourcePath, spec)
		if err != nil {
			return fmt.Errorf("linking %s: %w", rec.Specifier, err)
		}
		if err := l.Link(dep); err != nil {
			return err
		}
	}
	rec.Status = StatusLinked
	return nil
}

// Evaluate runs rec's top-level code exactly once (memoized via
// EvaluationResult/EvaluationError), per the Testable Property that a
// module's body never re-runs across repeated imports. Dependencies are
// evaluated first, depth-first, matching the standard module-evaluation
// order (a dependency's top-level side effects are observable before its
// importer's).
func (l *Loader) Evaluate(rec *Record) (object.Value, error) {
	switch rec.Status {
	case StatusEvaluated:
		return rec.EvaluationResult, nil
	case StatusEvaluatedError:
		return object.Undefined, rec.EvaluationError
	case StatusEvaluating:
		// A module importing itself transitively observes its own
		// in-progress (possibly partially-populated) namespace rather than
		// re-entering evaluation, per the standard cyclic-module-evaluation
		// rule.
		return object.Undefined, nil
	}
	if rec.Status != StatusLinked {
		if err := l.Link(rec); err != nil {
			return object.Undefined, err
		}
	}

	rec.Status = StatusEvaluating
	for _, spec := range rec.RequestedModules {
		resolved, err := l.resolve(rec.SourcePath, spec)
		if err != nil {
			rec.Status = StatusEvaluatedError
			rec.EvaluationError = err
			return object.Undefined, err
		}
		dep, ok := l.records[resolved]
		if !ok {
			continue
		}
		if _, err := l.Evaluate(dep); err != nil {
			rec.Status = StatusEvaluatedError
			rec.EvaluationError = err
			return object.Undefined, err
		}
	}

	result, ecmaErr := l.evaluate(rec.Descriptor)
	if ecmaErr != nil {
		rec.Status = StatusEvaluatedError
		rec.EvaluationError = fmt.Errorf("%s", describeThrown(ecmaErr.Value))
		return object.Undefined, rec.EvaluationError
	}
	rec.Status = StatusEvaluated
	rec.EvaluationResult = result
	return result, nil
}

// describeThrown renders a thrown value for the plain-Go error this
// package's API returns; script-level error detail (stack, ErrorData) is
// available to a caller that wants it via ecmaErr.Value directly.
func describeThrown(v object.Value) string {
	if v.IsObject() && v.AsObject().ErrorData != nil {
		return v.AsObject().ErrorData.ErrorKind + ": " + v.AsObject().ErrorData.Message
	}
	if v.IsString() {
		return v.AsString()
	}
	return v.TypeName()
}
