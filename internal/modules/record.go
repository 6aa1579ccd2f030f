// Package modules implements the module-record/loader mechanism spec.md 6
// names ("a loader mechanism is in scope; specifier-resolution policy is a
// host hook"), grounded on funxy's internal/modules package: the same
// path-keyed load cache, cycle-detection-via-a-processing-set, and
// one-record-per-resolved-specifier shape funxy's own Loader/Module use,
// adapted from funxy's multi-file/package-declaration module model (a
// directory of files sharing one package name) to ES's one-file-one-module
// model.
//
// internal/ast/internal/parser/internal/compiler carry no import/export
// declaration syntax yet (see DESIGN.md's "ES module import/export syntax"
// open question), so a Record's RequestedModules/exports are populated
// through an explicit API (AddRequestedModule/DefineExport) a future
// front-end change would call while compiling an import/export statement,
// rather than being derived here from AST nodes that don't exist.
package modules

import (
	"github.com/google/uuid"

	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
)

// Status is a Record's position in the load/link/evaluate state machine,
// per spec.md 3's Module record description.
type Status int

const (
	StatusUnlinked Status = iota
	StatusLinking
	StatusLinked
	StatusEvaluating
	StatusEvaluated
	StatusEvaluatedError
)

func (s Status) String() string {
	switch s {
	case StatusUnlinked:
		return "unlinked"
	case StatusLinking:
		return "linking"
	case StatusLinked:
		return "linked"
	case StatusEvaluating:
		return "evaluating"
	case StatusEvaluated:
		return "evaluated"
	case StatusEvaluatedError:
		return "evaluated (error)"
	default:
		return "unknown"
	}
}

// Record is one loaded module: its resolved specifier, compiled code, link
// state, and namespace object. Record.ID is a random identity assigned at
// creation, independent of the specifier string; the loader's cache is
// keyed by specifier only.
type Record struct {
	ID         uuid.UUID
	Specifier  string // resolved, absolute specifier (cache key)
	SourcePath string

	Descriptor *bytecode.Descriptor
	Status     Status

	// RequestedModules is the set of specifiers, as written in source, this
	// module's import declarations name. Populated by AddRequestedModule;
	// empty until front-end import-statement support exists.
	RequestedModules []string

	// exports maps an exported binding name to its live value. A namespace
	// object's own properties mirror this map (see Namespace), so reading
	// through either the map or the namespace object gives the same answer.
	exports map[string]object.Value

	// Namespace is the module namespace object script sees for `import * as
	// ns`, built non-extensible per spec.md 4.B's Module namespace object
	// description.
	Namespace *object.Object

	// EvaluationResult/EvaluationError hold Evaluate's outcome, memoized so
	// a module evaluated from two different import sites runs its top-level
	// code exactly once (Testable Property: "a module's top-level code runs
	// at most once per realm, regardless of how many times it is
	// imported").
	EvaluationResult object.Value
	EvaluationError  error
}

// NewRecord builds an unlinked Record for specifier/sourcePath, with an
// empty namespace object ready to receive exports as they're defined.
func NewRecord(specifier, sourcePath string, desc *bytecode.Descriptor) *Record {
	rec := &Record{
		ID:         uuid.New(),
		Specifier:  specifier,
		SourcePath: sourcePath,
		Descriptor: desc,
		Status:     StatusUnlinked,
		exports:    make(map[string]object.Value),
	}
	rec.Namespace = object.NewNamespace(rec)
	return rec
}

// AddRequestedModule records that this module's source names specifier as
// an import target, in source order; duplicates are kept (Link dedupes via
// its own visited set) since spec.md's requested-module list is positional.
func (rec *Record) AddRequestedModule(specifier string) {
	rec.RequestedModules = append(rec.RequestedModules, specifier)
}

// DefineExport binds name to value in both the export map and the
// namespace object, per the Module namespace object's "own properties
// mirror the module's bindings" invariant. Exported bindings are writable
// (a re-assignment inside the module must be visible through the
// namespace) but not configurable, matching a namespace object's own
// property attributes.
func (rec *Record) DefineExport(name string, value object.Value) {
	rec.exports[name] = value
	rec.Namespace.DefineRaw(object.StringKey(name), object.DataSlot(value, true, true, false))
}

// GetExport looks up an exported binding by name.
func (rec *Record) GetExport(name string) (object.Value, bool) {
	v, ok := rec.exports[name]
	return v, ok
}

// ExportNames returns every exported binding name, in the order first
// defined (map iteration order otherwise being unspecified; callers that
// need namespace enumeration order should read rec.Namespace.OwnKeys
// instead, which preserves insertion order).
func (rec *Record) ExportNames() []string {
	names := make([]string, 0, len(rec.exports))
	for _, key := range rec.Namespace.OwnKeys(false, true) {
		if _, ok := rec.exports[key.String()]; ok {
			names = append(names, key.String())
		}
	}
	return names
}
