package object

import "github.com/google/uuid"

// Symbol has unique identity independent of its description; two symbols
// created with the same description are never equal. Registered symbols
// (Symbol.for) share identity for the same registry key, tracked by the
// process-wide registry below.
//
// Identity is a uuid rather than a bare pointer comparison so that a
// serialized/restored engine snapshot (see internal/bytecode's descriptor
// round-trip) can still tell two symbols apart without relying on Go
// pointer equality surviving a round trip.
type Symbol struct {
	id          uuid.UUID
	Description string
	// RegisteredKey is set iff this symbol was produced by Symbol.for;
	// it is the key used to find it again in the global registry.
	RegisteredKey string
}

func NewSymbol(description string) *Symbol {
	return &Symbol{id: uuid.New(), Description: description}
}

func (s *Symbol) ID() uuid.UUID { return s.id }

// symbolRegistry backs Symbol.for/Symbol.keyFor. It is process-wide per
// spec.md 5 ("the interned string pool, the class cache, and the regex
// proxy are process-wide"); symbols registered via Symbol.for share that
// same process-wide visibility.
type symbolRegistry struct {
	byKey map[string]*Symbol
}

func newSymbolRegistry() *symbolRegistry {
	return &symbolRegistry{byKey: make(map[string]*Symbol)}
}

// globalRegistry backs the exported SymbolFor/SymbolKeyFor wrappers below,
// the process-wide instance Symbol.for/Symbol.keyFor (package stdlib) need.
var globalRegistry = newSymbolRegistry()

// SymbolFor implements Symbol.for(key): the process-wide registry lookup
// package stdlib's Symbol global wraps directly.
func SymbolFor(key string) *Symbol {
	return globalRegistry.For(key)
}

// SymbolKeyFor implements Symbol.keyFor(sym).
func SymbolKeyFor(sym *Symbol) (string, bool) {
	return globalRegistry.KeyFor(sym)
}

func (r *symbolRegistry) For(key string) *Symbol {
	if sym, ok := r.byKey[key]; ok {
		return sym
	}
	sym := &Symbol{id: uuid.New(), Description: key, RegisteredKey: key}
	r.byKey[key] = sym
	return sym
}

func (r *symbolRegistry) KeyFor(sym *Symbol) (string, bool) {
	if sym.RegisteredKey == "" {
		return "", false
	}
	_, ok := r.byKey[sym.RegisteredKey]
	return sym.RegisteredKey, ok
}

// Well-known symbols, created once. Spec.md references @@toPrimitive,
// @@iterator and @@asyncIterator by name; the rest of the well-known set
// is provided for completeness of the Symbol global.
var (
	SymToPrimitive   = NewSymbol("Symbol.toPrimitive")
	SymIterator      = NewSymbol("Symbol.iterator")
	SymAsyncIterator = NewSymbol("Symbol.asyncIterator")
	SymHasInstance   = NewSymbol("Symbol.hasInstance")
	SymToStringTag   = NewSymbol("Symbol.toStringTag")
	SymSpecies       = NewSymbol("Symbol.species")
	SymUnscopables   = NewSymbol("Symbol.unscopables")
)
