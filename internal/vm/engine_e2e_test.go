package vm

import (
	"testing"

	"github.com/ecmavm/engine/internal/pipeline"
	"github.com/ecmavm/engine/internal/runtime"
)

// runScript drives the full lexer->parser->compiler->vm pipeline on a
// literal source string and returns the top-level completion value (or the
// uncaught EcmaError's description), matching how cmd/esrun itself runs a
// script.
func runScript(t *testing.T, src string) string {
	t.Helper()
	desc, errs := pipeline.CompileSource("<test>", src)
	if len(errs) > 0 {
		t.Fatalf("compile errors for %q: %v", src, errs)
	}
	v := New()
	result, ecmaErr := v.RunProgram(desc)
	if ecmaErr != nil {
		return ecmaErr.Error()
	}
	s, err := runtime.ToString(v.Realm(), result)
	if err != nil {
		t.Fatalf("stringifying result of %q: %v", src, err)
	}
	return s
}

// TestScenarioS1TDZReadInOwnInitializer: reading `let x` in its own
// initializer (`x = x`) is a ReferenceError, not a read of undefined.
func TestScenarioS1TDZReadInOwnInitializer(t *testing.T) {
	got := runScript(t, `(function(){ let x; try { x = x; } catch(e) { return e.name; } return 'ok'; })()`)
	if got != "ReferenceError" {
		t.Fatalf("S1: got %q, want %q", got, "ReferenceError")
	}
}

// TestScenarioS2FormalParameterCount: Function.length is the declared
// parameter count, independent of how many arguments were actually passed.
func TestScenarioS2FormalParameterCount(t *testing.T) {
	got := runScript(t, `(function f(a,b,c){return f.length})(1)`)
	if got != "3" {
		t.Fatalf("S2: got %q, want %q", got, "3")
	}
}

// TestScenarioS3ArrayFromArrayLike: Array.from reads an array-like's
// `length` and indexed properties, not just iterables.
func TestScenarioS3ArrayFromArrayLike(t *testing.T) {
	got := runScript(t, `
		const a = Array.from({length: 3, 0:'a', 1:'b', 2:'c'});
		JSON.stringify(a) + ' ' + a.length + ' ' + JSON.stringify(Object.keys(a));
	`)
	want := `["a","b","c"] 3 ["0","1","2"]`
	if got != want {
		t.Fatalf("S3: got %q, want %q", got, want)
	}
}

// TestScenarioS4GeneratorProtocol: a generator yields each value in order,
// then reports done:true with its return value, then undefined forever.
func TestScenarioS4GeneratorProtocol(t *testing.T) {
	got := runScript(t, `
		const g = (function*(){ yield 1; yield 2; return 3; })();
		const r1 = g.next(), r2 = g.next(), r3 = g.next(), r4 = g.next();
		JSON.stringify([r1,r2,r3,r4]);
	`)
	want := `[{"value":1,"done":false},{"value":2,"done":false},{"value":3,"done":true},{"done":true}]`
	if got != want {
		t.Fatalf("S4: got %q, want %q", got, want)
	}
}

// TestScenarioS5DerivedConstructorBadReturn: a derived constructor that
// returns a non-object without ever calling super() is a ReferenceError
// (this was never bound), not the TypeError a same-shaped base-class
// constructor return would be.
func TestScenarioS5DerivedConstructorBadReturn(t *testing.T) {
	got := runScript(t, `
		class A{}
		class B extends A { constructor(){ return 42; } }
		let name;
		try { new B(); } catch(e){ name = e.name; }
		name;
	`)
	if got != "ReferenceError" {
		t.Fatalf("S5: got %q, want %q", got, "ReferenceError")
	}
}

// TestScenarioS6LooseEquality: loose-equality coercion across string,
// number, null/undefined, and BigInt operands.
func TestScenarioS6LooseEquality(t *testing.T) {
	got := runScript(t, `0 == '' && 0 == '0' && '' != '0' && null == undefined && 1n == 1 && 1n != '1n'`)
	if got != "true" {
		t.Fatalf("S6: got %q, want %q", got, "true")
	}
}

// TestTDZNeverObservableAsTypeof rounds out Testable Property 4 at the
// full-pipeline level: typeof on a TDZ binding throws rather than quietly
// reporting "undefined" (see internal/compiler's OpGetVarTypeof).
func TestTDZNeverObservableAsTypeof(t *testing.T) {
	got := runScript(t, `
		let out;
		try { out = typeof tdz; } catch(e) { out = e.name; }
		let tdz = 1;
		out;
	`)
	if got != "ReferenceError" {
		t.Fatalf("got %q, want %q", got, "ReferenceError")
	}
}
