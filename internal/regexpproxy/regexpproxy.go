// Package regexpproxy implements spec.md 6's RegExpProxy interface — the
// seam that keeps the regular-expression engine proper an external
// collaborator rather than a core-engine concern: compile(source, flags),
// exec(handle, input, index, lastIndexOut), wrapRegExp(compiled), and
// register(scope, sealed). This package ships the *default* implementation,
// grounded on Go's standard `regexp` package, since no JS-syntax regex
// engine exists anywhere in the example corpus — it is explicitly a
// swappable default, not "the" engine (spec.md 1's framing); package
// stdlib's RegExp global (regexp.go) is the only caller.
package regexpproxy

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Flags is the parsed form of a JS regex literal's flag string ("gimsuy").
type Flags struct {
	Global     bool
	IgnoreCase bool
	Multiline  bool
	DotAll     bool
	Unicode    bool
	Sticky     bool
	Source     string // original flag string, for RegExp.prototype.flags
}

func ParseFlags(s string) (Flags, error) {
	var f Flags
	f.Source = s
	seen := make(map[rune]bool)
	for _, c := range s {
		if seen[c] {
			return f, fmt.Errorf("duplicate regular expression flag %q", c)
		}
		seen[c] = true
		switch c {
		case 'g':
			f.Global = true
		case 'i':
			f.IgnoreCase = true
		case 'm':
			f.Multiline = true
		case 's':
			f.DotAll = true
		case 'u':
			f.Unicode = true
		case 'y':
			f.Sticky = true
		default:
			return f, fmt.Errorf("invalid regular expression flag %q", c)
		}
	}
	return f, nil
}

// Handle is an opaque compiled-pattern handle, per spec.md 6's
// compile(source, flags) → opaque handle contract.
type Handle struct {
	Source string
	Flags  Flags
	re     *regexp.Regexp
}

// Match is one exec() result: the matched substring, its start/end byte
// offsets into input (translated to rune offsets by the caller, since
// spec.md 4.A indexes strings by code point), and any named/numbered
// captures.
type Match struct {
	Index  int // rune index of the match start
	Groups []Group
}

type Group struct {
	Value string
	Found bool
	Name  string // "" if unnamed
}

// Proxy is the default RegExpProxy: a compile cache (regex compilation is
// comparatively expensive, and the same literal is re-executed on every
// loop iteration a script runs it in) guarded by a mutex, per spec.md 5's
// "the regex proxy is process-wide and must be concurrency-safe for
// read-mostly workloads" shared-resource policy.
type Proxy struct {
	mu    sync.RWMutex
	cache map[string]*Handle
}

func NewProxy() *Proxy {
	return &Proxy{cache: make(map[string]*Handle)}
}

func cacheKey(source, flags string) string { return flags + "\x00" + source }

// Compile translates a JS-syntax pattern to Go's RE2 syntax on a best-effort
// basis and compiles it, caching the result. RE2 cannot express backreferences
// or lookaround assertions at all (spec.md 1's documented proxy limitation);
// such patterns fail to compile here and the caller surfaces that as a
// script-level SyntaxError rather than silently misbehaving.
func (p *Proxy) Compile(source, flagStr string) (*Handle, error) {
	flags, ferr := ParseFlags(flagStr)
	if ferr != nil {
		return nil, ferr
	}
	key := cacheKey(source, flagStr)
	p.mu.RLock()
	if h, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return h, nil
	}
	p.mu.RUnlock()

	translated, terr := translate(source, flags)
	if terr != nil {
		return nil, terr
	}
	re, err := regexp.Compile(translated)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", source, err)
	}
	h := &Handle{Source: source, Flags: flags, re: re}

	p.mu.Lock()
	p.cache[key] = h
	p.mu.Unlock()
	return h, nil
}

// Exec runs handle against input starting the search at the rune index
// start, per spec.md 6's exec(handle, input, index, lastIndexOut) contract
// (lastIndexOut is the caller's responsibility — RegExp.prototype.exec,
// stdlib/regexp.go — to write back onto the RegExp object's lastIndex
// property for the /g and /y flags).
func (p *Proxy) Exec(handle *Handle, input string, start int) (*Match, bool) {
	runes := []rune(input)
	if start < 0 || start > len(runes) {
		return nil, false
	}
	byteStart := len(string(runes[:start]))
	rest := input[byteStart:]

	var loc []int
	if handle.Flags.Sticky {
		loc = handle.re.FindStringSubmatchIndex(rest)
		if loc != nil && loc[0] != 0 {
			loc = nil
		}
	} else {
		loc = handle.re.FindStringSubmatchIndex(rest)
	}
	if loc == nil {
		return nil, false
	}

	names := handle.re.SubexpNames()
	groupCount := len(loc) / 2
	groups := make([]Group, groupCount)
	for i := 0; i < groupCount; i++ {
		lo, hi := loc[2*i], loc[2*i+1]
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if lo < 0 {
			groups[i] = Group{Found: false, Name: name}
			continue
		}
		groups[i] = Group{Value: rest[lo:hi], Found: true, Name: name}
	}

	matchStartByte := byteStart + loc[0]
	matchStartRune := len([]rune(input[:matchStartByte]))

	return &Match{Index: matchStartRune, Groups: groups}, true
}

// translate rewrites a subset of ECMAScript regex syntax into Go's RE2
// dialect: (?i) inline flag injection for IgnoreCase, (?s) for DotAll,
// (?m) for Multiline, and named group syntax (?<name>...) to RE2's
// (?P<name>...). Constructs RE2 fundamentally cannot express (backreferences
// `\1`, lookahead/lookbehind `(?=`/`(?!`/`(?<=`/`(?<!`) are left as a
// documented limitation: they pass through unmodified and RE2 itself
// rejects them, which surfaces to script as a SyntaxError from Compile.
func translate(source string, flags Flags) (string, error) {
	var sb strings.Builder
	if flags.IgnoreCase {
		sb.WriteString("(?i)")
	}
	if flags.DotAll {
		sb.WriteString("(?s)")
	}
	if flags.Multiline {
		sb.WriteString("(?m)")
	}
	sb.WriteString(strings.ReplaceAll(source, "(?<", "(?P<"))
	out := sb.String()
	// A named backreference rewrite above would also turn (?<= and (?<!
	// lookbehind assertions into invalid (?P<=.../(?P<!... groups; detect
	// and revert those two specific cases so they fail compilation with
	// Go's own "invalid or unsupported Perl syntax" message instead of a
	// confusing one about a malformed group name.
	out = strings.ReplaceAll(out, "(?P<=", "(?<=")
	out = strings.ReplaceAll(out, "(?P<!", "(?<!")
	return out, nil
}
