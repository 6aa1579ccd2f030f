package object

import "strconv"

// PropertyKey is either a string, a symbol, or a canonical array index.
// Numeric string keys are canonicalized to index form per spec.md 3
// ("numeric string keys are canonicalized to integer index form"); this
// canonicalization happens once, at key-construction time, rather than on
// every map operation.
type PropertyKey struct {
	sym     *Symbol
	str     string
	index   uint32
	isIndex bool
	isSym   bool
}

// MaxIndex is the largest canonical array index, 2^32 - 2 (ToUint32(length)
// tops out at 2^32 - 1, and the largest valid index is length-1).
const MaxIndex = 4294967294

// StringKey builds a PropertyKey from a string, canonicalizing it to an
// index key when it is the exact decimal rendering of an in-range integer.
func StringKey(s string) PropertyKey {
	if idx, ok := canonicalIndex(s); ok {
		return PropertyKey{isIndex: true, index: idx}
	}
	return PropertyKey{str: s}
}

func IndexKey(i uint32) PropertyKey {
	return PropertyKey{isIndex: true, index: i}
}

func SymKey(s *Symbol) PropertyKey {
	return PropertyKey{isSym: true, sym: s}
}

func canonicalIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n > MaxIndex {
		return 0, false
	}
	// Reject forms with information loss (leading zeros handled above);
	// the round trip check guards against non-decimal quirks of ParseUint.
	if strconv.FormatUint(n, 10) != s {
		return 0, false
	}
	return uint32(n), true
}

func (k PropertyKey) IsIndex() bool  { return k.isIndex }
func (k PropertyKey) IsSymbol() bool { return k.isSym }
func (k PropertyKey) Index() uint32  { return k.index }
func (k PropertyKey) Symbol() *Symbol {
	return k.sym
}

// String returns the key's string form: the decimal index for index keys,
// the raw string for string keys, and the symbol's description for symbol
// keys (callers that need to distinguish a symbol from its description
// must check IsSymbol first — this is only for display).
func (k PropertyKey) String() string {
	switch {
	case k.isIndex:
		return strconv.FormatUint(uint64(k.index), 10)
	case k.isSym:
		return k.sym.Description
	default:
		return k.str
	}
}

// mapKey is the comparable Go value used to index the string/symbol maps.
type mapKey struct {
	sym *Symbol
	str string
}

func (k PropertyKey) mapKey() mapKey {
	if k.isSym {
		return mapKey{sym: k.sym}
	}
	return mapKey{str: k.str}
}
