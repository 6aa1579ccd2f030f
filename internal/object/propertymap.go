package object

// Slot is a single property-map entry: either a data slot (Value) or an
// accessor slot (Get/Set), plus the three standard attributes. Grounded on
// spec.md 3's slot description; IsConst/TDZ-uninitialized tracking for
// `let`/`const` bindings live on scope.Binding instead (see package scope),
// since those are lexical-binding concepts, not object-property concepts —
// object properties never enter a TDZ themselves.
type Slot struct {
	Value        Value
	Get          *Object // non-nil iff IsAccessor
	Set          *Object // non-nil iff IsAccessor
	IsAccessor   bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

func DataSlot(v Value, writable, enumerable, configurable bool) *Slot {
	return &Slot{Value: v, Writable: writable, Enumerable: enumerable, Configurable: configurable}
}

func AccessorSlot(get, set *Object, enumerable, configurable bool) *Slot {
	return &Slot{Get: get, Set: set, IsAccessor: true, Enumerable: enumerable, Configurable: configurable}
}

// PropertyMap holds an object's own properties, preserving the three-way
// enumeration order Testable Property 1 requires: ascending integer-index
// keys, then string keys in insertion order, then symbol keys in insertion
// order. A dense slice covers small contiguous indices (the common array
// case); anything else falls into the sparse/string maps.
type PropertyMap struct {
	dense     []*Slot // index i holds key i, nil entries are holes
	sparse    map[uint32]*Slot
	strOrder  []string
	strSlots  map[string]*Slot
	symOrder  []*Symbol
	symSlots  map[*Symbol]*Slot
}

func NewPropertyMap() *PropertyMap {
	return &PropertyMap{
		strSlots: make(map[string]*Slot),
		symSlots: make(map[*Symbol]*Slot),
	}
}

const denseGrowthCap = 1 << 20 // beyond this, new high indices go to sparse storage

// Get returns the slot for key, or nil if absent on this map (the caller
// walks the prototype chain itself; PropertyMap never does).
func (m *PropertyMap) Get(key PropertyKey) *Slot {
	switch {
	case key.IsIndex():
		idx := key.Index()
		if int(idx) < len(m.dense) {
			return m.dense[idx]
		}
		if m.sparse != nil {
			return m.sparse[idx]
		}
		return nil
	case key.IsSymbol():
		return m.symSlots[key.Symbol()]
	default:
		return m.strSlots[key.String()]
	}
}

// Set installs or replaces the slot for key, tracking insertion order for
// string/symbol keys the first time they appear.
func (m *PropertyMap) Set(key PropertyKey, slot *Slot) {
	switch {
	case key.IsIndex():
		idx := key.Index()
		if idx < denseGrowthCap && (len(m.dense) > 0 || idx < 4096) {
			for uint32(len(m.dense)) <= idx {
				m.dense = append(m.dense, nil)
			}
			m.dense[idx] = slot
			return
		}
		if m.sparse == nil {
			m.sparse = make(map[uint32]*Slot)
		}
		m.sparse[idx] = slot
	case key.IsSymbol():
		sym := key.Symbol()
		if _, exists := m.symSlots[sym]; !exists {
			m.symOrder = append(m.symOrder, sym)
		}
		m.symSlots[sym] = slot
	default:
		s := key.String()
		if _, exists := m.strSlots[s]; !exists {
			m.strOrder = append(m.strOrder, s)
		}
		m.strSlots[s] = slot
	}
}

// Delete removes key's slot. Returns false if nothing was removed.
func (m *PropertyMap) Delete(key PropertyKey) bool {
	switch {
	case key.IsIndex():
		idx := key.Index()
		if int(idx) < len(m.dense) {
			if m.dense[idx] == nil {
				return false
			}
			m.dense[idx] = nil
			return true
		}
		if m.sparse != nil {
			if _, ok := m.sparse[idx]; ok {
				delete(m.sparse, idx)
				return true
			}
		}
		return false
	case key.IsSymbol():
		sym := key.Symbol()
		if _, ok := m.symSlots[sym]; !ok {
			return false
		}
		delete(m.symSlots, sym)
		m.symOrder = removeSymbol(m.symOrder, sym)
		return true
	default:
		s := key.String()
		if _, ok := m.strSlots[s]; !ok {
			return false
		}
		delete(m.strSlots, s)
		m.strOrder = removeString(m.strOrder, s)
		return true
	}
}

func removeString(order []string, s string) []string {
	for i, v := range order {
		if v == s {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func removeSymbol(order []*Symbol, s *Symbol) []*Symbol {
	for i, v := range order {
		if v == s {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// OwnKeys returns keys in enumeration order: ascending indices, then string
// keys in insertion order, then symbol keys in insertion order. Set
// includeSymbols/includeNonEnumerable to false to filter as ownKeys callers
// commonly need (e.g. for-in only wants enumerable string keys).
func (m *PropertyMap) OwnKeys(includeSymbols, includeNonEnumerable bool) []PropertyKey {
	var keys []PropertyKey
	for i, slot := range m.dense {
		if slot == nil {
			continue
		}
		if !includeNonEnumerable && !slot.Enumerable {
			continue
		}
		keys = append(keys, IndexKey(uint32(i)))
	}
	if len(m.sparse) > 0 {
		sparseKeys := sparseKeysSorted(m.sparse)
		for _, idx := range sparseKeys {
			slot := m.sparse[idx]
			if !includeNonEnumerable && !slot.Enumerable {
				continue
			}
			keys = append(keys, IndexKey(idx))
		}
	}
	for _, s := range m.strOrder {
		slot := m.strSlots[s]
		if !includeNonEnumerable && !slot.Enumerable {
			continue
		}
		keys = append(keys, StringKey(s))
	}
	if includeSymbols {
		for _, sym := range m.symOrder {
			slot := m.symSlots[sym]
			if !includeNonEnumerable && !slot.Enumerable {
				continue
			}
			keys = append(keys, SymKey(sym))
		}
	}
	return keys
}

func sparseKeysSorted(m map[uint32]*Slot) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// insertion sort is fine: sparse overflow maps are expected to be small
	// in practice (dense contiguous indices never spill here).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Len reports the number of own slots (including non-enumerable ones, but
// not holes in the dense section).
func (m *PropertyMap) Len() int {
	n := 0
	for _, s := range m.dense {
		if s != nil {
			n++
		}
	}
	n += len(m.sparse) + len(m.strSlots) + len(m.symSlots)
	return n
}
