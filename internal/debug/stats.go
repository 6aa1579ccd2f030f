package debug

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of process-wide heap/GC figures (no CLI command in
// this package prints it), and
// the only heap/stack usage this engine can report since the VM itself
// keeps no separate allocator (every value lives on the Go heap, managed
// by the Go runtime's own GC) — grounded on funxy's stepping debugger
// "stats" command, whose own figures (funxy has no custom allocator either)
// come from the same runtime.MemStats source.
type Stats struct {
	HeapAlloc    uint64
	HeapObjects  uint64
	StackInUse   uint64
	NumGoroutine int
	NumGC        uint32
}

// Collect reads Go's current runtime.MemStats.
func Collect() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:    m.HeapAlloc,
		HeapObjects:  m.HeapObjects,
		StackInUse:   m.StackInuse,
		NumGoroutine: runtime.NumGoroutine(),
		NumGC:        m.NumGC,
	}
}

// String renders Stats in humanize'd form, e.g.
// "heap: 2.1 MB (14,302 objects), stack: 32 kB, goroutines: 3, gc runs: 5".
func (s Stats) String() string {
	return fmt.Sprintf(
		"heap: %s (%s objects), stack: %s, goroutines: %d, gc runs: %d",
		humanize.Bytes(s.HeapAlloc),
		humanize.Comma(int64(s.HeapObjects)),
		humanize.Bytes(s.StackInUse),
		s.NumGoroutine,
		s.NumGC,
	)
}
