package vm

import (
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/stdlib"
)

// bootstrapRealm builds a fresh Realm for a new VM: package stdlib supplies
// every intrinsic prototype and global binding it can build on its own
// (Object/Array/String/Number/.../Error/Math/console/...), and this
// function fills in the one prototype stdlib cannot build itself —
// Generator.prototype, whose next/throw/return methods need the VM's own
// goroutine-based resumeGenerator plumbing (generator.go) — before handing
// the realm back to New(). Grounded on funxy's vm.New()+RegisterFPTraits()
// split of "construct the VM" from "populate its global/trait tables".
func bootstrapRealm(v *VM) *runtime.Realm {
	r := stdlib.Bootstrap(v)
	v.realm = r
	r.GeneratorProto = newGeneratorProto(v)
	return r
}
