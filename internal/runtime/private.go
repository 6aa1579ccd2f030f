package runtime

import "github.com/ecmavm/engine/internal/object"

// PrivateName is the brand token a class's `#field`/`#method` compiles to.
// Identity, not name, is what a private member keys by: two classes that
// both declare `#x` never collide, matching the spec's per-class-evaluation
// private-name freshness rule. Stored as a *PrivateName pointer in an
// object's Associated map (object.go's "keys by a *PrivateName pointer"
// comment), so object itself never needs to know about classes.
type PrivateName struct {
	Description string
	IsMethod    bool
	IsAccessor  bool
	Get         *object.Object
	Set         *object.Object
}

func NewPrivateName(description string) *PrivateName {
	return &PrivateName{Description: description}
}

// DefinePrivateField installs a private data field on a freshly constructed
// instance, run once per PrivateName per instance at construction time
// (class.go's field-initializer pass), never reassignable to a different
// PrivateName afterward.
func DefinePrivateField(o *object.Object, pn *PrivateName, value object.Value) {
	o.SetAssociated(pn, value)
}

// CheckBrand implements CHECK_BRAND: a private member access first verifies
// the receiver actually has pn installed (an instance of the declaring
// class), raising TypeError rather than silently reading undefined the way
// an ordinary missing property would — per spec.md 4.F's private-member
// access semantics, since `#x` syntax simply doesn't exist outside a class
// body, any lookup failure here is a brand mismatch, not a typo.
func CheckBrand(r *Realm, receiver object.Value, pn *PrivateName) *EcmaError {
	if !receiver.IsObject() {
		return r.TypeError("Cannot read private member %s from an object whose class did not declare it", pn.Description)
	}
	if _, ok := receiver.AsObject().GetAssociated(pn); !ok {
		return r.TypeError("Cannot read private member %s from an object whose class did not declare it", pn.Description)
	}
	return nil
}

// GetPrivate implements GET_PRIVATE: brand-checks, then reads either the
// stored field value or invokes the accessor/method getter.
func GetPrivate(r *Realm, receiver object.Value, pn *PrivateName) (object.Value, *EcmaError) {
	if err := CheckBrand(r, receiver, pn); err != nil {
		return object.Undefined, err
	}
	if pn.IsMethod {
		return object.FromObject(pn.Get), nil
	}
	if pn.IsAccessor {
		if pn.Get == nil {
			return object.Undefined, r.TypeError("'%s' was defined without a getter", pn.Description)
		}
		return r.Invoker.Call(pn.Get, receiver, nil)
	}
	v, _ := receiver.AsObject().GetAssociated(pn)
	return v, nil
}

// SetPrivate implements SET_PRIVATE: brand-checks, then writes the field or
// invokes the accessor/method setter, rejecting a write to a private method
// (methods are never assignable, matching spec.md's class semantics) or a
// write-only-less accessor.
func SetPrivate(r *Realm, receiver object.Value, pn *PrivateName, value object.Value) *EcmaError {
	if err := CheckBrand(r, receiver, pn); err != nil {
		return err
	}
	if pn.IsMethod {
		return r.TypeError("'%s' was defined without a setter", pn.Description)
	}
	if pn.IsAccessor {
		if pn.Set == nil {
			return r.TypeError("'%s' was defined without a setter", pn.Description)
		}
		_, err := r.Invoker.Call(pn.Set, receiver, []object.Value{value})
		return err
	}
	receiver.AsObject().SetAssociated(pn, value)
	return nil
}
