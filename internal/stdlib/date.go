package stdlib

import (
	"math"
	"time"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installDateProto implements Date.prototype's getters plus toISOString/
// toString/valueOf. Dates are stored as a millisecond-since-epoch float on
// object.Object.DateValue (NaN for an invalid date), per spec.md 4.B; every
// getter reads UTC fields, since the engine has no host-timezone-database
// story and funxy has no Date type at all to generalize from — this is
// built directly from ECMA-262's epoch-millisecond Date model.
func installDateProto(r *runtime.Realm, proto *object.Object) {
	this := func(rt *runtime.Realm, v object.Value) (*object.Object, *runtime.EcmaError) {
		if !v.IsObject() || v.AsObject().Kind != object.KindDate {
			return nil, rt.TypeError("Date.prototype method called on incompatible receiver")
		}
		return v.AsObject(), nil
	}
	field := func(name string, get func(time.Time) float64) {
		method(r, proto, name, 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			o, err := this(rt, v)
			if err != nil {
				return object.Undefined, err
			}
			if math.IsNaN(o.DateValue) {
				return object.Float64(math.NaN()), nil
			}
			return object.Float64(get(msToTime(o.DateValue))), nil
		})
	}
	field("getFullYear", func(t time.Time) float64 { return float64(t.Year()) })
	field("getUTCFullYear", func(t time.Time) float64 { return float64(t.Year()) })
	field("getMonth", func(t time.Time) float64 { return float64(int(t.Month()) - 1) })
	field("getUTCMonth", func(t time.Time) float64 { return float64(int(t.Month()) - 1) })
	field("getDate", func(t time.Time) float64 { return float64(t.Day()) })
	field("getUTCDate", func(t time.Time) float64 { return float64(t.Day()) })
	field("getDay", func(t time.Time) float64 { return float64(int(t.Weekday())) })
	field("getUTCDay", func(t time.Time) float64 { return float64(int(t.Weekday())) })
	field("getHours", func(t time.Time) float64 { return float64(t.Hour()) })
	field("getUTCHours", func(t time.Time) float64 { return float64(t.Hour()) })
	field("getMinutes", func(t time.Time) float64 { return float64(t.Minute()) })
	field("getUTCMinutes", func(t time.Time) float64 { return float64(t.Minute()) })
	field("getSeconds", func(t time.Time) float64 { return float64(t.Second()) })
	field("getUTCSeconds", func(t time.Time) float64 { return float64(t.Second()) })
	field("getMilliseconds", func(t time.Time) float64 { return float64(t.Nanosecond() / 1e6) })
	field("getUTCMilliseconds", func(t time.Time) float64 { return float64(t.Nanosecond() / 1e6) })
	field("getTimezoneOffset", func(t time.Time) float64 { return 0 })

	method(r, proto, "getTime", 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		return object.Float64(o.DateValue), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		return object.Float64(o.DateValue), nil
	})
	method(r, proto, "setTime", 1, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		n, nerr := runtime.ToNumber(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		o.DateValue = n
		return object.Float64(n), nil
	})
	method(r, proto, "toISOString", 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		if math.IsNaN(o.DateValue) {
			return object.Undefined, rt.RangeError("Invalid time value")
		}
		return object.String(msToTime(o.DateValue).UTC().Format("2006-01-02T15:04:05.000Z")), nil
	})
	method(r, proto, "toJSON", 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		if math.IsNaN(o.DateValue) {
			return object.Null, nil
		}
		return object.String(msToTime(o.DateValue).UTC().Format("2006-01-02T15:04:05.000Z")), nil
	})
	method(r, proto, "toString", 0, func(rt *runtime.Realm, v object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := this(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		if math.IsNaN(o.DateValue) {
			return object.String("Invalid Date"), nil
		}
		return object.String(msToTime(o.DateValue).UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (UTC)")), nil
	})
}

func msToTime(ms float64) time.Time {
	return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC()
}

func timeToMs(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// installDateConstructor builds the global Date function: new Date() (now),
// new Date(ms), new Date(dateString) (best-effort RFC3339/ISO parse), and
// new Date(y, m, d, h, mi, s, ms), plus the Date.now() static.
func installDateConstructor(r *runtime.Realm, global *object.Object) {
	construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o := object.NewObjectWithKind(r.DateProto, object.KindDate, "Date")
		switch len(args) {
		case 0:
			o.DateValue = timeToMs(time.Now())
		case 1:
			if args[0].IsString() {
				t, perr := parseDate(args[0].AsString())
				if perr != nil {
					o.DateValue = math.NaN()
				} else {
					o.DateValue = timeToMs(t)
				}
			} else {
				n, nerr := runtime.ToNumber(rt, args[0])
				if nerr != nil {
					return object.Undefined, nerr
				}
				o.DateValue = n
			}
		default:
			comps := make([]int, 7)
			comps[2] = 1 // day defaults to 1
			for i := 0; i < len(args) && i < 7; i++ {
				n, nerr := runtime.ToNumber(rt, args[i])
				if nerr != nil {
					return object.Undefined, nerr
				}
				comps[i] = int(n)
			}
			year := comps[0]
			if year >= 0 && year <= 99 {
				year += 1900
			}
			t := time.Date(year, time.Month(comps[1]+1), comps[2], comps[3], comps[4], comps[5], comps[6]*1e6, time.UTC)
			o.DateValue = timeToMs(t)
		}
		return object.FromObject(o), nil
	}
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.String(time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (UTC)")), nil
	}
	ctor := newConstructor(r, "Date", 7, call, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return construct(rt, this, args)
	}, r.DateProto)
	method(r, ctor, "now", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.Float64(timeToMs(time.Now())), nil
	})
	global.DefineRaw(object.StringKey("Date"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

func parseDate(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05", "2006-01-02", time.RFC1123, time.RFC1123Z}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
