// JSON.stringify/JSON.parse, grounded on funxy's internal/evaluator
// builtins_json.go (a recursive encode/decode pair keyed off the dynamic
// value's runtime kind, with a toJSON-method hook and a replacer/reviver
// callback), adapted from funxy's own Value union to this engine's
// object.Value/object.Object kinds.
package stdlib

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func installJSON(r *runtime.Realm, global *object.Object) {
	jsonObj := object.NewObject(r.ObjectProto)
	method(r, jsonObj, "stringify", 3, jsonStringify)
	method(r, jsonObj, "parse", 2, jsonParse)
	global.DefineRaw(object.StringKey("JSON"), object.DataSlot(object.FromObject(jsonObj), true, false, true))
}

func jsonStringify(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	replacer := arg(args, 1)
	indent, err := jsonIndent(r, arg(args, 2))
	if err != nil {
		return object.Undefined, err
	}

	var keyFilter map[string]bool
	var replacerFn *object.Object
	if replacer.IsObject() {
		if object.IsCallable(replacer.AsObject()) {
			replacerFn = replacer.AsObject()
		} else if arr := replacer.AsObject(); arr.Kind == object.KindArray {
			keyFilter = make(map[string]bool)
			for i := uint32(0); i < arr.ArrayLength; i++ {
				k := arr.GetIndex(i)
				if k.IsString() {
					keyFilter[k.AsString()] = true
				} else if k.IsNumber() {
					keyFilter[runtime.NumberToString(k.NumberValue())] = true
				}
			}
		}
	}

	enc := &jsonEncoder{r: r, indent: indent, keyFilter: keyFilter, replacerFn: replacerFn, seen: map[*object.Object]bool{}}
	holder := object.NewObject(r.ObjectProto)
	holder.DefineRaw(object.StringKey(""), object.DataSlot(arg(args, 0), true, true, true))
	v, omitted, err := enc.encodeProperty(holder, "", arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	if omitted {
		return object.Undefined, nil
	}
	return object.String(v), nil
}

func jsonIndent(r *runtime.Realm, v object.Value) (string, *runtime.EcmaError) {
	switch {
	case v.IsNumber():
		n := int(v.NumberValue())
		if n < 0 {
			n = 0
		}
		if n > 10 {
			n = 10
		}
		return strings.Repeat(" ", n), nil
	case v.IsString():
		s := v.AsString()
		if len(s) > 10 {
			s = s[:10]
		}
		return s, nil
	default:
		return "", nil
	}
}

type jsonEncoder struct {
	r          *runtime.Realm
	indent     string
	keyFilter  map[string]bool
	replacerFn *object.Object
	seen       map[*object.Object]bool
}

// encodeProperty applies the toJSON hook and replacer function to holder[key]
// (already known to be value), then encodes the result. The "omitted" return
// covers undefined/function/symbol values, which JSON.stringify drops
// entirely rather than encoding as anything.
func (e *jsonEncoder) encodeProperty(holder *object.Object, key string, value object.Value) (string, bool, *runtime.EcmaError) {
	if value.IsObject() {
		toJSON := runtime.GetProperty(e.r, value, object.StringKey("toJSON"))
		if toJSON.IsObject() && object.IsCallable(toJSON.AsObject()) {
			v, err := e.r.Invoker.Call(toJSON.AsObject(), value, []object.Value{object.String(key)})
			if err != nil {
				return "", false, err
			}
			value = v
		}
	}
	if e.replacerFn != nil {
		v, err := e.r.Invoker.Call(e.replacerFn, object.FromObject(holder), []object.Value{object.String(key), value})
		if err != nil {
			return "", false, err
		}
		value = v
	}
	return e.encodeValue(value, "")
}

func (e *jsonEncoder) encodeValue(value object.Value, curIndent string) (string, bool, *runtime.EcmaError) {
	if value.IsObject() {
		o := value.AsObject()
		if object.IsCallable(o) {
			return "", true, nil
		}
		switch o.Kind {
		case object.KindArray:
			s, err := e.encodeArray(o, curIndent)
			return s, false, err
		default:
			if boxed, ok := boxedPrimitive(o); ok {
				return e.encodeValue(boxed, curIndent)
			}
			s, err := e.encodeObject(o, curIndent)
			return s, false, err
		}
	}
	switch {
	case value.IsUndefined():
		return "", true, nil
	case value.IsSymbol():
		return "", true, nil
	case value.IsNull():
		return "null", false, nil
	case value.IsBoolean():
		if value.AsBoolean() {
			return "true", false, nil
		}
		return "false", false, nil
	case value.IsNumber():
		f := value.NumberValue()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "null", false, nil
		}
		return runtime.NumberToString(f), false, nil
	case value.IsBigInt():
		return "", false, e.r.TypeError("Do not know how to serialize a BigInt")
	case value.IsString():
		return quoteJSONString(value.AsString()), false, nil
	default:
		return "", true, nil
	}
}

// boxedPrimitive unwraps a Number/String/Boolean wrapper object, per the
// standard JSON.stringify step that treats a boxed primitive as its
// primitive value.
func boxedPrimitive(o *object.Object) (object.Value, bool) {
	if o.ClassName != "Number" && o.ClassName != "String" && o.ClassName != "Boolean" {
		return object.Undefined, false
	}
	return runtime.PrimitiveValueOf(o)
}

func (e *jsonEncoder) encodeArray(arr *object.Object, curIndent string) (string, *runtime.EcmaError) {
	if e.seen[arr] {
		return "", e.r.TypeError("Converting circular structure to JSON")
	}
	e.seen[arr] = true
	defer delete(e.seen, arr)

	nextIndent := curIndent + e.indent
	parts := make([]string, arr.ArrayLength)
	for i := uint32(0); i < arr.ArrayLength; i++ {
		s, omitted, err := e.encodeProperty(arr, strconv.FormatUint(uint64(i), 10), arr.GetIndex(i))
		if err != nil {
			return "", err
		}
		if omitted {
			s = "null"
		}
		parts[i] = s
	}
	if len(parts) == 0 {
		return "[]", nil
	}
	if e.indent == "" {
		return "[" + strings.Join(parts, ",") + "]", nil
	}
	sep := ",\n" + nextIndent
	return "[\n" + nextIndent + strings.Join(parts, sep) + "\n" + curIndent + "]", nil
}

func (e *jsonEncoder) encodeObject(o *object.Object, curIndent string) (string, *runtime.EcmaError) {
	if e.seen[o] {
		return "", e.r.TypeError("Converting circular structure to JSON")
	}
	e.seen[o] = true
	defer delete(e.seen, o)

	nextIndent := curIndent + e.indent
	var entries []string
	for _, key := range o.OwnKeys(false, false) {
		k := key.String()
		if e.keyFilter != nil && !e.keyFilter[k] {
			continue
		}
		propVal := runtime.GetProperty(e.r, object.FromObject(o), key)
		s, omitted, err := e.encodeProperty(o, k, propVal)
		if err != nil {
			return "", err
		}
		if omitted {
			continue
		}
		if e.indent == "" {
			entries = append(entries, quoteJSONString(k)+":"+s)
		} else {
			entries = append(entries, quoteJSONString(k)+": "+s)
		}
	}
	if len(entries) == 0 {
		return "{}", nil
	}
	if e.indent == "" {
		return "{" + strings.Join(entries, ",") + "}", nil
	}
	sep := ",\n" + nextIndent
	return "{\n" + nextIndent + strings.Join(entries, sep) + "\n" + curIndent + "}", nil
}

var jsonEscapes = map[rune]string{
	'"':  `\"`,
	'\\': `\\`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

func quoteJSONString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if esc, ok := jsonEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		if r < 0x20 {
			b.WriteString("\\u")
			b.WriteString(strconv.FormatInt(int64(r), 16))
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// jsonParse parses args[0] into a value tree, then applies the optional
// reviver function bottom-up per the standard JSON.parse algorithm (walk
// every property of the parsed value depth-first, calling reviver(key,
// value) and replacing or deleting the property with the result).
func jsonParse(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	src, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	p := &jsonParser{r: r, src: []rune(src)}
	p.skipWhitespace()
	v, perr := p.parseValue()
	if perr != nil {
		return object.Undefined, perr
	}
	p.skipWhitespace()
	if p.pos != len(p.src) {
		return object.Undefined, r.NewError("SyntaxError", "Unexpected non-whitespace character after JSON at position %d", p.pos)
	}

	reviver := arg(args, 1)
	if reviver.IsObject() && object.IsCallable(reviver.AsObject()) {
		holder := object.NewObject(r.ObjectProto)
		holder.DefineRaw(object.StringKey(""), object.DataSlot(v, true, true, true))
		return reviveWalk(r, reviver.AsObject(), holder, "")
	}
	return v, nil
}

func reviveWalk(r *runtime.Realm, reviver *object.Object, holder *object.Object, key string) (object.Value, *runtime.EcmaError) {
	value := runtime.GetProperty(r, object.FromObject(holder), object.StringKey(key))
	if value.IsObject() {
		o := value.AsObject()
		if o.Kind == object.KindArray {
			for i := uint32(0); i < o.ArrayLength; i++ {
				revived, err := reviveWalk(r, reviver, o, strconv.FormatUint(uint64(i), 10))
				if err != nil {
					return object.Undefined, err
				}
				if revived.IsUndefined() {
					o.Delete(object.IndexKey(i))
				} else {
					o.SetIndex(i, revived)
				}
			}
		} else {
			for _, k := range o.OwnKeys(false, false) {
				revived, err := reviveWalk(r, reviver, o, k.String())
				if err != nil {
					return object.Undefined, err
				}
				if revived.IsUndefined() {
					o.Delete(k)
				} else {
					o.DefineRaw(k, object.DataSlot(revived, true, true, true))
				}
			}
		}
	}
	return r.Invoker.Call(reviver, object.FromObject(holder), []object.Value{object.String(key), value})
}

type jsonParser struct {
	r   *runtime.Realm
	src []rune
	pos int
}

func (p *jsonParser) syntaxError(format string, args ...interface{}) *runtime.EcmaError {
	return p.r.NewError("SyntaxError", format, args...)
}

func (p *jsonParser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *jsonParser) skipWhitespace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (object.Value, *runtime.EcmaError) {
	if p.pos >= len(p.src) {
		return object.Undefined, p.syntaxError("Unexpected end of JSON input")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return object.Undefined, err
		}
		return object.String(s), nil
	case c == 't':
		return p.parseLiteral("true", object.True)
	case c == 'f':
		return p.parseLiteral("false", object.False)
	case c == 'n':
		return p.parseLiteral("null", object.Null)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return object.Undefined, p.syntaxError("Unexpected token %c in JSON at position %d", c, p.pos)
	}
}

func (p *jsonParser) parseLiteral(lit string, v object.Value) (object.Value, *runtime.EcmaError) {
	if p.pos+len(lit) > len(p.src) || string(p.src[p.pos:p.pos+len(lit)]) != lit {
		return object.Undefined, p.syntaxError("Unexpected token in JSON at position %d", p.pos)
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseNumber() (object.Value, *runtime.EcmaError) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.peek() == '.' {
		p.pos++
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		p.pos++
		if p.peek() == '+' || p.peek() == '-' {
			p.pos++
		}
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos == start {
		return object.Undefined, p.syntaxError("Unexpected token in JSON at position %d", p.pos)
	}
	f, convErr := strconv.ParseFloat(string(p.src[start:p.pos]), 64)
	if convErr != nil {
		return object.Undefined, p.syntaxError("Invalid number in JSON at position %d", start)
	}
	return object.Float64(f), nil
}

func (p *jsonParser) parseString() (string, *runtime.EcmaError) {
	p.pos++ // opening quote
	var b strings.Builder
	var pendingHighSurrogate rune = -1
	flushSurrogate := func() {
		if pendingHighSurrogate != -1 {
			b.WriteRune(pendingHighSurrogate)
			pendingHighSurrogate = -1
		}
	}
	for {
		if p.pos >= len(p.src) {
			return "", p.syntaxError("Unterminated string in JSON")
		}
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			flushSurrogate()
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.syntaxError("Unterminated escape in JSON string")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case '"', '\\', '/':
				flushSurrogate()
				b.WriteRune(esc)
			case 'b':
				flushSurrogate()
				b.WriteRune('\b')
			case 'f':
				flushSurrogate()
				b.WriteRune('\f')
			case 'n':
				flushSurrogate()
				b.WriteRune('\n')
			case 'r':
				flushSurrogate()
				b.WriteRune('\r')
			case 't':
				flushSurrogate()
				b.WriteRune('\t')
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", p.syntaxError("Invalid unicode escape in JSON string")
				}
				code, convErr := strconv.ParseUint(string(p.src[p.pos:p.pos+4]), 16, 32)
				if convErr != nil {
					return "", p.syntaxError("Invalid unicode escape in JSON string")
				}
				p.pos += 4
				r := rune(code)
				if utf16.IsSurrogate(r) {
					if pendingHighSurrogate != -1 {
						combined := utf16.DecodeRune(pendingHighSurrogate, r)
						pendingHighSurrogate = -1
						b.WriteRune(combined)
					} else {
						pendingHighSurrogate = r
					}
				} else {
					flushSurrogate()
					b.WriteRune(r)
				}
			default:
				return "", p.syntaxError("Invalid escape character in JSON string")
			}
			continue
		}
		flushSurrogate()
		b.WriteRune(c)
		p.pos++
	}
}

func (p *jsonParser) expect(c rune) *runtime.EcmaError {
	if p.peek() != c {
		return p.syntaxError("Expected %c at position %d in JSON", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *jsonParser) parseArray() (object.Value, *runtime.EcmaError) {
	if err := p.expect('['); err != nil {
		return object.Undefined, err
	}
	arr := object.NewArray(p.r.ArrayProto)
	p.skipWhitespace()
	if p.peek() == ']' {
		p.pos++
		return object.FromObject(arr), nil
	}
	idx := uint32(0)
	for {
		p.skipWhitespace()
		v, err := p.parseValue()
		if err != nil {
			return object.Undefined, err
		}
		arr.SetIndex(idx, v)
		idx++
		p.skipWhitespace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(']'); err != nil {
		return object.Undefined, err
	}
	return object.FromObject(arr), nil
}

func (p *jsonParser) parseObject() (object.Value, *runtime.EcmaError) {
	if err := p.expect('{'); err != nil {
		return object.Undefined, err
	}
	o := object.NewObject(p.r.ObjectProto)
	p.skipWhitespace()
	if p.peek() == '}' {
		p.pos++
		return object.FromObject(o), nil
	}
	for {
		p.skipWhitespace()
		if p.peek() != '"' {
			return object.Undefined, p.syntaxError("Expected property name in JSON at position %d", p.pos)
		}
		key, err := p.parseString()
		if err != nil {
			return object.Undefined, err
		}
		p.skipWhitespace()
		if cerr := p.expect(':'); cerr != nil {
			return object.Undefined, cerr
		}
		p.skipWhitespace()
		v, verr := p.parseValue()
		if verr != nil {
			return object.Undefined, verr
		}
		o.DefineRaw(object.StringKey(key), object.DataSlot(v, true, true, true))
		p.skipWhitespace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect('}'); err != nil {
		return object.Undefined, err
	}
	return object.FromObject(o), nil
}
