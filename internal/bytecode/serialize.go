package bytecode

import (
	"fmt"
	"math"
	"math/big"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire-format field numbers for Descriptor. Hand-encoded with
// protowire rather than protoc-generated code: this engine embeds compiled
// descriptors (e.g. a precompiled stdlib bundle, or a debugger "save
// snapshot" command) without ever invoking the protobuf compiler, so the
// wire primitives are used directly. Grounded on funxy's `vm/bundle.go`,
// which serializes a compiled chunk for its own bundling feature; the
// field layout here is new (funxy's bundle format doesn't have TDZ,
// generators, or an exception table) but the "flat varint/bytes field
// stream, skip unknown fields" discipline is the same.
const (
	fieldName         = 1
	fieldParamCount   = 2
	fieldFlags        = 3
	fieldCode         = 4
	fieldStrings      = 5
	fieldInts         = 6
	fieldDoubles      = 7
	fieldBigInts      = 8
	fieldLocals       = 9
	fieldExceptions   = 10
	fieldLines        = 11
	fieldChildren     = 12
	fieldUpvalueNames = 13
)

const (
	flagHasRest = 1 << iota
	flagIsGenerator
	flagIsAsync
	flagIsArrow
	flagIsClassCtor
	flagIsStrict
)

// Marshal encodes d and its nested Children into the wire format.
func Marshal(d *Descriptor) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, d.Name)

	b = protowire.AppendTag(b, fieldParamCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.ParamCount))

	b = protowire.AppendTag(b, fieldFlags, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(flags(d)))

	b = protowire.AppendTag(b, fieldCode, protowire.BytesType)
	b = protowire.AppendBytes(b, d.Code)

	for _, s := range d.Strings {
		b = protowire.AppendTag(b, fieldStrings, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	for _, i := range d.Ints {
		b = protowire.AppendTag(b, fieldInts, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(i)))
	}
	for _, f := range d.Doubles {
		b = protowire.AppendTag(b, fieldDoubles, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	}
	for _, bi := range d.BigInts {
		b = protowire.AppendTag(b, fieldBigInts, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalBigInt(bi))
	}
	for _, l := range d.Locals {
		b = protowire.AppendTag(b, fieldLocals, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalLocal(l))
	}
	for _, h := range d.Exceptions {
		b = protowire.AppendTag(b, fieldExceptions, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalHandler(h))
	}
	for _, e := range d.Lines {
		b = protowire.AppendTag(b, fieldLines, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalLine(e))
	}
	for _, c := range d.Children {
		b = protowire.AppendTag(b, fieldChildren, protowire.BytesType)
		b = protowire.AppendBytes(b, Marshal(c))
	}
	for _, name := range d.UpvalueNames {
		b = protowire.AppendTag(b, fieldUpvalueNames, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	return b
}

func flags(d *Descriptor) uint64 {
	var f uint64
	if d.HasRest {
		f |= flagHasRest
	}
	if d.IsGenerator {
		f |= flagIsGenerator
	}
	if d.IsAsync {
		f |= flagIsAsync
	}
	if d.IsArrow {
		f |= flagIsArrow
	}
	if d.IsClassCtor {
		f |= flagIsClassCtor
	}
	if d.IsStrict {
		f |= flagIsStrict
	}
	return f
}

func applyFlags(d *Descriptor, f uint64) {
	d.HasRest = f&flagHasRest != 0
	d.IsGenerator = f&flagIsGenerator != 0
	d.IsAsync = f&flagIsAsync != 0
	d.IsArrow = f&flagIsArrow != 0
	d.IsClassCtor = f&flagIsClassCtor != 0
	d.IsStrict = f&flagIsStrict != 0
}

func marshalBigInt(b *big.Int) []byte {
	sign := byte(0)
	if b.Sign() < 0 {
		sign = 1
	}
	return append([]byte{sign}, b.Bytes()...)
}

func unmarshalBigInt(data []byte) *big.Int {
	b := new(big.Int)
	if len(data) == 0 {
		return b
	}
	b.SetBytes(data[1:])
	if data[0] == 1 {
		b.Neg(b)
	}
	return b
}

func marshalLocal(l LocalVar) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.SlotIdx))
	var f uint64
	if l.IsConst {
		f |= 1
	}
	if l.IsParam {
		f |= 2
	}
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, f)
	return b
}

func unmarshalLocal(data []byte) (LocalVar, error) {
	var l LocalVar
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return l, fmt.Errorf("bytecode: bad local field tag")
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return l, fmt.Errorf("bytecode: bad local name")
			}
			l.Name = s
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return l, fmt.Errorf("bytecode: bad local slot")
			}
			l.SlotIdx = int(v)
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return l, fmt.Errorf("bytecode: bad local flags")
			}
			l.IsConst = v&1 != 0
			l.IsParam = v&2 != 0
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return l, fmt.Errorf("bytecode: bad local unknown field")
			}
			data = data[n:]
		}
	}
	return l, nil
}

func marshalHandler(h ExceptionHandler) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Start))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.End))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Target))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	isFinally := uint64(0)
	if h.IsFinally {
		isFinally = 1
	}
	b = protowire.AppendVarint(b, isFinally)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(h.CatchVarIdx)))
	return b
}

func unmarshalHandler(data []byte) (ExceptionHandler, error) {
	h := ExceptionHandler{CatchVarIdx: -1}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return h, fmt.Errorf("bytecode: bad handler field tag")
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return h, fmt.Errorf("bytecode: bad handler field value")
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			h.Start = int(v)
		case num == 2 && typ == protowire.VarintType:
			h.End = int(v)
		case num == 3 && typ == protowire.VarintType:
			h.Target = int(v)
		case num == 4 && typ == protowire.VarintType:
			h.IsFinally = v != 0
		case num == 5 && typ == protowire.VarintType:
			h.CatchVarIdx = int(protowire.DecodeZigZag(v))
		}
	}
	return h, nil
}

func marshalLine(e LineEntry) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.StartOffset))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Line))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Column))
	return b
}

func unmarshalLine(data []byte) (LineEntry, error) {
	var e LineEntry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return e, fmt.Errorf("bytecode: bad line field tag")
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return e, fmt.Errorf("bytecode: bad line field value")
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			e.StartOffset = int(v)
		case num == 2 && typ == protowire.VarintType:
			e.Line = int(v)
		case num == 3 && typ == protowire.VarintType:
			e.Column = int(v)
		}
	}
	return e, nil
}

// Unmarshal decodes a Descriptor (and its nested Children) previously
// produced by Marshal.
func Unmarshal(data []byte) (*Descriptor, error) {
	d := &Descriptor{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bytecode: bad descriptor field tag")
		}
		data = data[n:]
		switch {
		case num == fieldName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad name field")
			}
			d.Name = s
			data = data[n:]
		case num == fieldParamCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad paramCount field")
			}
			d.ParamCount = int(v)
			data = data[n:]
		case num == fieldFlags && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad flags field")
			}
			applyFlags(d, v)
			data = data[n:]
		case num == fieldCode && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad code field")
			}
			d.Code = append([]byte(nil), v...)
			data = data[n:]
		case num == fieldStrings && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad strings field")
			}
			d.Strings = append(d.Strings, s)
			data = data[n:]
		case num == fieldInts && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad ints field")
			}
			d.Ints = append(d.Ints, int32(protowire.DecodeZigZag(v)))
			data = data[n:]
		case num == fieldDoubles && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad doubles field")
			}
			d.Doubles = append(d.Doubles, math.Float64frombits(v))
			data = data[n:]
		case num == fieldBigInts && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad bigints field")
			}
			d.BigInts = append(d.BigInts, unmarshalBigInt(v))
			data = data[n:]
		case num == fieldLocals && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad locals field")
			}
			l, err := unmarshalLocal(v)
			if err != nil {
				return nil, err
			}
			d.Locals = append(d.Locals, l)
			data = data[n:]
		case num == fieldExceptions && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad exceptions field")
			}
			h, err := unmarshalHandler(v)
			if err != nil {
				return nil, err
			}
			d.Exceptions = append(d.Exceptions, h)
			data = data[n:]
		case num == fieldLines && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad lines field")
			}
			e, err := unmarshalLine(v)
			if err != nil {
				return nil, err
			}
			d.Lines = append(d.Lines, e)
			data = data[n:]
		case num == fieldChildren && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad children field")
			}
			child, err := Unmarshal(v)
			if err != nil {
				return nil, err
			}
			d.Children = append(d.Children, child)
			data = data[n:]
		case num == fieldUpvalueNames && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: bad upvalueNames field")
			}
			d.UpvalueNames = append(d.UpvalueNames, s)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bytecode: unknown field %d type %d could not be skipped", num, typ)
			}
			data = data[n:]
		}
	}
	return d, nil
}
