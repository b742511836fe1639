// Package wire implements the protobuf-style tagged binary encoding
// spec §6 requires for CommandRequest.commandData and
// CommandResponse.resultData: tagged fields, varints, length-prefixed
// strings/bytes, built directly on protowire (the same low-level
// primitive google.golang.org/protobuf's generated code itself compiles
// down to) since no .proto/codegen toolchain is available here.
//
// Each command/result payload's wire schema is derived from its Go
// struct's exported field order (field 1 = first field, and so on)
// rather than hand-authored per variant — one generic marshal/unmarshal
// pair covers every variant in pkg/command uniformly. A struct's field
// order is therefore part of its wire compatibility, same as a
// hand-maintained .proto file would be.
package wire

import (
	"reflect"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// Marshal encodes v (a pointer to, or value of, a pkg/command payload
// struct) into tagged-field bytes.
func Marshal(v interface{}) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errtypes.Internal("wire: Marshal requires a struct")
	}
	return marshalStruct(rv)
}

// Unmarshal decodes data into the struct pointed to by vPtr.
func Unmarshal(data []byte, vPtr interface{}) error {
	rv := reflect.ValueOf(vPtr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errtypes.Internal("wire: Unmarshal requires a non-nil pointer")
	}
	return unmarshalStruct(data, rv.Elem())
}

func marshalStruct(rv reflect.Value) ([]byte, error) {
	var out []byte
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		num := protowire.Number(i + 1)
		fv := rv.Field(i)
		enc, err := marshalField(num, fv)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func marshalField(num protowire.Number, fv reflect.Value) ([]byte, error) {
	switch fv.Kind() {
	case reflect.String:
		if fv.Len() == 0 {
			return nil, nil
		}
		return append(protowire.AppendTag(nil, num, protowire.BytesType), appendStringValue(num, fv.String())...), nil

	case reflect.Bool:
		if !fv.Bool() {
			return nil, nil
		}
		return appendVarint(num, 1), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := fv.Int()
		if n == 0 {
			return nil, nil
		}
		return appendVarint(num, encodeZigzag(n)), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if fv.Uint() == 0 {
			return nil, nil
		}
		return appendVarint(num, fv.Uint()), nil

	case reflect.Struct:
		sub, err := marshalStruct(fv)
		if err != nil {
			return nil, err
		}
		return protowire.AppendBytes(protowire.AppendTag(nil, num, protowire.BytesType), sub), nil

	case reflect.Ptr:
		if fv.IsNil() {
			return nil, nil
		}
		switch fv.Type().Elem().Kind() {
		case reflect.Int, reflect.Int64:
			return appendVarint(num, encodeZigzag(fv.Elem().Int())), nil
		case reflect.Struct:
			if fv.Type().Elem() == reflect.TypeOf(time.Time{}) {
				t := fv.Interface().(*time.Time)
				return appendVarint(num, encodeZigzag(t.Unix())), nil
			}
		}
		return nil, errtypes.Internal("wire: unsupported pointer field kind")

	case reflect.Slice:
		return marshalSliceField(num, fv)

	case reflect.Map:
		return marshalMapField(num, fv)

	default:
		return nil, errtypes.Internal("wire: unsupported field kind " + fv.Kind().String())
	}
}

func marshalSliceField(num protowire.Number, fv reflect.Value) ([]byte, error) {
	var out []byte
	elemKind := fv.Type().Elem().Kind()
	for i := 0; i < fv.Len(); i++ {
		ev := fv.Index(i)
		switch elemKind {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, appendVarint(num, encodeZigzag(ev.Int()))...)
		case reflect.String:
			out = protowire.AppendTag(out, num, protowire.BytesType)
			out = append(out, appendStringValue(num, ev.String())...)
		case reflect.Struct:
			sub, err := marshalStruct(ev)
			if err != nil {
				return nil, err
			}
			out = protowire.AppendTag(out, num, protowire.BytesType)
			out = protowire.AppendBytes(out, sub)
		default:
			return nil, errtypes.Internal("wire: unsupported slice element kind")
		}
	}
	return out, nil
}

func marshalMapField(num protowire.Number, fv reflect.Value) ([]byte, error) {
	// string->string maps (Entity.Metadata) are encoded as repeated
	// "key\x00value" length-prefixed entries, in sorted key order for
	// determinism.
	var out []byte
	keys := make([]string, 0, fv.Len())
	iter := fv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sortStrings(keys)
	for _, k := range keys {
		val := fv.MapIndex(reflect.ValueOf(k)).String()
		entry := k + "\x00" + val
		out = protowire.AppendTag(out, num, protowire.BytesType)
		out = protowire.AppendString(out, entry)
	}
	return out, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func appendVarint(num protowire.Number, v uint64) []byte {
	out := protowire.AppendTag(nil, num, protowire.VarintType)
	return protowire.AppendVarint(out, v)
}

func appendStringValue(num protowire.Number, s string) []byte {
	return protowire.AppendString(nil, s)
}

func encodeZigzag(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func decodeZigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func unmarshalStruct(data []byte, rv reflect.Value) error {
	t := rv.Type()
	fieldByNum := map[int]reflect.Value{}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue
		}
		fieldByNum[i+1] = rv.Field(i)
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errtypes.Internal("wire: malformed tag")
		}
		data = data[n:]

		fv, known := fieldByNum[int(num)]
		switch typ {
		case protowire.VarintType:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return errtypes.Internal("wire: malformed varint")
			}
			data = data[n:]
			if known {
				if err := assignVarint(fv, val); err != nil {
					return err
				}
			}
		case protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return errtypes.Internal("wire: malformed bytes")
			}
			data = data[n:]
			if known {
				if err := assignBytes(fv, b); err != nil {
					return err
				}
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return errtypes.Internal("wire: malformed field")
			}
			data = data[n:]
		}
	}
	return nil
}

func assignVarint(fv reflect.Value, val uint64) error {
	switch fv.Kind() {
	case reflect.Bool:
		fv.SetBool(val != 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fv.SetInt(decodeZigzag(val))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fv.SetUint(val)
	case reflect.Ptr:
		switch fv.Type().Elem().Kind() {
		case reflect.Int, reflect.Int64:
			nv := reflect.New(fv.Type().Elem())
			nv.Elem().SetInt(decodeZigzag(val))
			fv.Set(nv)
		case reflect.Struct:
			if fv.Type().Elem() == reflect.TypeOf(time.Time{}) {
				t := time.Unix(decodeZigzag(val), 0)
				fv.Set(reflect.ValueOf(&t))
			}
		}
	case reflect.Slice:
		nv := reflect.New(fv.Type().Elem()).Elem()
		nv.SetInt(decodeZigzag(val))
		fv.Set(reflect.Append(fv, nv))
	default:
		return errtypes.Internal("wire: cannot assign varint to " + fv.Kind().String())
	}
	return nil
}

func assignBytes(fv reflect.Value, b []byte) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(string(b))
	case reflect.Struct:
		if err := unmarshalStruct(b, fv); err != nil {
			return err
		}
	case reflect.Slice:
		switch fv.Type().Elem().Kind() {
		case reflect.String:
			fv.Set(reflect.Append(fv, reflect.ValueOf(string(b))))
		case reflect.Struct:
			elem := reflect.New(fv.Type().Elem()).Elem()
			if err := unmarshalStruct(b, elem); err != nil {
				return err
			}
			fv.Set(reflect.Append(fv, elem))
		default:
			return errtypes.Internal("wire: unsupported bytes slice element")
		}
	case reflect.Map:
		if fv.IsNil() {
			fv.Set(reflect.MakeMap(fv.Type()))
		}
		entry := string(b)
		for i := 0; i < len(entry); i++ {
			if entry[i] == 0 {
				fv.SetMapIndex(reflect.ValueOf(entry[:i]), reflect.ValueOf(entry[i+1:]))
				break
			}
		}
	default:
		return errtypes.Internal("wire: cannot assign bytes to " + fv.Kind().String())
	}
	return nil
}
