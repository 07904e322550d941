package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/valyala/fastjson"
)

// Kind discriminates the variants a Value can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// Value is a closed JSON-like variant used for attributes and structured
// payloads. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value               { return Value{} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Number(n float64) Value    { return Value{kind: KindNumber, n: n} }
func Int(n int64) Value         { return Value{kind: KindNumber, n: float64(n)} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map wraps m without copying it.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind                { return v.kind }
func (v Value) IsNull() bool              { return v.kind == KindNull }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)   { return v.list, v.kind == KindList }

func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Get returns a map member. It reports false for non-map values.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	m, ok := v.m[key]
	return m, ok
}

// Text renders scalars without quoting and composites as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindNull:
		return "null"
	}
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.String()
}

// FromAny converts decoded Go values (as produced by encoding/json or
// literal maps) into a Value. Unsupported types are rendered with %v.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case []Value:
		return List(t...)
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = FromAny(it)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = String(it)
		}
		return List(items...)
	case map[string]Value:
		return Map(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			m[k] = FromAny(it)
		}
		return Map(m)
	case map[string]string:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			m[k] = String(it)
		}
		return Map(m)
	}
	return String(fmt.Sprintf("%v", x))
}

// FromFastJSON converts a parsed fastjson tree.
func FromFastJSON(fv *fastjson.Value) Value {
	if fv == nil {
		return Null()
	}
	switch fv.Type() {
	case fastjson.TypeNull:
		return Null()
	case fastjson.TypeTrue:
		return Bool(true)
	case fastjson.TypeFalse:
		return Bool(false)
	case fastjson.TypeNumber:
		return Number(fv.GetFloat64())
	case fastjson.TypeString:
		return String(string(fv.GetStringBytes()))
	case fastjson.TypeArray:
		arr := fv.GetArray()
		items := make([]Value, len(arr))
		for i, it := range arr {
			items[i] = FromFastJSON(it)
		}
		return List(items...)
	case fastjson.TypeObject:
		obj := fv.GetObject()
		m := make(map[string]Value, obj.Len())
		obj.Visit(func(key []byte, it *fastjson.Value) {
			m[string(key)] = FromFastJSON(it)
		})
		return Map(m)
	}
	return Null()
}

// MarshalJSON implements json.Marshaler. Map keys are written sorted.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.n) || math.IsInf(v.n, 0)) {
		return nil, fmt.Errorf("event value: unsupported number %v", v.n)
	}
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var p fastjson.Parser
	fv, err := p.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("event value: %w", err)
	}
	*v = FromFastJSON(fv)
	return nil
}

func (v Value) appendJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			buf.WriteString("null")
			return
		}
		buf.WriteString(formatNumber(v.n))
	case KindString:
		writeString(buf, v.s)
	case KindList:
		buf.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.appendJSON(buf)
		}
		buf.WriteByte(']')
	case KindMap:
		writeMap(buf, v.m)
	}
}

func writeMap(buf *bytes.Buffer, m map[string]Value) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		m[k].appendJSON(buf)
	}
	buf.WriteByte('}')
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
