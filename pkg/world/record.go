package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered set of fields. Top-level values are string, float64
// or bool for schema fields; anything else loaded from a file is kept as
// decoded so that it is written back unchanged.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields in order. Later duplicates overwrite
// earlier ones in place.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

func (r Record) index(key string) int {
	for i, f := range r.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if i := r.index(key); i >= 0 {
		return r.fields[i].Value, true
	}
	return nil, false
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	return r.index(key) >= 0
}

// Set stores v under key, keeping the key's position if it already exists.
func (r *Record) Set(key string, v any) {
	if i := r.index(key); i >= 0 {
		r.fields[i].Value = v
		return
	}
	r.fields = append(r.fields, Field{Key: key, Value: v})
}

// Delete removes key.
func (r *Record) Delete(key string) {
	if i := r.index(key); i >= 0 {
		r.fields = append(r.fields[:i], r.fields[i+1:]...)
	}
}

func (r Record) Len() int {
	return len(r.fields)
}

func (r Record) Keys() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Key
	}
	return out
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Clone returns a record that shares no field storage with r.
func (r Record) Clone() Record {
	return Record{fields: r.Fields()}
}

// Text returns the display form of the value under key, or "" when absent.
func (r Record) Text(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Number returns the value under key when it is numeric.
func (r Record) Number(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// FormatValue renders a value the way it appears in tables and inputs:
// integral numbers without a fraction, nil as the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		data, err := marshalNoEscape(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// Truthy reports whether v counts as set for a checkbox.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	var out Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		out.Set(key, normalizeNumber(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// normalizeNumber turns top-level JSON numbers into float64 so schema fields
// compare and format uniformly.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
