package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// field is one key of a catalog object, kept in file order
type field struct {
	Key   string
	Value json.RawMessage
}

// rawRecord is a catalog object whose unknown fields round-trip untouched
type rawRecord []field

func (r rawRecord) get(key string) (json.RawMessage, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// set replaces key in place or appends it
func (r rawRecord) set(key string, value json.RawMessage) rawRecord {
	for i := range r {
		if r[i].Key == key {
			r[i].Value = value
			return r
		}
	}
	return append(r, field{Key: key, Value: value})
}

func (r rawRecord) remove(key string) rawRecord {
	out := r[:0]
	for _, f := range r {
		if f.Key != key {
			out = append(out, f)
		}
	}
	return out
}

// UnmarshalJSON decodes an object while keeping key order
func (r *rawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("catalog entry is not an object")
	}

	var fields rawRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		fields = fields.set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = fields
	return nil
}

// MarshalJSON encodes the fields in their stored order
func (r rawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape encodes v without HTML escaping and without the trailing newline
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
