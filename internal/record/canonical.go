package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical serializes a record to its canonical byte form: the form
// that is sealed into an encryption envelope. Two structurally equal records
// always produce identical bytes, so a sealed record can be compared and
// replayed deterministically.
//
// Canonical form differs from plain json.Marshal in three ways:
//  1. Object keys are emitted in sorted (byte-lexicographic) order
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//
// Numbers pass through verbatim (json.Number), so float formatting never
// drifts between encode and re-encode.
func MarshalCanonical(v any) ([]byte, error) {
	// First flatten the typed record to a generic JSON tree. Struct field
	// order is not trusted; the tree is re-emitted with sorted keys below.
	raw, err := marshalNoEscape(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCanonical decodes canonical bytes back into a record.
func UnmarshalCanonical(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("canonical: %w", err)
	}
	return nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		buf.WriteString(val.String())
		return nil
	case string:
		return writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
}

// writeCanonicalString emits a JSON string with NFC normalization and
// without HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	data, err := marshalNoEscape(norm.NFC.String(s))
	if err != nil {
		return fmt.Errorf("canonical: string: %w", err)
	}
	buf.Write(data)
	return nil
}

// marshalNoEscape is json.Marshal with HTML escaping disabled and the
// encoder's trailing newline stripped.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
