package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode converts a JSON-tagged struct into document fields. The "id" key is
// dropped since ids live outside the body.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}

// MustEncode is Encode for values that are known to marshal.
func MustEncode(v any) Fields {
	fields, err := Encode(v)
	if err != nil {
		panic(fmt.Sprintf("store: encode %T: %v", v, err))
	}
	return fields
}

// Decode fills v from doc, exposing the document id as "id".
func Decode(doc Document, v any) error {
	body := make(Fields, len(doc.Fields)+1)
	for k, val := range doc.Fields {
		body[k] = val
	}
	body["id"] = doc.ID
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// DecodeAll decodes every document into a new T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := Decode(doc, &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// DecodeFields parses a JSON object keeping numbers as json.Number.
func DecodeFields(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}

// Normalize maps a Go value onto its JSON form so it compares equal to
// decoded document fields.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone deep-copies fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Fields:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return val
	}
}

// NormalizeFields rewrites fields into their decoded JSON form.
func NormalizeFields(f Fields) (Fields, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return DecodeFields(raw)
}
