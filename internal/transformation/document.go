package transformation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a scope config as the backend stores it. Fields the editors
// do not know about are carried through untouched.
type Document map[string]json.RawMessage

// Clone returns a shallow copy; raw values are never mutated in place.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Name returns the scope config name, if any.
func (d Document) Name() string {
	var name string
	if raw, ok := d["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	return name
}

func (d Document) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	d[key] = raw
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
