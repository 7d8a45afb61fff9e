package preview

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one sampled row or feature. Keys keep the order in which they
// appeared in the source so the preview shows columns the way the source
// lists them.
type Record = *orderedmap.OrderedMap[string, any]

// NewRecord returns an empty record.
func NewRecord() Record {
	return orderedmap.New[string, any]()
}

// decodeRecord decodes a JSON object into a record. A null or empty value
// yields an empty record.
func decodeRecord(raw json.RawMessage) (Record, error) {
	rec := NewRecord()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rec, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected object, got %.20s", ErrInvalidJSON, trimmed)
	}
	if err := json.Unmarshal(trimmed, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return rec, nil
}

// recordKeys returns the keys of rec in order.
func recordKeys(rec Record) []string {
	if rec == nil {
		return []string{}
	}
	keys := make([]string, 0, rec.Len())
	for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
