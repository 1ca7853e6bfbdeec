package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

// Entry is one cached result set.
type Entry struct {
	Columns  []string
	Rows     [][]any
	CachedAt time.Time
}

func init() {
	// Row values travel as interface values; register the concrete types
	// drivers hand back so gob can round-trip them.
	gob.Register(time.Time{})
	gob.Register([]byte(nil))
}

// Encode serializes the entry for storage.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEntry deserializes an entry previously produced by Encode.
func DecodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &e, nil
}
