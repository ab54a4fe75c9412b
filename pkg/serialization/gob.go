package serialization

import (
	"bytes"
	"encoding/gob"
)

// Gob is a denser binary alternative to JSON for cached payloads.
type Gob struct{}

var _ Codec = Gob{}

func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
