// Package serialization defines the codec used for cached payloads.
package serialization

const (
	// JSONType selects the JSON codec.
	JSONType = "json"
	// GobType selects the gob codec.
	GobType = "gob"
)

// Codec serializes cached payloads to and from bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
