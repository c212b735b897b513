package state

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec serializes persisted envelopes for the external medium.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, out any) error
}

// JSONCodec is the default wire form for persisted values.
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec) Unmarshal(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// YAMLCodec persists values as YAML, for media that are edited by hand such
// as preference files.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(value any) ([]byte, error) {
	return yaml.Marshal(value)
}

func (YAMLCodec) Unmarshal(data []byte, out any) error {
	return yaml.Unmarshal(data, out)
}
