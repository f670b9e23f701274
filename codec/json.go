package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// JSON is used where bytes may be read by other tools: persisted index
// configs and metadata attributes in DynamoDB. Numbers in decoded
// map[string]any values come back as float64.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for persisted index configs.
var Default Codec = JSON{}
