package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a binary codec backed by github.com/vmihailenco/msgpack/v5.
//
// The embedded stores (pebble, badger, redis, sqlite) use it for record
// values: float32 slices are written as 4-byte floats instead of decimal
// text.
type Msgpack struct{}

// Marshal encodes the value to msgpack.
func (Msgpack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal decodes msgpack data into v.
func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// Name returns the unique name of the codec ("msgpack").
func (Msgpack) Name() string { return "msgpack" }
