package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     string    `json:"id" msgpack:"id"`
	Values []float32 `json:"values" msgpack:"values"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("gob")
	assert.False(t, ok)
}

func TestCodecs(t *testing.T) {
	in := sample{ID: "a", Values: []float32{0.1, -2.5, 3e-7}}

	for _, c := range []Codec{JSON{}, Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestMustMarshal(t *testing.T) {
	assert.Equal(t, `{"id":"x","values":null}`, string(MustMarshal(nil, sample{ID: "x"})))
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
