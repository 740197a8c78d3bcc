package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Op string `json:"op"`
	N  int    `json:"n"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[payload]([]byte(`{"op":"upsert","n":3}`))
	require.NoError(t, err)
	assert.Equal(t, payload{Op: "upsert", N: 3}, got)
}

func TestDecodeJSONSkipsGarbage(t *testing.T) {
	_, err := DecodeJSON[payload]([]byte(`{"op":`))
	assert.ErrorIs(t, err, ErrSkip)
}
