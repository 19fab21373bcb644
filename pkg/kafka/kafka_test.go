package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
}

func TestMessages_EncodeJSON(t *testing.T) {
	msgs, err := Messages([]Event{
		{Key: "p-1", Value: payload{ID: "p-1", Size: 3}},
		{Key: "p-2", Value: payload{ID: "p-2", Size: 1}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "p-1", string(msgs[0].Key))
	assert.JSONEq(t, `{"id":"p-1","size":3}`, string(msgs[0].Value))

	decoded, err := DecodeJSON[payload](msgs[1].Value)
	require.NoError(t, err)
	assert.Equal(t, payload{ID: "p-2", Size: 1}, decoded)
}

func TestMessages_RejectsUnencodable(t *testing.T) {
	_, err := Messages([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON_Error(t *testing.T) {
	_, err := DecodeJSON[payload]([]byte("{not json"))
	assert.ErrorContains(t, err, "decoding kafka message")
}
