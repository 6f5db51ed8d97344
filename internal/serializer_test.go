package internal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalendo/lingopref/internal"
)

func TestMarshalPassesRawPayloadsThrough(t *testing.T) {
	raw := []byte(`{"already":"encoded"}`)

	data, err := internal.Marshal(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	data, err = internal.Marshal(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	data, err = internal.Marshal("plain text")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain text"), data)
}

func TestMarshalStructsAsJSON(t *testing.T) {
	data, err := internal.Marshal(struct {
		Code string `json:"code"`
	}{Code: "sw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"sw"}`, string(data))
}

func TestUnmarshalByteHolders(t *testing.T) {
	payload := []byte("not json at all")

	var b []byte
	require.NoError(t, internal.Unmarshal(payload, &b))
	assert.Equal(t, payload, b)

	var s string
	require.NoError(t, internal.Unmarshal(payload, &s))
	assert.Equal(t, "not json at all", s)

	var raw json.RawMessage
	require.NoError(t, internal.Unmarshal([]byte(`{"k":1}`), &raw))
	assert.JSONEq(t, `{"k":1}`, string(raw))
}

func TestUnmarshalStructsFromJSON(t *testing.T) {
	var holder struct {
		Code string `json:"code"`
	}
	require.NoError(t, internal.Unmarshal([]byte(`{"code":"fr"}`), &holder))
	assert.Equal(t, "fr", holder.Code)

	assert.Error(t, internal.Unmarshal([]byte("not json"), &holder))
}
