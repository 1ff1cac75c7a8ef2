package backup

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_FlatLayout(t *testing.T) {
	snap := Snapshot{
		Timestamp: "2024-03-01T12:00:00.000Z",
		Version:   "1.0.0",
		Data: map[string]json.RawMessage{
			"stories":  json.RawMessage(`[{"title":"a"}]`),
			"needs":    json.RawMessage(`[]`),
			"settings": json.RawMessage(`{"theme":"dark"}`),
		},
	}

	encoded, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Equal(t,
		`{"timestamp":"2024-03-01T12:00:00.000Z","version":"1.0.0","needs":[],"settings":{"theme":"dark"},"stories":[{"title":"a"}]}`,
		string(encoded))

	decoded, err := decodeSnapshot(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, snap.Timestamp, decoded.Timestamp)
	assert.Equal(t, snap.Version, decoded.Version)
	require.Len(t, decoded.Data, 3)
	assert.JSONEq(t, `{"theme":"dark"}`, string(decoded.Data["settings"]))
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	for _, payload := range []string{`not json`, `null`, `[]`, `{"version":"1.0.0","needs":[]}`, `{"timestamp":5}`} {
		_, err := decodeSnapshot(payload)
		assert.Error(t, err, payload)
	}
}

func TestStoredValue(t *testing.T) {
	assert.Equal(t, `[1,2]`, storedValue(json.RawMessage(`[1,2]`)))
	assert.Equal(t, `{"a":1}`, storedValue(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, `{not json`, storedValue(preserveMalformed(`{not json`)))
	assert.Equal(t, `say "hi"`, storedValue(preserveMalformed(`say "hi"`)))
}
