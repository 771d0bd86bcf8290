package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/racers-escrow/pkg/contracts/events"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers(" a:9092, ,b:9092 "))
	assert.Empty(t, Brokers(""))
}

func TestEnvelopeMessage(t *testing.T) {
	env := events.Envelope{ID: "n-1", Type: events.TypeBetPlaced, RaceID: "race_1", TsUnixMs: 1_700_000_000_000, Payload: json.RawMessage(`{}`)}

	msg, err := EnvelopeMessage(env)
	require.NoError(t, err)
	assert.Equal(t, "race_1", string(msg.Key))
	assert.Equal(t, int64(1_700_000_000_000), msg.Time.UnixMilli())
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, events.TypeBetPlaced, string(msg.Headers[0].Value))

	var back events.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, env.ID, back.ID)

	env.RaceID = ""
	msg, err = EnvelopeMessage(env)
	require.NoError(t, err)
	assert.Equal(t, "n-1", string(msg.Key))
}
