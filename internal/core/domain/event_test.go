package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewEvent_AssignsTimestamp tests that constructors stamp events
func TestNewEvent_AssignsTimestamp(t *testing.T) {
	e := NewPhaseEvent("run-1", PhaseRetrieval, PhaseStart)

	assert.Equal(t, EventPhase, e.Type)
	assert.Equal(t, "run-1", e.RunID)
	assert.Positive(t, e.Timestamp)
}

// TestEvent_JSONRoundTrip tests payload dispatch on decode
func TestEvent_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{"phase", NewPhaseEvent("r1", PhaseAnswer, PhaseEnd)},
		{"metric", NewEvent("r1", MetricData{"elapsed_seconds": 1.5})},
		{"log", NewLogEvent("r1", "retrieving evidence")},
		{"answer", NewAnswerEvent("r1", "# Answer\ntext")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)

			var decoded Event
			require.NoError(t, json.Unmarshal(data, &decoded))

			assert.Equal(t, tt.event.Type, decoded.Type)
			assert.Equal(t, tt.event.RunID, decoded.RunID)
			assert.Equal(t, tt.event.Data, decoded.Data)
		})
	}
}

// TestEvent_UnmarshalUnknownType tests rejection of unknown discriminants
func TestEvent_UnmarshalUnknownType(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"type":"mystery","data":{}}`), &e)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
