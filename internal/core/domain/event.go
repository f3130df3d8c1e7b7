package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates the event payload variants.
type EventType string

// Available event types.
const (
	// EventPhase marks a phase boundary (retrieval/answer start/end).
	EventPhase EventType = "phase"

	// EventMetric carries numeric measurements about the run.
	EventMetric EventType = "metric"

	// EventLog carries free-form progress text, including relayed
	// engine output chunks when streaming is enabled.
	EventLog EventType = "log"

	// EventAnswer carries the final answer markdown.
	EventAnswer EventType = "answer"
)

// Phase identifies a coarse-grained stage of a query run.
type Phase string

// Run phases.
const (
	PhaseRetrieval Phase = "retrieval"
	PhaseAnswer    Phase = "answer"
)

// PhaseStatus marks a phase boundary.
type PhaseStatus string

// Phase boundary statuses.
const (
	PhaseStart     PhaseStatus = "start"
	PhaseEnd       PhaseStatus = "end"
	PhaseCancelled PhaseStatus = "cancelled"
)

// Event is a single entry in a run's progress trace.
// Once published its position in the trace is permanent and the event
// itself is never mutated.
type Event struct {
	// Type discriminates the Data payload variant.
	Type EventType `json:"type"`

	// RunID tags the event with its originating run so consumers can
	// disambiguate interleaved events from concurrent runs.
	RunID string `json:"run_id,omitempty"`

	// Timestamp is milliseconds since epoch, assigned by the bus at
	// publish time when zero.
	Timestamp int64 `json:"timestamp"`

	// Data is the typed payload for the event's Type.
	Data EventData `json:"data"`
}

// EventData is the typed payload carried by an Event.
type EventData interface {
	// EventType returns the discriminant this payload belongs to.
	EventType() EventType
}

// PhaseData is the payload for phase boundary events.
type PhaseData struct {
	Phase  Phase       `json:"phase"`
	Status PhaseStatus `json:"status"`
}

// EventType returns EventPhase.
func (PhaseData) EventType() EventType { return EventPhase }

// MetricData is the payload for metric events: named numeric measurements
// such as elapsed seconds or selected context counts.
type MetricData map[string]float64

// EventType returns EventMetric.
func (MetricData) EventType() EventType { return EventMetric }

// LogData is the payload for log events.
type LogData struct {
	Message string `json:"message"`
}

// EventType returns EventLog.
func (LogData) EventType() EventType { return EventLog }

// AnswerData is the payload for answer events.
type AnswerData struct {
	Markdown string `json:"markdown"`
}

// EventType returns EventAnswer.
func (AnswerData) EventType() EventType { return EventAnswer }

// NewEvent creates a timestamped event for the given run and payload.
func NewEvent(runID string, data EventData) Event {
	return Event{
		Type:      data.EventType(),
		RunID:     runID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewPhaseEvent creates a phase boundary event.
func NewPhaseEvent(runID string, phase Phase, status PhaseStatus) Event {
	return NewEvent(runID, PhaseData{Phase: phase, Status: status})
}

// NewLogEvent creates a log event.
func NewLogEvent(runID, message string) Event {
	return NewEvent(runID, LogData{Message: message})
}

// NewAnswerEvent creates an answer event.
func NewAnswerEvent(runID, markdown string) Event {
	return NewEvent(runID, AnswerData{Markdown: markdown})
}

// UnmarshalJSON decodes an event, dispatching the Data payload by Type.
// An unknown type is rejected rather than decoded into an untyped map.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      EventType       `json:"type"`
		RunID     string          `json:"run_id"`
		Timestamp int64           `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Type = raw.Type
	e.RunID = raw.RunID
	e.Timestamp = raw.Timestamp

	switch raw.Type {
	case EventPhase:
		var d PhaseData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	case EventMetric:
		var d MetricData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	case EventLog:
		var d LogData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	case EventAnswer:
		var d AnswerData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, raw.Type)
	}

	return nil
}
