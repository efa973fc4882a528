// internal/match/event.go
package match

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what happened during a rally or between rallies.
type EventType string

const (
	EventPointUs          EventType = "POINT_US"
	EventPointOpponent    EventType = "POINT_OPPONENT"
	EventSubstitution     EventType = "SUBSTITUTION"
	EventSetLineup        EventType = "SET_LINEUP"
	EventSetStart         EventType = "SET_START"
	EventSetEnd           EventType = "SET_END"
	EventReceptionEval    EventType = "RECEPTION_EVAL"
	EventFreeballSent     EventType = "FREEBALL_SENT"
	EventFreeballReceived EventType = "FREEBALL_RECEIVED"
	EventTimeout          EventType = "TIMEOUT"
	EventSetServiceChoice EventType = "SET_SERVICE_CHOICE"
)

// Side distinguishes our team from the opponent in event payloads and
// derived scores.
type Side string

const (
	SideUs       Side = "us"
	SideOpponent Side = "opponent"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideUs {
		return SideOpponent
	}
	return SideUs
}

// Event is a single immutable entry in a match log. The log is append-only:
// events are never mutated or reordered once appended, and every other view
// of the match is a projection of it.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   Payload
}

// Payload is the type-specific body of an event.
type Payload interface {
	isPayload()
}

type PointPayload struct {
	Reason Reason `json:"reason"`
}

type SubstitutionPayload struct {
	PlayerIn     int64 `json:"playerIn"`
	PlayerOut    int64 `json:"playerOut"`
	IsLiberoSwap bool  `json:"isLiberoSwap,omitempty"`
}

// LineupPayload records the starting rotation for a set. Positions are keyed
// 1 through 6.
type LineupPayload struct {
	Positions     map[int]int64 `json:"positions"`
	LiberoID      int64         `json:"liberoId,omitempty"`
	InitialServer Side          `json:"initialServer"`
}

type SetBoundaryPayload struct {
	SetNumber int `json:"setNumber"`
}

type TimeoutPayload struct {
	Side Side `json:"side"`
}

type ReceptionPayload struct {
	Grade    string `json:"grade"`
	PlayerID int64  `json:"playerId,omitempty"`
}

type ServiceChoicePayload struct {
	Serving bool `json:"serving"`
}

type FreeballPayload struct{}

// RawPayload preserves the body of an event whose type this version does not
// know. Unknown events are skipped during projection but survive decode and
// re-encode so the log is never lossy.
type RawPayload json.RawMessage

func (PointPayload) isPayload()         {}
func (SubstitutionPayload) isPayload()  {}
func (LineupPayload) isPayload()        {}
func (SetBoundaryPayload) isPayload()   {}
func (TimeoutPayload) isPayload()       {}
func (ReceptionPayload) isPayload()     {}
func (ServiceChoicePayload) isPayload() {}
func (FreeballPayload) isPayload()      {}
func (RawPayload) isPayload()           {}

type eventEnvelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the event with its payload inline under "payload".
func (e Event) MarshalJSON() ([]byte, error) {
	env := eventEnvelope{
		ID:        e.ID,
		Type:      e.Type,
		Timestamp: e.Timestamp,
	}
	if e.Payload != nil {
		if raw, ok := e.Payload.(RawPayload); ok {
			env.Payload = json.RawMessage(raw)
		} else {
			data, err := json.Marshal(e.Payload)
			if err != nil {
				return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
			}
			env.Payload = data
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes an event, selecting the concrete payload type from
// the event type. Payloads of unrecognized types are kept verbatim.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	e.ID = env.ID
	e.Type = env.Type
	e.Timestamp = env.Timestamp
	e.Payload = nil
	if len(env.Payload) == 0 {
		return nil
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}
	e.Payload = payload
	return nil
}

func decodePayload(t EventType, data json.RawMessage) (Payload, error) {
	switch t {
	case EventPointUs, EventPointOpponent:
		var p PointPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventSubstitution:
		var p SubstitutionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventSetLineup:
		var p LineupPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventSetStart, EventSetEnd:
		var p SetBoundaryPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventTimeout:
		var p TimeoutPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventReceptionEval:
		var p ReceptionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventSetServiceChoice:
		var p ServiceChoicePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", t, err)
		}
		return p, nil
	case EventFreeballSent, EventFreeballReceived:
		return FreeballPayload{}, nil
	default:
		return RawPayload(append(json.RawMessage(nil), data...)), nil
	}
}

// EncodeEvents serializes a log for persistence.
func EncodeEvents(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode event log: %w", err)
	}
	return data, nil
}

// DecodeEvents restores a persisted log. An empty or null blob decodes to an
// empty log.
func DecodeEvents(data []byte) ([]Event, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode event log: %w", err)
	}
	return events, nil
}
