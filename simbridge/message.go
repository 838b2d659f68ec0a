// Package simbridge connects planners to the driving simulator over its websocket
// event protocol: text frames of the form 42["event",{...}].
package simbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"highway-planner/environment"
	"highway-planner/planner"
)

const (
	eventPrefix    = "42"
	telemetryEvent = "telemetry"

	// mphToMPS converts simulator speeds.
	mphToMPS = 1609.344 / 3600.0
)

// ManualReply answers frames that carry no data.
var ManualReply = []byte(`42["manual",{}]`)

// ErrNotEvent is returned for frames without the event prefix.
var ErrNotEvent = errors.New("not an event frame")

type Event int

const (
	// EventNone is an event without payload; the simulator is in manual mode.
	EventNone Event = iota
	EventTelemetry
	// EventOther is any other named event; it is ignored.
	EventOther
)

func (e Event) String() string {
	switch e {
	case EventTelemetry:
		return "telemetry"
	case EventOther:
		return "other"
	default:
		return "none"
	}
}

// Message is one decoded simulator frame.
type Message struct {
	Event     Event
	Name      string
	Telemetry planner.Telemetry
}

type telemetryJSON struct {
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	S             float64     `json:"s"`
	D             float64     `json:"d"`
	Yaw           float64     `json:"yaw"`   // degrees
	Speed         float64     `json:"speed"` // mph
	PreviousPathX []float64   `json:"previous_path_x"`
	PreviousPathY []float64   `json:"previous_path_y"`
	EndPathS      float64     `json:"end_path_s"`
	EndPathD      float64     `json:"end_path_d"`
	SensorFusion  [][]float64 `json:"sensor_fusion"`
}

// ParseMessage decodes a raw text frame.
func ParseMessage(raw []byte) (Message, error) {
	if len(raw) <= len(eventPrefix) || !bytes.HasPrefix(raw, []byte(eventPrefix)) {
		return Message{}, ErrNotEvent
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw[len(eventPrefix):], &parts); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(parts) == 0 {
		return Message{}, fmt.Errorf("decode envelope: empty array")
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return Message{}, fmt.Errorf("decode event name: %w", err)
	}
	if len(parts) < 2 || bytes.Equal(bytes.TrimSpace(parts[1]), []byte("null")) {
		return Message{Event: EventNone, Name: name}, nil
	}
	if name != telemetryEvent {
		return Message{Event: EventOther, Name: name}, nil
	}

	var tj telemetryJSON
	if err := json.Unmarshal(parts[1], &tj); err != nil {
		return Message{}, fmt.Errorf("decode telemetry: %w", err)
	}
	t, err := tj.toTelemetry()
	if err != nil {
		return Message{}, err
	}
	return Message{Event: EventTelemetry, Name: name, Telemetry: t}, nil
}

func (tj telemetryJSON) toTelemetry() (planner.Telemetry, error) {
	if len(tj.PreviousPathX) != len(tj.PreviousPathY) {
		return planner.Telemetry{}, fmt.Errorf("previous path has %d x and %d y values",
			len(tj.PreviousPathX), len(tj.PreviousPathY))
	}
	for i, row := range tj.SensorFusion {
		if len(row) < 7 {
			return planner.Telemetry{}, fmt.Errorf("sensor_fusion[%d]: want 7 values, got %d", i, len(row))
		}
	}

	return planner.Telemetry{
		Ego: planner.Ego{
			X:     tj.X,
			Y:     tj.Y,
			S:     tj.S,
			D:     tj.D,
			Yaw:   tj.Yaw * math.Pi / 180,
			Speed: tj.Speed * mphToMPS,
		},
		Previous: lo.Map(tj.PreviousPathX, func(x float64, i int) orb.Point {
			return orb.Point{x, tj.PreviousPathY[i]}
		}),
		EndPathS: tj.EndPathS,
		EndPathD: tj.EndPathD,
		Traffic: lo.Map(tj.SensorFusion, func(r []float64, _ int) environment.Observation {
			return environment.Observation{
				ID: int(r[0]), X: r[1], Y: r[2], VX: r[3], VY: r[4], S: r[5], D: r[6],
			}
		}),
	}, nil
}

type controlJSON struct {
	NextX []float64 `json:"next_x"`
	NextY []float64 `json:"next_y"`
}

// EncodeControl builds the control frame carrying path.
func EncodeControl(path orb.LineString) ([]byte, error) {
	body, err := json.Marshal(controlJSON{
		NextX: lo.Map(path, func(p orb.Point, _ int) float64 { return p[0] }),
		NextY: lo.Map(path, func(p orb.Point, _ int) float64 { return p[1] }),
	})
	if err != nil {
		return nil, fmt.Errorf("encode control: %w", err)
	}
	out := make([]byte, 0, len(body)+16)
	out = append(out, `42["control",`...)
	out = append(out, body...)
	out = append(out, ']')
	return out, nil
}
