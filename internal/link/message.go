// Package link carries device samples into the app and pointer and gesture
// events back out, over MQTT or a serial bridge.
package link

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/irplan/internal/geometry"
	"github.com/ayusman/irplan/internal/pointer"
)

// Message types.
const (
	TypeIR      = "ir"
	TypeAccel   = "accel"
	TypePointer = "pointer"
	TypeGesture = "gesture"
)

// ErrUnknownType is returned for envelopes with an unrecognized type.
var ErrUnknownType = errors.New("unknown message type")

// Message is one inbound device sample: a frame of IR blobs or an
// acceleration reading.
type Message struct {
	Type  string         `json:"type"`
	Blobs []pointer.Blob `json:"blobs,omitempty"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Z     float64        `json:"z"`
}

// Sink consumes decoded device samples.
type Sink interface {
	HandleBlobs(blobs []pointer.Blob)
	HandleAccel(x, y, z float64)
}

// Publisher sends pointer and gesture events to a consumer.
type Publisher interface {
	PublishPointer(e PointerEvent) error
	PublishGesture(e GestureEvent) error
}

// PointerEvent reports a smoothed display coordinate.
type PointerEvent struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// GestureEvent reports a recognized gesture.
type GestureEvent struct {
	Type      string `json:"type"`
	Category  string `json:"category"`
	Timestamp int64  `json:"timestamp"`
}

// NewPointerEvent stamps p with the current time in milliseconds.
func NewPointerEvent(p geometry.Point2D) PointerEvent {
	return PointerEvent{Type: TypePointer, X: p.X, Y: p.Y, Timestamp: time.Now().UnixMilli()}
}

// NewGestureEvent stamps category with the current time in milliseconds.
func NewGestureEvent(category string) GestureEvent {
	return GestureEvent{Type: TypeGesture, Category: category, Timestamp: time.Now().UnixMilli()}
}

// Decode parses one JSON envelope.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	switch m.Type {
	case TypeIR, TypeAccel:
		return m, nil
	default:
		return Message{}, fmt.Errorf("%w %q", ErrUnknownType, m.Type)
	}
}

// Dispatch hands a decoded message to the matching sink method.
func Dispatch(sink Sink, m Message) error {
	switch m.Type {
	case TypeIR:
		sink.HandleBlobs(m.Blobs)
	case TypeAccel:
		sink.HandleAccel(m.X, m.Y, m.Z)
	default:
		return fmt.Errorf("%w %q", ErrUnknownType, m.Type)
	}
	return nil
}

// Accel is the payload of an acceleration topic.
type Accel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func decodeBlobs(payload []byte) ([]pointer.Blob, error) {
	var blobs []pointer.Blob
	if err := json.Unmarshal(payload, &blobs); err != nil {
		return nil, fmt.Errorf("decode blobs: %w", err)
	}
	return blobs, nil
}

func decodeAccel(payload []byte) (Accel, error) {
	var a Accel
	if err := json.Unmarshal(payload, &a); err != nil {
		return Accel{}, fmt.Errorf("decode accel: %w", err)
	}
	return a, nil
}
