// File: events/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package events

import (
	"fmt"

	"github.com/momentics/blockpool/api"
)

// Priority orders event urgency. It is carried for subscribers; the bus
// delivers in publication order.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Payload limits of a pooled Event.
const (
	MaxTypeLen = 32
	MaxDataLen = 64
)

// Event is a fixed-size, pointer-free record so it can live in a pool
// block (the MEDIUM tier with default tiers).
type Event struct {
	Timestamp int64 // unix nanoseconds
	Seq       uint32
	typeLen   uint8
	dataLen   uint8
	Priority  Priority
	typ       [MaxTypeLen]byte
	data      [MaxDataLen]byte
}

// SetType stores the event type name.
func (e *Event) SetType(name string) error {
	if name == "" || len(name) > MaxTypeLen {
		return fmt.Errorf("events: type %q: %w", name, api.ErrInvalidArgument)
	}
	e.typeLen = uint8(copy(e.typ[:], name))
	return nil
}

// Type returns the event type name.
func (e *Event) Type() string { return string(e.typ[:e.typeLen]) }

// SetData copies payload bytes into the event.
func (e *Event) SetData(b []byte) error {
	if len(b) > MaxDataLen {
		return fmt.Errorf("events: payload %d bytes exceeds %d: %w", len(b), MaxDataLen, api.ErrInvalidArgument)
	}
	e.dataLen = uint8(copy(e.data[:], b))
	return nil
}

// Data returns the payload. The slice aliases pooled storage and is valid
// only while the handler runs.
func (e *Event) Data() []byte { return e.data[:e.dataLen] }
