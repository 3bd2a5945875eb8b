// Package event defines the messages catalog instances exchange over the
// invalidation stream. Each stream entry carries an event type name next to
// the JSON encoding of the event.
package event

import (
	"encoding/json"
	"fmt"
)

// Event is anything that can be published on the invalidation stream.
// EventType names the payload so readers know what to decode it into.
type Event interface {
	EventType() string
	EventValue() ([]byte, error)
}

// Encode is the JSON payload used by every event in this package.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode reads a payload written by Encode. T is usually a pointer type,
// e.g. Decode[*CacheInvalidation].
func Decode[T Event](data []byte) (T, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
