package middleware

import "time"

// Event identifies a session lifecycle occurrence reported to an [Observer].
type Event uint8

const (
	EventMinted Event = iota + 1
	EventResolved
	EventLookupMiss
	EventLookupError
	EventRenewed
	EventPersisted
	EventPersistSkipped
	EventPersistFailed
	EventTouched
	EventDestroyed
	EventGateRejected
	EventDirectBearer
	EventRenewSignaled
)

var eventNames = [...]string{
	EventMinted:         "minted",
	EventResolved:       "resolved",
	EventLookupMiss:     "lookup_miss",
	EventLookupError:    "lookup_error",
	EventRenewed:        "renewed",
	EventPersisted:      "persisted",
	EventPersistSkipped: "persist_skipped",
	EventPersistFailed:  "persist_failed",
	EventTouched:        "touched",
	EventDestroyed:      "destroyed",
	EventGateRejected:   "gate_rejected",
	EventDirectBearer:   "direct_bearer",
	EventRenewSignaled:  "renew_signaled",
}

func (e Event) String() string {
	if int(e) < len(eventNames) && eventNames[e] != "" {
		return eventNames[e]
	}
	return "unknown"
}

// Observer receives lifecycle events, typically to drive metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
	ObserveResolve(time.Duration)
}

type nopObserver struct{}

func (nopObserver) Observe(Event)                {}
func (nopObserver) ObserveResolve(time.Duration) {}
