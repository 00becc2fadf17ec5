package domain

// EventType discriminates dashboard push events.
type EventType string

const (
	EventSeriesReset       EventType = "series.reset"
	EventCandleAppend      EventType = "candle.append"
	EventCandleUpdate      EventType = "candle.update"
	EventVerificationBatch EventType = "verification.batch"
	EventNotification      EventType = "notification"
)

// Event is a single incremental update pushed to the rendering collaborator.
// Payload is already serializable (domain structs or plain strings).
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// NotificationEvent wraps a user-facing notification message.
func NotificationEvent(message string) Event {
	return Event{Type: EventNotification, Payload: message}
}
