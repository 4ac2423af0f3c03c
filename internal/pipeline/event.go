// Package pipeline implements the query pipeline: context →
// rewrite → parallel retrieval → fusion → rerank → confidence → routed
// generation, exposed as an ordered stream of typed events.
package pipeline

import "github.com/sophia-systems/csbot/internal/model"

// EventType names one of the five event kinds in the stream.
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventDelta    EventType = "delta"
	EventSources  EventType = "sources"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one item of the ordered stream a Run call produces. Exactly one
// of the payload fields is set, matching Event.Type.
type Event struct {
	Type     EventType
	Metadata *MetadataPayload
	Delta    *DeltaPayload
	Sources  []model.Source
	Done     *DonePayload
	Error    *ErrorPayload
}

// MetadataPayload is always the first event of a run.
type MetadataPayload struct {
	SessionID      string              `json:"session_id"`
	ConfidenceTier model.ConfidenceTier `json:"confidence_tier"`
	MessageID      string              `json:"message_id"`
}

// DeltaPayload carries one streamed content token.
type DeltaPayload struct {
	Content string `json:"content"`
}

// DonePayload is always the last event on success.
type DonePayload struct {
	Usage model.Usage `json:"usage"`
}

// ErrorPayload is the only user-visible detail on failure; no internal
// details leak.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

const genericErrorDetail = "An error occurred processing your request."

func metadataEvent(sessionID, messageID string, tier model.ConfidenceTier) Event {
	return Event{Type: EventMetadata, Metadata: &MetadataPayload{SessionID: sessionID, ConfidenceTier: tier, MessageID: messageID}}
}

func deltaEvent(content string) Event {
	return Event{Type: EventDelta, Delta: &DeltaPayload{Content: content}}
}

func sourcesEvent(sources []model.Source) Event {
	if sources == nil {
		sources = []model.Source{}
	}
	return Event{Type: EventSources, Sources: sources}
}

func doneEvent(usage model.Usage) Event {
	return Event{Type: EventDone, Done: &DonePayload{Usage: usage}}
}

func errorEvent() Event {
	return Event{Type: EventError, Error: &ErrorPayload{Detail: genericErrorDetail}}
}
