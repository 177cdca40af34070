// Package events provides the in-process event bus that connects services to
// websocket clients and to each other.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	BucketCreated            EventType = "BUCKET_CREATED"
	BucketDeleted            EventType = "BUCKET_DELETED"
	BucketCompositionChanged EventType = "BUCKET_COMPOSITION_CHANGED"
	DescriptionChanged       EventType = "DESCRIPTION_CHANGED"
	TradeExecuted            EventType = "TRADE_EXECUTED"
	SnapshotRecorded         EventType = "SNAPSHOT_RECORDED"
	ErrorOccurred            EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type a client can subscribe to.
var AllTypes = []EventType{
	BucketCreated,
	BucketDeleted,
	BucketCompositionChanged,
	DescriptionChanged,
	TradeExecuted,
	SnapshotRecorded,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
