package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// BucketData contains data for BucketCreated and BucketDeleted events
type BucketData struct {
	BucketID string `json:"bucket_id"`
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// EventType returns BucketDeleted for deletions and BucketCreated otherwise
func (d *BucketData) EventType() EventType {
	if d.Deleted {
		return BucketDeleted
	}
	return BucketCreated
}

// CompositionChangedData contains data for BucketCompositionChanged events
type CompositionChangedData struct {
	BucketID  string  `json:"bucket_id"`
	Configs   int     `json:"configs"`
	Available float64 `json:"available"`
}

// EventType returns the event type for CompositionChangedData
func (d *CompositionChangedData) EventType() EventType {
	return BucketCompositionChanged
}

// DescriptionChangedData contains data for DescriptionChanged events
type DescriptionChangedData struct {
	BucketID      string `json:"bucket_id"`
	DescriptionID string `json:"description_id"`
	Action        string `json:"action"` // added, edited, deleted
}

// EventType returns the event type for DescriptionChangedData
func (d *DescriptionChangedData) EventType() EventType {
	return DescriptionChanged
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TradeID   string  `json:"trade_id"`
	AccountID string  `json:"account_id"`
	BucketID  string  `json:"bucket_id"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// SnapshotRecordedData contains data for SnapshotRecorded events
type SnapshotRecordedData struct {
	Date    string `json:"date"`
	Buckets int    `json:"buckets"`
	Failed  int    `json:"failed"`
}

// EventType returns the event type for SnapshotRecordedData
func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}

// ErrorData contains data for ErrorOccurred events
type ErrorData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorData
func (d *ErrorData) EventType() EventType {
	return ErrorOccurred
}
