package entity

import "time"

// Record is a single stream record. Data is the raw payload exactly as the
// provider returned it; the watcher never decodes it.
type Record struct {
	Data                        []byte    `json:"data"`
	PartitionKey                string    `json:"partitionKey"`
	SequenceNumber              string    `json:"sequenceNumber"`
	ApproximateArrivalTimestamp time.Time `json:"approximateArrivalTimestamp"`
}

// BatchEvent is what a handler receives: the records fetched for one stream in
// one cycle, in provider order.
type BatchEvent struct {
	Stream  string   `json:"stream"`
	ShardID string   `json:"shardId"`
	Records []Record `json:"Records"`
}

// Shard describes one provider partition of a stream.
type Shard struct {
	ID string
}

// IteratorPolicy selects the starting read position of a shard iterator.
type IteratorPolicy string

const (
	IteratorTrimHorizon IteratorPolicy = "TRIM_HORIZON"
	IteratorLatest      IteratorPolicy = "LATEST"
)

// FetchResult is one GetRecords response. A nil NextCursor means the shard is
// closed.
type FetchResult struct {
	Records            []Record
	NextCursor         *string
	MillisBehindLatest int64
}

// FailedBatch is handed to the failure sink when a handler rejects a batch.
type FailedBatch struct {
	Cycle    uint64
	Stream   string
	Function string
	Reason   string
	Records  []Record
}
