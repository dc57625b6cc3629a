package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueEntry describes a queue entry in a transport-friendly format.
type QueueEntry struct {
	ID          string         `json:"id"`
	Queue       string         `json:"queue"`
	State       string         `json:"state"`
	PackageID   string         `json:"packageId"`
	Size        int64          `json:"size"`
	RequestType string         `json:"requestType,omitempty"`
	Bucket      string         `json:"bucket,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// QueueListResponse wraps a window of queue entries.
type QueueListResponse struct {
	Queue   string       `json:"queue"`
	Size    int          `json:"size"`
	Skip    int          `json:"skip"`
	Entries []QueueEntry `json:"entries"`
}

// QueueEntryResponse wraps a single queue entry.
type QueueEntryResponse struct {
	Entry QueueEntry `json:"entry"`
}

// QueueReport is the prune outcome for one queue.
type QueueReport struct {
	Queue   string   `json:"queue"`
	Buckets []string `json:"buckets,omitempty"`
	Entries int      `json:"entries"`
	Depth   int      `json:"depth"`
	Error   string   `json:"error,omitempty"`
}

// PruneReport summarizes one prune pass over the managed queues.
type PruneReport struct {
	StartedAt  string        `json:"startedAt"`
	DurationMS int64         `json:"durationMs"`
	Queues     []QueueReport `json:"queues"`
}

// Failed reports whether any queue failed to prune.
func (r PruneReport) Failed() bool {
	for _, q := range r.Queues {
		if q.Error != "" {
			return true
		}
	}
	return false
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool         `json:"running"`
	PID           int          `json:"pid"`
	Backend       string       `json:"backend"`
	StoreLocation string       `json:"storeLocation"`
	LockFilePath  string       `json:"lockFilePath"`
	QueueRoot     string       `json:"queueRoot"`
	Queues        []string     `json:"queues"`
	PruneInterval string       `json:"pruneInterval"`
	LastPrune     *PruneReport `json:"lastPrune,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
