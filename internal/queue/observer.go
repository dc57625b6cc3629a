package queue

// Observer receives queue events. Implementations must be safe for
// concurrent use; the metrics package provides one.
type Observer interface {
	EntryAdded(queue string)
	EntryRemoved(queue string)
	DeleteRetried(queue string)
	CountFailed(queue string)
	Pruned(queue string, buckets, entries int)
	Depth(queue string, depth int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) EntryAdded(string)       {}
func (NopObserver) EntryRemoved(string)     {}
func (NopObserver) DeleteRetried(string)    {}
func (NopObserver) CountFailed(string)      {}
func (NopObserver) Pruned(string, int, int) {}
func (NopObserver) Depth(string, int)       {}
