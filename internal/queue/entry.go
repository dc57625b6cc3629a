package queue

// Node types used inside a queue.
const (
	RootType   = "distq:Folder"
	FolderType = "distq:OrderedFolder"
	ItemType   = "distq:Item"
)

// ResourceTypeProperty records the node type as a plain property on item
// nodes for consumers that only read properties.
const ResourceTypeProperty = "distq:resourceType"

// ItemState is the processing state of an entry.
type ItemState string

// StateQueued is the state of every entry read from the store.
const StateQueued ItemState = "QUEUED"

// ItemStatus is the state of an entry and the queue holding it.
type ItemStatus struct {
	State ItemState
	Queue string
}

// Entry is an item as read back from a queue. Entries are only produced by
// ReadEntry and the functions built on it.
type Entry struct {
	ID     string
	Item   Item
	Status ItemStatus
}
