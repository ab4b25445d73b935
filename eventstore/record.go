package eventstore

// Record represents one event in serialized form. Data is opaque to the
// store; Version is the event's position within its originator sequence.
type Record struct {
	Version int    `dynamodbav:"version"`
	Data    []byte `dynamodbav:"event_data"`
}

// History is an ordered list of records for one originator.
type History []Record

// Len implements sort.Interface
func (h History) Len() int {
	return len(h)
}

// Swap implements sort.Interface
func (h History) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Less implements sort.Interface
func (h History) Less(i, j int) bool {
	return h[i].Version < h[j].Version
}

// LastVersion returns the version of the final record, or 0 when empty.
func (h History) LastVersion() int {
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1].Version
}
