package aggregate

// Observer is notified after events have been durably recorded by a
// Repository. Observe failures are reported through OnObserveFailed and
// never fail the save: the events are already recorded.
type Observer interface {
	WillObserve(root *Root, event Event) bool
	Observe(root *Root, event Event) error
	OnObserveFailed(error)
}
