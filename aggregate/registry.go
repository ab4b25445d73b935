package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Attrs is the untyped field map handed to upcast transformations and to
// attribute-driven construction.
type Attrs map[string]interface{}

// Upcast is a pure transformation migrating a field map from one schema
// version to the next. Once a version's transformation is in use it must
// not change: previously-upcast data and freshly-upcast data would
// otherwise diverge.
type Upcast func(attrs Attrs) Attrs

// Registry maps stable string tags to the construction, apply and upcast
// logic of aggregate types and their events. It replaces any reflective
// topic resolution: stored events keep their stable tags, and the
// registry is populated explicitly at startup.
type Registry struct {
	mu         sync.RWMutex
	aggregates map[string]*aggregateSpec
	events     map[string]*eventSpec
}

type aggregateSpec struct {
	tag            string
	newState       func() Mutator
	newInitiating  func() InitiatingEvent
	initialVersion int
	schemaVersion  int
	upcasts        map[int]Upcast
}

type eventSpec struct {
	tag           string
	ctor          func() Event
	schemaVersion int
	upcasts       map[int]Upcast
}

// NewRegistry constructs a Registry holding only the built-in Discarded
// event, so Root.Discard works for every registered aggregate type.
func NewRegistry() *Registry {
	r := &Registry{
		aggregates: map[string]*aggregateSpec{},
		events:     map[string]*eventSpec{},
	}
	r.RegisterEvents(func() Event { return &Discarded{} })
	return r
}

// AggregateOption configures a registered aggregate type.
type AggregateOption func(*aggregateSpec)

// WithInitialVersion overrides the version of the type's initiating
// event (default InitialVersion).
func WithInitialVersion(v int) AggregateOption {
	return func(s *aggregateSpec) { s.initialVersion = v }
}

// WithStateSchemaVersion declares the current schema version of the
// aggregate-state shape (default 1). Snapshots taken under an older
// version are upcast through the chain registered for the type's tag.
func WithStateSchemaVersion(v int) AggregateOption {
	return func(s *aggregateSpec) { s.schemaVersion = v }
}

// EventOption configures a registered event type.
type EventOption func(*eventSpec)

// WithEventSchemaVersion declares the current schema version of the
// event shape (default 1).
func WithEventSchemaVersion(v int) EventOption {
	return func(s *eventSpec) { s.schemaVersion = v }
}

// RegisterAggregate binds an aggregate tag to its state constructor and
// the constructor of its initiating event.
func (r *Registry) RegisterAggregate(tag string, newState func() Mutator, newInitiating func() InitiatingEvent, opts ...AggregateOption) {
	spec := &aggregateSpec{
		tag:            tag,
		newState:       newState,
		newInitiating:  newInitiating,
		initialVersion: InitialVersion,
		schemaVersion:  1,
		upcasts:        map[int]Upcast{},
	}
	for _, opt := range opts {
		opt(spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregates[tag] = spec
}

// RegisterEvents binds event constructors under the tags the constructed
// events report via EventType; may be called more than once.
func (r *Registry) RegisterEvents(ctors ...func() Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ctor := range ctors {
		tag := ctor().EventType()
		r.events[tag] = &eventSpec{
			tag:           tag,
			ctor:          ctor,
			schemaVersion: 1,
			upcasts:       map[int]Upcast{},
		}
	}
}

// RegisterEvent binds a single event constructor with options.
func (r *Registry) RegisterEvent(ctor func() Event, opts ...EventOption) {
	tag := ctor().EventType()
	spec := &eventSpec{
		tag:           tag,
		ctor:          ctor,
		schemaVersion: 1,
		upcasts:       map[int]Upcast{},
	}
	for _, opt := range opts {
		opt(spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[tag] = spec
}

// RegisterEventUpcast registers the transformation from schema version
// `from` to `from+1` for the event stored under tag. The event must be
// registered first; an unknown tag panics, since a mistyped tag would
// otherwise only surface as a MissingUpcastError during reconstruction.
func (r *Registry) RegisterEventUpcast(tag string, from int, fn Upcast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.events[tag]
	if !ok {
		panic(fmt.Sprintf("aggregate: no event registered under tag %q", tag))
	}
	spec.upcasts[from] = fn
}

// RegisterStateUpcast registers the transformation from schema version
// `from` to `from+1` for the aggregate-state shape stored under tag. The
// aggregate must be registered first; an unknown tag panics.
func (r *Registry) RegisterStateUpcast(tag string, from int, fn Upcast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.aggregates[tag]
	if !ok {
		panic(fmt.Sprintf("aggregate: no aggregate registered under tag %q", tag))
	}
	spec.upcasts[from] = fn
}

func (r *Registry) aggregate(tag string) (*aggregateSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.aggregates[tag]
	if !ok {
		return nil, fmt.Errorf("unregistered aggregate type, %v", tag)
	}
	return spec, nil
}

func (r *Registry) event(tag string) (*eventSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.events[tag]
	if !ok {
		return nil, fmt.Errorf("unregistered event type, %v", tag)
	}
	return spec, nil
}

// runUpcasts applies the registered chain from the stored schema version
// up to target. The chain is resolved purely from the version numbers;
// a hole in it is a MissingUpcastError.
func runUpcasts(tag string, upcasts map[int]Upcast, stored, target int, attrs Attrs) (Attrs, error) {
	for v := stored; v < target; v++ {
		fn, ok := upcasts[v]
		if !ok {
			return nil, &MissingUpcastError{
				Tag:           tag,
				SchemaVersion: stored,
				Target:        target,
				From:          v,
			}
		}
		attrs = fn(attrs)
	}
	return attrs, nil
}

// decodeStrict unmarshals data into dst rejecting fields dst does not
// declare. Mismatches surface as MismatchedAttributesError.
func decodeStrict(tag string, data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &MismatchedAttributesError{Tag: tag, Err: err}
	}
	return nil
}

// decodeAttrs strict-decodes a field map into dst.
func decodeAttrs(tag string, attrs Attrs, dst interface{}) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return &MismatchedAttributesError{Tag: tag, Err: err}
	}
	return decodeStrict(tag, data, dst)
}
