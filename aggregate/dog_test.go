package aggregate

import (
	"errors"
	"fmt"
)

// Dog is the test aggregate used across this package's tests.
type Dog struct {
	Base
	Name   string   `json:"name"`
	Tricks []string `json:"tricks"`
}

// Mutate implements the Mutator interface
func (d *Dog) Mutate(e Event) error {
	switch ev := e.(type) {
	case *DogRegistered:
		d.Name = ev.Name
		d.Tricks = []string{}
	case *TrickAdded:
		d.Tricks = append(d.Tricks, ev.Trick)
	case *Discarded:
		// nothing to clean up
	default:
		return fmt.Errorf("unable to handle event %T", ev)
	}
	return nil
}

// Dog events

type DogRegistered struct {
	Initiating
	Name string `json:"name"`
}

func (e DogRegistered) EventType() string {
	return "DogRegistered"
}

type TrickAdded struct {
	Model
	Trick string `json:"trick"`
}

func (e TrickAdded) EventType() string {
	return "TrickAdded"
}

// addTrick is a command method: validation first, Trigger only when the
// command is valid for the current state.
func addTrick(r *Root, trick string) error {
	if r.Discarded() {
		return ErrDiscarded
	}
	dog := r.State().(*Dog)
	if trick == "" {
		return errors.New("trick must not be empty")
	}
	for _, known := range dog.Tricks {
		if known == trick {
			return fmt.Errorf("%s already knows %s", dog.Name, trick)
		}
	}
	return r.Trigger(&TrickAdded{Trick: trick})
}

// unknownEvent - consider this an invalid event for these tests
type unknownEvent struct {
	Model
}

func (e unknownEvent) EventType() string {
	return "UnknownEvent"
}

func newDogRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterAggregate("Dog",
		func() Mutator { return &Dog{} },
		func() InitiatingEvent { return &DogRegistered{} },
	)
	reg.RegisterEvents(
		func() Event { return &DogRegistered{} },
		func() Event { return &TrickAdded{} },
	)
	return reg
}
