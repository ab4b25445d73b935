package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInitial(t *testing.T) {
	reg := newDogRegistry()

	t.Run("constructs state and initiating event", func(t *testing.T) {
		id := NewID()
		state, ev, err := CreateInitial(reg, "Dog", id, Attrs{"name": "Rex"})
		require.NoError(t, err)

		dog := state.(*Dog)
		assert.Equal(t, id, dog.OriginatorID())
		assert.Equal(t, InitialVersion, dog.CurrentVersion())
		assert.Equal(t, "Rex", dog.Name)
		assert.Equal(t, []string{}, dog.Tricks)
		assert.Equal(t, dog.CreatedOn(), dog.ModifiedOn())

		assert.Equal(t, KindInitiating, ev.EventKind())
		assert.Equal(t, "Dog", ev.OriginatorType())
		assert.Equal(t, id, ev.OriginatorID())
		assert.Equal(t, InitialVersion, ev.OriginatorVersion())
	})

	t.Run("no extra attributes", func(t *testing.T) {
		state, _, err := CreateInitial(reg, "Dog", NewID(), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, state.CurrentVersion())
	})

	t.Run("mismatched attributes", func(t *testing.T) {
		_, _, err := CreateInitial(reg, "Dog", NewID(), Attrs{"name": "Rex", "color": "brown"})
		var mismatch *MismatchedAttributesError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "Dog", mismatch.Tag)
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, _, err := CreateInitial(reg, "Cat", NewID(), nil)
		assert.Error(t, err)
	})

	t.Run("custom initial version", func(t *testing.T) {
		reg2 := NewRegistry()
		reg2.RegisterAggregate("Dog",
			func() Mutator { return &Dog{} },
			func() InitiatingEvent { return &DogRegistered{} },
			WithInitialVersion(0),
		)
		state, ev, err := CreateInitial(reg2, "Dog", NewID(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, state.CurrentVersion())
		assert.Equal(t, 0, ev.OriginatorVersion())
	})
}

func TestApply(t *testing.T) {
	reg := newDogRegistry()
	id := NewID()

	newDogAt := func(version int) Mutator {
		state, _, err := CreateInitial(reg, "Dog", id, Attrs{"name": "Rex"})
		require.NoError(t, err)
		for v := 2; v <= version; v++ {
			var err error
			state, err = Apply(state, &TrickAdded{
				Model: Model{ID: id, Version: v, At: time.Now()},
				Trick: "trick " + string(rune('a'+v)),
			})
			require.NoError(t, err)
		}
		return state
	}

	t.Run("advances version and modification time", func(t *testing.T) {
		state := newDogAt(1)
		at := time.Now()
		next, err := Apply(state, &TrickAdded{Model: Model{ID: id, Version: 2, At: at}, Trick: "roll over"})
		require.NoError(t, err)

		dog := next.(*Dog)
		assert.Equal(t, 2, dog.CurrentVersion())
		assert.Equal(t, at, dog.ModifiedOn())
		assert.Equal(t, []string{"roll over"}, dog.Tricks)
	})

	t.Run("version gap", func(t *testing.T) {
		state := newDogAt(4)
		_, err := Apply(state, &TrickAdded{Model: Model{ID: id, Version: 6, At: time.Now()}, Trick: "fetch"})

		var versionErr *OriginatorVersionError
		require.ErrorAs(t, err, &versionErr)
		assert.Equal(t, 5, versionErr.Expected)
		assert.Equal(t, 6, versionErr.Got)
		// state is untouched
		assert.Equal(t, 4, state.CurrentVersion())
		assert.Len(t, state.(*Dog).Tricks, 3)
	})

	t.Run("foreign originator", func(t *testing.T) {
		state := newDogAt(2)
		_, err := Apply(state, &TrickAdded{Model: Model{ID: NewID(), Version: 3, At: time.Now()}, Trick: "fetch"})

		var idErr *OriginatorIDError
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, 2, state.CurrentVersion())
	})

	t.Run("mutate failure leaves bookkeeping untouched", func(t *testing.T) {
		state := newDogAt(2)
		before := state.ModifiedOn()
		_, err := Apply(state, &unknownEvent{Model{ID: id, Version: 3, At: time.Now()}})
		require.Error(t, err)
		assert.Equal(t, 2, state.CurrentVersion())
		assert.Equal(t, before, state.ModifiedOn())
	})

	t.Run("terminal event yields no state", func(t *testing.T) {
		state := newDogAt(3)
		next, err := Apply(state, &Discarded{Terminal{Model{ID: id, Version: 4, At: time.Now()}}})
		require.NoError(t, err)
		assert.Nil(t, next)
	})

	t.Run("applying to absent state", func(t *testing.T) {
		_, err := Apply(nil, &TrickAdded{Model: Model{ID: id, Version: 5, At: time.Now()}, Trick: "fetch"})
		assert.ErrorIs(t, err, ErrDiscarded)
	})
}

func TestReplay(t *testing.T) {
	reg := newDogRegistry()

	t.Run("replay equals incremental application", func(t *testing.T) {
		root, err := NewRoot(reg, "Dog", "", Attrs{"name": "Rex"})
		require.NoError(t, err)
		require.NoError(t, root.Trigger(&TrickAdded{Trick: "roll over"}))
		require.NoError(t, root.Trigger(&TrickAdded{Trick: "fetch ball"}))
		require.NoError(t, root.Trigger(&TrickAdded{Trick: "play dead"}))

		events := root.CollectPending()
		require.Len(t, events, 4)

		replayed, err := Replay(reg, events)
		require.NoError(t, err)
		assert.Equal(t, root.State().(*Dog), replayed.(*Dog))
		assert.Equal(t, []string{"roll over", "fetch ball", "play dead"}, replayed.(*Dog).Tricks)
		assert.Equal(t, 4, replayed.CurrentVersion())
	})

	t.Run("empty sequence", func(t *testing.T) {
		_, err := Replay(reg, nil)
		assert.Error(t, err)
	})

	t.Run("first event must initiate", func(t *testing.T) {
		_, err := Replay(reg, []Event{
			&TrickAdded{Model: Model{ID: NewID(), Version: 1, At: time.Now()}, Trick: "fetch"},
		})
		assert.Error(t, err)
	})

	t.Run("terminal sequence replays to no state", func(t *testing.T) {
		root, err := NewRoot(reg, "Dog", "", Attrs{"name": "Rex"})
		require.NoError(t, err)
		require.NoError(t, root.Discard())

		state, err := Replay(reg, root.CollectPending())
		require.NoError(t, err)
		assert.Nil(t, state)
	})
}
