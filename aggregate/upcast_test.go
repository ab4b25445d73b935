package aggregate

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/eskit-go/eskit/eventstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Robot is a second test aggregate whose shapes have evolved since v1.
type Robot struct {
	Base
	Designation string `json:"designation"`
	// B was introduced in schema version 2 of RobotBuilt
	B int `json:"b"`
}

// Mutate implements the Mutator interface
func (r *Robot) Mutate(e Event) error {
	switch ev := e.(type) {
	case *RobotBuilt:
		r.Designation = ev.Designation
		r.B = ev.B
	default:
		return fmt.Errorf("unable to handle event %T", ev)
	}
	return nil
}

type RobotBuilt struct {
	Initiating
	Designation string `json:"designation"`
	B           int    `json:"b"`
}

func (e RobotBuilt) EventType() string {
	return "RobotBuilt"
}

// storedRecord fakes a record persisted under an older schema version.
func storedRecord(t *testing.T, tag string, schemaVersion, version int, fields string) eventstore.Record {
	t.Helper()
	data, err := json.Marshal(jsonEvent{Type: tag, SchemaVersion: schemaVersion, Data: json.RawMessage(fields)})
	require.NoError(t, err)
	return eventstore.Record{Version: version, Data: data}
}

func newRobotRegistry(eventSchemaVersion int) *Registry {
	reg := NewRegistry()
	reg.RegisterAggregate("Robot",
		func() Mutator { return &Robot{} },
		func() InitiatingEvent { return &RobotBuilt{} },
	)
	reg.RegisterEvent(func() Event { return &RobotBuilt{} }, WithEventSchemaVersion(eventSchemaVersion))
	return reg
}

func TestEventUpcasting(t *testing.T) {
	id := NewID()
	v1Fields := fmt.Sprintf(
		`{"originator_id":%q,"originator_version":1,"timestamp":"2021-06-01T10:00:00Z","originator_type":"Robot","designation":"R2"}`,
		id,
	)

	t.Run("v1 record reconstructs under v2 code", func(t *testing.T) {
		reg := newRobotRegistry(2)
		reg.RegisterEventUpcast("RobotBuilt", 1, func(attrs Attrs) Attrs {
			attrs["b"] = 0
			return attrs
		})
		serializer := NewJSONSerializer(reg)

		ev, err := serializer.UnmarshalEvent(storedRecord(t, "RobotBuilt", 1, 1, v1Fields))
		require.NoError(t, err)

		state, err := Replay(reg, []Event{ev})
		require.NoError(t, err)

		robot := state.(*Robot)
		assert.Equal(t, "R2", robot.Designation)
		assert.Equal(t, 0, robot.B)
		assert.Equal(t, 1, robot.CurrentVersion())
	})

	t.Run("missing upcast step halts reconstruction", func(t *testing.T) {
		reg := newRobotRegistry(3)
		// only 2 -> 3 registered; the 1 -> 2 step is the hole
		reg.RegisterEventUpcast("RobotBuilt", 2, func(attrs Attrs) Attrs { return attrs })
		serializer := NewJSONSerializer(reg)

		_, err := serializer.UnmarshalEvent(storedRecord(t, "RobotBuilt", 1, 1, v1Fields))

		var missing *MissingUpcastError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "RobotBuilt", missing.Tag)
		assert.Equal(t, 1, missing.From)
		assert.Equal(t, 3, missing.Target)
	})

	t.Run("full chain closure", func(t *testing.T) {
		reg := newRobotRegistry(3)
		reg.RegisterEventUpcast("RobotBuilt", 1, func(attrs Attrs) Attrs {
			attrs["b"] = 7
			return attrs
		})
		reg.RegisterEventUpcast("RobotBuilt", 2, func(attrs Attrs) Attrs {
			// rename a legacy field
			if d, ok := attrs["designation"]; ok {
				attrs["designation"] = "unit-" + d.(string)
			}
			return attrs
		})
		serializer := NewJSONSerializer(reg)

		ev, err := serializer.UnmarshalEvent(storedRecord(t, "RobotBuilt", 1, 1, v1Fields))
		require.NoError(t, err)

		built := ev.(*RobotBuilt)
		assert.Equal(t, "unit-R2", built.Designation)
		assert.Equal(t, 7, built.B)
	})

	t.Run("registration under an unknown tag panics", func(t *testing.T) {
		reg := newRobotRegistry(2)
		noop := func(attrs Attrs) Attrs { return attrs }

		assert.Panics(t, func() { reg.RegisterEventUpcast("RobotBuild", 1, noop) })
		assert.Panics(t, func() { reg.RegisterStateUpcast("Roboter", 1, noop) })
	})

	t.Run("current-version records bypass the chain", func(t *testing.T) {
		reg := newRobotRegistry(2)
		serializer := NewJSONSerializer(reg)

		root, err := NewRoot(reg, "Robot", id, Attrs{"designation": "R2", "b": 4})
		require.NoError(t, err)

		rec, err := serializer.MarshalEvent(root.CollectPending()[0])
		require.NoError(t, err)
		ev, err := serializer.UnmarshalEvent(rec)
		require.NoError(t, err)
		assert.Equal(t, 4, ev.(*RobotBuilt).B)
	})
}

func TestStateUpcasting(t *testing.T) {
	id := NewID()

	t.Run("v1 snapshot restores under v2 state shape", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterAggregate("Robot",
			func() Mutator { return &Robot{} },
			func() InitiatingEvent { return &RobotBuilt{} },
			WithStateSchemaVersion(2),
		)
		reg.RegisterStateUpcast("Robot", 1, func(attrs Attrs) Attrs {
			attrs["b"] = 0
			return attrs
		})

		snap := &Snapshot{
			OriginatorID:      id,
			OriginatorVersion: 3,
			OriginatorType:    "Robot",
			SchemaVersion:     1,
			State:             json.RawMessage(`{"designation":"R2"}`),
		}

		root, err := RootFromSnapshot(reg, snap, nil)
		require.NoError(t, err)

		robot := root.State().(*Robot)
		assert.Equal(t, "R2", robot.Designation)
		assert.Equal(t, 0, robot.B)
		assert.Equal(t, 3, root.Version())
	})

	t.Run("v1 snapshot with no chain fails", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterAggregate("Robot",
			func() Mutator { return &Robot{} },
			func() InitiatingEvent { return &RobotBuilt{} },
			WithStateSchemaVersion(2),
		)

		snap := &Snapshot{
			OriginatorID:      id,
			OriginatorVersion: 3,
			OriginatorType:    "Robot",
			SchemaVersion:     1,
			State:             json.RawMessage(`{"designation":"R2"}`),
		}

		_, err := RootFromSnapshot(reg, snap, nil)
		var missing *MissingUpcastError
		assert.ErrorAs(t, err, &missing)
	})
}
