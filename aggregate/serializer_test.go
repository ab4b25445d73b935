package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/eskit-go/eskit/eventstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSerializer(t *testing.T) {
	reg := newDogRegistry()
	serializer := NewJSONSerializer(reg)

	t.Run("round trip keeps structural equality", func(t *testing.T) {
		original := &TrickAdded{
			Model: Model{ID: NewID(), Version: 3, At: time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)},
			Trick: "roll over",
		}

		rec, err := serializer.MarshalEvent(original)
		require.NoError(t, err)
		assert.Equal(t, 3, rec.Version)

		decoded, err := serializer.UnmarshalEvent(rec)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("initiating event keeps its originator type", func(t *testing.T) {
		root, err := NewRoot(reg, "Dog", "", Attrs{"name": "Rex"})
		require.NoError(t, err)

		rec, err := serializer.MarshalEvent(root.CollectPending()[0])
		require.NoError(t, err)

		decoded, err := serializer.UnmarshalEvent(rec)
		require.NoError(t, err)

		initiating, ok := decoded.(InitiatingEvent)
		require.True(t, ok)
		assert.Equal(t, "Dog", initiating.OriginatorType())
		assert.Equal(t, KindInitiating, initiating.EventKind())
	})

	t.Run("unbound event type", func(t *testing.T) {
		_, err := serializer.MarshalEvent(&unknownEvent{})
		assert.Error(t, err)

		data, _ := json.Marshal(jsonEvent{Type: "UnknownEvent", SchemaVersion: 1, Data: json.RawMessage(`{}`)})
		_, err = serializer.UnmarshalEvent(eventstore.Record{Version: 1, Data: data})
		assert.Error(t, err)
	})

	t.Run("stored fields not matching the declared shape", func(t *testing.T) {
		data, _ := json.Marshal(jsonEvent{
			Type:          "TrickAdded",
			SchemaVersion: 1,
			Data:          json.RawMessage(`{"trick":"fetch","volume":"loud"}`),
		})
		_, err := serializer.UnmarshalEvent(eventstore.Record{Version: 2, Data: data})

		var mismatch *MismatchedAttributesError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "TrickAdded", mismatch.Tag)
	})
}
