package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefan-vatov/nightwatch-deck/internal/models"
)

func TestDecodeClientMessage(t *testing.T) {
	t.Run("decodes a join command", func(t *testing.T) {
		msg, err := models.DecodeClientMessage([]byte(`{"type":"join","roomId":"DEMO01","playerId":"p1","name":"Alex"}`))
		require.NoError(t, err)

		assert.Equal(t, models.MsgTypeJoin, msg.Type)
		assert.Equal(t, "p1", msg.PlayerID)
		assert.Equal(t, "Alex", msg.Name)
	})

	t.Run("decodes a vote with a numeric card", func(t *testing.T) {
		msg, err := models.DecodeClientMessage([]byte(`{"type":"vote","playerId":"p1","value":8}`))
		require.NoError(t, err)

		require.NotNil(t, msg.Value)
		assert.Equal(t, models.NumericEstimate(8), *msg.Value)
	})

	t.Run("decodes a vote with the unknown card", func(t *testing.T) {
		msg, err := models.DecodeClientMessage([]byte(`{"type":"vote","playerId":"p1","value":"?"}`))
		require.NoError(t, err)

		require.NotNil(t, msg.Value)
		assert.True(t, msg.Value.Unknown)
	})

	t.Run("unparseable body is malformed", func(t *testing.T) {
		_, err := models.DecodeClientMessage([]byte(`{nope`))
		assert.ErrorIs(t, err, models.ErrMalformedMessage)
	})

	t.Run("invalid estimate value is malformed", func(t *testing.T) {
		_, err := models.DecodeClientMessage([]byte(`{"type":"vote","playerId":"p1","value":"XL"}`))
		assert.ErrorIs(t, err, models.ErrMalformedMessage)
	})

	t.Run("unknown discriminator is unsupported", func(t *testing.T) {
		_, err := models.DecodeClientMessage([]byte(`{"type":"launch"}`))
		assert.ErrorIs(t, err, models.ErrUnsupportedMessage)
	})

	t.Run("missing discriminator is unsupported", func(t *testing.T) {
		_, err := models.DecodeClientMessage([]byte(`{}`))
		assert.ErrorIs(t, err, models.ErrUnsupportedMessage)
	})
}

func TestServerMessages(t *testing.T) {
	t.Run("room:init carries snapshot and assigned id", func(t *testing.T) {
		room := models.NewRoom("DEMO01")
		data, err := json.Marshal(models.RoomInitMessage(room.Snapshot(), "p1"))
		require.NoError(t, err)

		assert.JSONEq(t,
			`{"type":"room:init","room":{"id":"DEMO01","players":[],"revealed":false,"round":1},"playerId":"p1"}`,
			string(data))
	})

	t.Run("pong has no extra fields", func(t *testing.T) {
		data, err := json.Marshal(models.PongMessage())
		require.NoError(t, err)
		assert.Equal(t, `{"type":"pong"}`, string(data))
	})

	t.Run("error carries only the message", func(t *testing.T) {
		data, err := json.Marshal(models.ErrorMessage("Name is required"))
		require.NoError(t, err)
		assert.Equal(t, `{"type":"error","message":"Name is required"}`, string(data))
	})
}
