package schema

import (
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationV1(t *testing.T) {
	var nSchema avro.Schema

	require.NotPanics(t, func() {
		nSchema = NotificationV1Avro()
	})

	t.Run("LowStockWithoutItems", func(t *testing.T) {
		vMarshal := NotificationV1{
			Kind:        KindLowStock,
			ProductID:   "p1",
			ProductName: "Spaghetti",
			Stock:       2,
			CreatedAt:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		}

		data, err := avro.Marshal(nSchema, vMarshal)
		require.NoError(t, err)

		var vUnmarshal NotificationV1
		err = avro.Unmarshal(nSchema, data, &vUnmarshal)
		require.NoError(t, err)

		assert.Equal(t, vMarshal.Kind, vUnmarshal.Kind)
		assert.Equal(t, vMarshal.Stock, vUnmarshal.Stock)
		assert.Empty(t, vUnmarshal.Items)
		assert.True(t, vMarshal.CreatedAt.Equal(vUnmarshal.CreatedAt))
	})
}
