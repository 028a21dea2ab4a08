package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhaizeyu/smart-mind/domain/events"
)

func TestPublisher_LogsEachEvent(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.InfoLevel)
	p := NewPublisher(zap.New(core))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []events.DomainEvent{
		events.NewMindMapArranged("m", 3, at),
		events.NewMindMapReplaced("m", 3, 1, at),
	}

	// Act
	err := p.PublishBatch(context.Background(), batch)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 2, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, events.TypeMindMapArranged, first["event_type"])
	assert.Equal(t, "m", first["map_id"])
}
