package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/inventory-auth/internal/events"
)

func TestStartAuditWorker(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewMemoryBus()
	StartAuditWorker(dispatcher, zap.New(core))

	event := events.NewEvent(events.EventAccountStatusSet, "bob", events.AccountStatusPayload{Active: false})
	event.Actor = "root"
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "account_status_set", fields["type"])
	assert.Equal(t, "bob", fields["subject"])
	assert.Equal(t, "root", fields["actor"])
}

func TestStartAuditWorker_NilCollaborators(t *testing.T) {
	assert.NotPanics(t, func() {
		StartAuditWorker(nil, zap.NewNop())
		StartAuditWorker(events.NewMemoryBus(), nil)
	})
}
