package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skdm/pkg/platform/audit"
	auditworker "skdm/pkg/platform/audit/worker"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("sink unavailable")
}

func TestStoreEmitterStampsTimestamp(t *testing.T) {
	store := audit.NewMemoryStore()
	emitter := audit.NewStoreEmitter(store, slog.New(slog.DiscardHandler))

	err := emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionTenantIsolationViolation,
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestStoreEmitterComplianceIsFailClosed(t *testing.T) {
	emitter := audit.NewStoreEmitter(failingStore{}, slog.New(slog.DiscardHandler))

	err := emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionDeclarationCreated,
	})
	assert.Error(t, err, "a lost compliance event must fail the operation")

	err = emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionLoginFailed,
	})
	assert.NoError(t, err, "security events must never block the caller")
}

func TestNilEmitterDropsEvents(t *testing.T) {
	var emitter *audit.StoreEmitter
	assert.NoError(t, emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionDeclarationCreated,
	}))
}

func TestBufferedEmitterComplianceStaysSynchronous(t *testing.T) {
	store := audit.NewMemoryStore()
	emitter := audit.NewBufferedEmitter(store, slog.New(slog.DiscardHandler), 4)

	err := emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionDeclarationCreated,
	})
	require.NoError(t, err)

	// No worker is running; the compliance event must already be persisted.
	require.Len(t, store.ByAction(audit.ActionDeclarationCreated), 1)

	failing := audit.NewBufferedEmitter(failingStore{}, slog.New(slog.DiscardHandler), 4)
	err = failing.Emit(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionDeclarationCreated,
	})
	assert.Error(t, err)
}

func TestBufferedEmitterWorkerDrainsSecurityEvents(t *testing.T) {
	store := audit.NewMemoryStore()
	emitter := audit.NewBufferedEmitter(store, slog.New(slog.DiscardHandler), 4)
	worker := auditworker.NewWorker(store, emitter.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	err := emitter.Emit(context.Background(), audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionTenantIsolationViolation,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(store.ByAction(audit.ActionTenantIsolationViolation)) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBufferedEmitterDropsWhenFull(t *testing.T) {
	store := audit.NewMemoryStore()
	emitter := audit.NewBufferedEmitter(store, slog.New(slog.DiscardHandler), 1)

	// No worker draining: the second event overflows and is dropped, but
	// the caller still succeeds.
	for i := 0; i < 2; i++ {
		err := emitter.Emit(context.Background(), audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.ActionDeclarationStatusChanged,
		})
		require.NoError(t, err)
	}
	assert.Empty(t, store.Events())
}
