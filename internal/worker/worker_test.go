package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/pkg/logger"
)

type fakeRelay struct {
	mu       sync.Mutex
	pending  int
	batch    int
	batches  int
	purges   int
	failNext bool
	drained  chan struct{}
}

func (r *fakeRelay) ProcessBatch(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	if r.failNext {
		r.failNext = false
		return 0, errors.New("connection reset")
	}
	n := r.batch
	if r.pending < n {
		n = r.pending
	}
	r.pending -= n
	if r.pending == 0 && r.drained != nil {
		close(r.drained)
		r.drained = nil
	}
	return n, nil
}

func (r *fakeRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purges++
	return 0, nil
}

type fakeKeys struct {
	mu    sync.Mutex
	calls int
}

func (k *fakeKeys) CleanupExpired(ctx context.Context) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls++
	return 3, nil
}

func TestProcessOutbox_DrainsUntilEmpty(t *testing.T) {
	relay := &fakeRelay{pending: 250, batch: 100}
	w := New(relay, nil, Config{}, logger.Nop())

	w.processOutbox(context.Background())

	assert.Equal(t, 0, relay.pending)
	assert.Equal(t, 4, relay.batches, "three full batches and one empty")
}

func TestProcessOutbox_StopsOnError(t *testing.T) {
	relay := &fakeRelay{pending: 10, batch: 5, failNext: true}
	w := New(relay, nil, Config{}, logger.Nop())

	w.processOutbox(context.Background())

	assert.Equal(t, 1, relay.batches)
	assert.Equal(t, 10, relay.pending)
}

func TestRun_CleansUpAndPolls(t *testing.T) {
	drained := make(chan struct{})
	relay := &fakeRelay{pending: 30, batch: 10, drained: drained}
	keys := &fakeKeys{}
	w := New(relay, keys, Config{PollInterval: 5 * time.Millisecond}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("outbox not drained")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Equal(t, 1, relay.purges, "cleanup runs once at start")
	keys.mu.Lock()
	defer keys.mu.Unlock()
	assert.Equal(t, 1, keys.calls)
}
