package jobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkey1/fbbot/pkg/browser"
)

// fakeHandle implements browser.Handle for registry and pool tests.
type fakeHandle struct {
	id       string
	name     string
	closeErr error

	mu     sync.Mutex
	closed bool
	killed bool
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{id: id, name: "session-" + id}
}

func (h *fakeHandle) ID() string         { return h.id }
func (h *fakeHandle) Name() string       { return h.name }
func (h *fakeHandle) Page() browser.Page { return nil }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		return h.closeErr
	}
	h.closed = true
	return nil
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed = true
	return nil
}

func (h *fakeHandle) wasClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) wasKilled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killed
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		job := r.Create()
		require.NotEmpty(t, job.ID())
		assert.False(t, seen[job.ID()], "duplicate job id %s", job.ID())
		seen[job.ID()] = true
		assert.False(t, job.Cancelled())
		assert.Equal(t, 0, job.BrowserCount())
	}

	assert.Equal(t, 20, r.Count())
}

func TestRegisterUnregisterConcurrent(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	var wg sync.WaitGroup
	handles := make([]*fakeHandle, 50)
	for i := range handles {
		handles[i] = newFakeHandle(fmt.Sprintf("h%d", i))
	}

	for _, h := range handles {
		wg.Add(1)
		go func(h *fakeHandle) {
			defer wg.Done()
			job.RegisterBrowser(h)
			job.UnregisterBrowser(h)
		}(h)
	}
	wg.Wait()

	assert.Equal(t, 0, job.BrowserCount())
}

func TestDisposeRemovesJob(t *testing.T) {
	r := NewRegistry()
	job := r.Create()
	require.Equal(t, 1, r.Count())

	r.Dispose(job)
	assert.Equal(t, 0, r.Count())

	// Disposing twice is harmless
	r.Dispose(job)
	assert.Equal(t, 0, r.Count())
}

func TestDisposeClosesStragglers(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	straggler := newFakeHandle("straggler")
	job.RegisterBrowser(straggler)

	r.Dispose(job)

	assert.True(t, straggler.wasClosed())
	assert.Equal(t, 0, job.BrowserCount())
	assert.Equal(t, 0, r.Count())
}

func TestRequestStopAll(t *testing.T) {
	r := NewRegistry()

	jobA := r.Create()
	jobB := r.Create()

	good := newFakeHandle("good")
	stubborn := newFakeHandle("stubborn")
	stubborn.closeErr = errors.New("browser is hung")
	other := newFakeHandle("other")

	jobA.RegisterBrowser(good)
	jobA.RegisterBrowser(stubborn)
	jobB.RegisterBrowser(other)

	r.RequestStopAll()

	// Every job is cancelled and the registry is empty
	assert.True(t, jobA.Cancelled())
	assert.True(t, jobB.Cancelled())
	assert.Equal(t, 0, r.Count())

	// Graceful closes happened, and the hung browser was killed
	assert.True(t, good.wasClosed())
	assert.True(t, other.wasClosed())
	assert.False(t, stubborn.wasClosed())
	assert.True(t, stubborn.wasKilled())

	// No tracked browsers remain
	assert.Equal(t, 0, jobA.BrowserCount())
	assert.Equal(t, 0, jobB.BrowserCount())
}

func TestStopAllOnEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	r.RequestStopAll()
	assert.Equal(t, 0, r.Count())
}

func TestDisposeAfterStopAll(t *testing.T) {
	r := NewRegistry()
	job := r.Create()

	r.RequestStopAll()
	require.Equal(t, 0, r.Count())

	// The orchestration call returns later and disposes as usual
	r.Dispose(job)
	assert.Equal(t, 0, r.Count())
}

func TestCloseOrKill(t *testing.T) {
	clean := newFakeHandle("clean")
	CloseOrKill(clean)
	assert.True(t, clean.wasClosed())
	assert.False(t, clean.wasKilled())

	hung := newFakeHandle("hung")
	hung.closeErr = errors.New("close failed")
	CloseOrKill(hung)
	assert.False(t, hung.wasClosed())
	assert.True(t, hung.wasKilled())
}
