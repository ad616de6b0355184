package broker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (t *fakeTransport) WriteJSON(v any) error {
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func TestRegistry_RegisterUser_EvictsPrevious(t *testing.T) {
	r := NewRegistry(nil)

	firstTr := &fakeTransport{}
	first := NewConn(KindUser, "42", firstTr)
	second := NewConn(KindUser, "42", &fakeTransport{})

	r.Register(first)
	r.Register(second)

	got, ok := r.LookupUser("42")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, firstTr.Closed())

	// снятие вытесненного соединения не затирает запись преемника
	r.Unregister(first)
	got, ok = r.LookupUser("42")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_Unregister_Idempotent(t *testing.T) {
	r := NewRegistry(nil)

	c := NewConn(KindUser, "7", &fakeTransport{})
	r.Register(c)
	r.Unregister(c)
	r.Unregister(c)

	_, ok := r.LookupUser("7")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Snapshot().ActiveConnections)
}

func TestRegistry_GymConnections_Accumulate(t *testing.T) {
	r := NewRegistry(nil)

	a := NewConn(KindGym, "1", &fakeTransport{})
	b := NewConn(KindGym, "1", &fakeTransport{})
	c := NewConn(KindGym, "2", &fakeTransport{})

	r.Register(a)
	r.Register(b)
	r.Register(c)

	snap := r.Snapshot()
	assert.Equal(t, 3, snap.ActiveConnections)
	assert.Equal(t, map[string]int{"1": 2, "2": 1}, snap.GymSubscriptions)

	assert.Len(t, r.LookupGym("1"), 2)
	assert.Len(t, r.LookupGym("2"), 1)
	assert.Empty(t, r.LookupGym("3"))

	r.Unregister(a)
	r.Unregister(b)

	snap = r.Snapshot()
	assert.Equal(t, 1, snap.ActiveConnections)
	// зал без соединений исчезает из снимка вместо нулевого счетчика
	assert.Equal(t, map[string]int{"2": 1}, snap.GymSubscriptions)
}

func TestRegistry_Snapshot_SortsUsers(t *testing.T) {
	r := NewRegistry(nil)

	for _, id := range []string{"30", "10", "20"} {
		r.Register(NewConn(KindUser, id, &fakeTransport{}))
	}

	snap := r.Snapshot()
	assert.Equal(t, []string{"10", "20", "30"}, snap.ConnectedUsers)
	assert.Equal(t, 3, snap.ActiveConnections)
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := NewConn(KindUser, "1", &fakeTransport{})
			gym := NewConn(KindGym, "9", &fakeTransport{})
			r.Register(user)
			r.Register(gym)
			r.Unregister(gym)
			r.Unregister(user)
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Empty(t, snap.GymSubscriptions)
	// вытесненные соединения не оставляют висячих записей
	assert.LessOrEqual(t, snap.ActiveConnections, 1)
}
