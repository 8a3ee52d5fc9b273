package queue

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := New[int]()
	_, ok := q.Dequeue()
	assert.False(t, ok, "empty queue must not yield")
	assert.True(t, q.Empty())

	for i := range 5 {
		q.Enqueue(i)
	}
	assert.Equal(t, 5, q.Len())

	var got []int
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("dequeue order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_Clear(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := New[int]()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range perProducer {
				q.Enqueue(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Len())

	// Per-producer order must be preserved.
	last := make(map[int]int)
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		p := v / perProducer
		if prev, seen := last[p]; seen {
			assert.Greater(t, v, prev)
		}
		last[p] = v
	}
}
