package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/value"
)

func TestSimpleQueueFIFOOrder(t *testing.T) {
	q := NewSimpleQueue(nil)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		q.EnqueueJob(Job{Run: func() *object.Exception {
			order = append(order, i)
			return nil
		}})
	}
	require.Nil(t, q.RunJobs())
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestSimpleQueueDrainsAsyncBeforeSync(t *testing.T) {
	q := NewSimpleQueue(nil)
	var order []string
	q.EnqueueJob(Job{Run: func() *object.Exception {
		order = append(order, "sync")
		return nil
	}})
	q.EnqueueAsyncJob(Job{Run: func() *object.Exception {
		order = append(order, "async")
		return nil
	}})
	require.Nil(t, q.RunJobs())
	require.Equal(t, []string{"async", "sync"}, order)
}

func TestSimpleQueueSyncJobCanEnqueueMore(t *testing.T) {
	q := NewSimpleQueue(nil)
	var order []string
	q.EnqueueJob(Job{Run: func() *object.Exception {
		order = append(order, "first")
		q.EnqueueJob(Job{Run: func() *object.Exception {
			order = append(order, "second")
			return nil
		}})
		return nil
	}})
	require.Nil(t, q.RunJobs())
	require.Equal(t, []string{"first", "second"}, order)
}

func TestSimpleQueueErrorClearsQueue(t *testing.T) {
	q := NewSimpleQueue(nil)
	var ran []int
	exc := object.Throw(value.FromGoString("boom"))
	q.EnqueueJob(Job{Run: func() *object.Exception {
		ran = append(ran, 0)
		return exc
	}})
	q.EnqueueJob(Job{Run: func() *object.Exception {
		ran = append(ran, 1)
		return nil
	}})
	got := q.RunJobs()
	require.Same(t, exc, got)
	require.Equal(t, []int{0}, ran)
	require.Equal(t, 0, len(q.sync))
	require.Equal(t, 0, len(q.async))
}

func TestSimpleQueueAsyncErrorAlsoClearsSync(t *testing.T) {
	q := NewSimpleQueue(nil)
	var syncRan bool
	q.EnqueueJob(Job{Run: func() *object.Exception {
		syncRan = true
		return nil
	}})
	exc := object.Throw(value.FromGoString("async failure"))
	q.EnqueueAsyncJob(Job{Run: func() *object.Exception {
		return exc
	}})
	got := q.RunJobs()
	require.Same(t, exc, got)
	require.False(t, syncRan)
}

func TestIdleQueueDiscardsEverything(t *testing.T) {
	var q IdleQueue
	ran := false
	q.EnqueueJob(Job{Run: func() *object.Exception {
		ran = true
		return nil
	}})
	q.EnqueueAsyncJob(Job{Run: func() *object.Exception {
		ran = true
		return nil
	}})
	require.Nil(t, q.RunJobs())
	require.Nil(t, q.RunJobsAsync())
	require.False(t, ran)
}
