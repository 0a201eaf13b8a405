// Package jobqueue implements §4.9's Job Queue & Microtasks component:
// a FIFO queue of synchronous jobs and asynchronous jobs, drained by
// the embedder between turns of script execution. internal/vm never
// imports this package directly (that would cycle back through the
// object.Interpreter vm already supplies); instead a *vm.VM's
// EnqueueJob field is wired to a Queue's EnqueueJob method by whatever
// owns both (pkg/engine, internal/module's async evaluation).
package jobqueue

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
)

// Job is one unit of queued work: a closure plus the realm it should
// run against, if any. A job carrying no Realm runs with whatever
// realm its closure already captured (the common case - Promise
// reactions close over the VM that created them).
type Job struct {
	Realm *realm.Realm
	Run   func() *object.Exception
}

// Queue is the embedder-facing job queue trait (§6 JobQueue). Async
// jobs are drained to completion before any sync job runs, matching
// the default queue's documented ordering (§4.9, §5 "async before sync
// in the default queue").
type Queue interface {
	EnqueueJob(job Job)
	EnqueueAsyncJob(job Job)
	RunJobs() *object.Exception
	RunJobsAsync() *object.Exception
}

// IdleQueue discards every enqueued job and never runs anything,
// disabling promise scheduling entirely (§4.9 "An idle implementation
// may be installed to disable promise scheduling") - useful for hosts
// that drive their own event loop and want to batch-drain jobs on
// their own schedule via a different Queue, or that never touch
// Promises at all.
type IdleQueue struct{}

func (IdleQueue) EnqueueJob(Job)                  {}
func (IdleQueue) EnqueueAsyncJob(Job)             {}
func (IdleQueue) RunJobs() *object.Exception      { return nil }
func (IdleQueue) RunJobsAsync() *object.Exception { return nil }

// SimpleQueue is the default FIFO JobQueue: two slices, async drained
// first, each job's realm entered/exited around its Run call, tracing
// enqueue/drain order through go-kit/log when a non-nil logger is
// supplied (nil defaults to a no-op logger, so the tracing is always
// safe to call but silent unless an embedder opts in, per §3's ambient
// structured-logging note).
type SimpleQueue struct {
	logger log.Logger
	sync   []Job
	async  []Job
}

// NewSimpleQueue builds a FIFO queue. Pass nil for logger to run
// silently.
func NewSimpleQueue(logger log.Logger) *SimpleQueue {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SimpleQueue{logger: logger}
}

func (q *SimpleQueue) EnqueueJob(job Job) {
	q.sync = append(q.sync, job)
	level.Debug(q.logger).Log("msg", "enqueue sync job", "queue_len", len(q.sync))
}

func (q *SimpleQueue) EnqueueAsyncJob(job Job) {
	q.async = append(q.async, job)
	level.Debug(q.logger).Log("msg", "enqueue async job", "queue_len", len(q.async))
}

// runJob enters job.Realm for the duration of job.Run when one is
// given; this engine's VM is bound one-to-one with a Realm rather than
// tracking a "current realm" stack, so entering a realm here is a
// bookkeeping no-op beyond tracing today - the hook exists so a
// multi-realm embedder wiring several VMs over one Queue has a single
// place to add real realm-switching later without changing the drain
// loop's shape.
func (q *SimpleQueue) runJob(job Job) *object.Exception {
	if job.Realm != nil {
		level.Debug(q.logger).Log("msg", "entering realm", "realm_id", job.Realm.ID)
	}
	return job.Run()
}

// RunJobsAsync drains only the async queue, per §6's
// JobQueue.run_jobs_async.
func (q *SimpleQueue) RunJobsAsync() *object.Exception {
	for len(q.async) > 0 {
		job := q.async[0]
		q.async = q.async[1:]
		if exc := q.runJob(job); exc != nil {
			level.Warn(q.logger).Log("msg", "async job failed, clearing queue", "remaining", len(q.async))
			q.async = nil
			return exc
		}
	}
	return nil
}

// RunJobs drains async jobs to completion, then sync jobs in enqueue
// order, clearing the queue and returning on first error (§4.9). A
// sync job's reactions may themselves enqueue more jobs (a `.then`
// chain settling further promises); those are drained within the same
// call rather than left for a caller to notice and re-invoke RunJobs.
func (q *SimpleQueue) RunJobs() *object.Exception {
	if exc := q.RunJobsAsync(); exc != nil {
		q.sync = nil
		return exc
	}
	for len(q.sync) > 0 {
		job := q.sync[0]
		q.sync = q.sync[1:]
		if exc := q.runJob(job); exc != nil {
			level.Warn(q.logger).Log("msg", "sync job failed, clearing queue", "remaining", len(q.sync))
			q.sync = nil
			q.async = nil
			return exc
		}
		if exc := q.RunJobsAsync(); exc != nil {
			q.sync = nil
			return exc
		}
	}
	return nil
}
