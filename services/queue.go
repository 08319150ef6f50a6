package services

import (
	"log"
	"sync"
)

// Job is one unit of background work. Handlers are retried at-least-once and
// must be idempotent.
type Job interface {
	Name() string
	Run() error
}

// Queue is an in-process worker pool with bounded redelivery. Jobs that keep
// failing are handed to OnFailure instead of being retried forever. Retries
// happen inside the worker that owns the job, never by re-sending through the
// channel: the channel closes on shutdown and must only ever carry fresh work.
type Queue struct {
	jobs       chan Job
	wg         sync.WaitGroup
	maxRetries int

	// OnFailure is invoked once per job when retries are exhausted
	OnFailure func(job Job, err error)
}

func NewQueue(workers, buffer int) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		jobs:       make(chan Job, buffer),
		maxRetries: 3,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

func (q *Queue) Enqueue(job Job) {
	q.jobs <- job
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(id, job)
	}
}

func (q *Queue) process(id int, job Job) {
	var err error
	for attempt := 1; attempt <= q.maxRetries; attempt++ {
		err = job.Run()
		if err == nil {
			return
		}
		log.Printf("[QUEUE] worker %d: %s failed (attempt %d/%d): %v",
			id, job.Name(), attempt, q.maxRetries, err)
	}
	if q.OnFailure != nil {
		q.OnFailure(job, err)
	}
}

// Close stops accepting work and waits for in-flight jobs, including their
// remaining retries, to finish
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}
