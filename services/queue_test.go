package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	name     string
	runs     int32
	failures int32 // fail this many runs before succeeding
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	n := atomic.AddInt32(&j.runs, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("transient failure")
	}
	return nil
}

func TestQueueRunsJobs(t *testing.T) {
	q := NewQueue(2, 8)
	job := &countingJob{name: "ok"}
	q.Enqueue(job)
	q.Close()

	if got := atomic.LoadInt32(&job.runs); got != 1 {
		t.Errorf("job ran %d times, want 1", got)
	}
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	q := NewQueue(1, 8)
	job := &countingJob{name: "flaky", failures: 2}
	q.Enqueue(job)
	q.Close()

	if got := atomic.LoadInt32(&job.runs); got != 3 {
		t.Errorf("job ran %d times, want 3 (two failures then success)", got)
	}
}

func TestQueueExhaustedRetriesInvokeOnFailure(t *testing.T) {
	q := NewQueue(1, 8)

	var mu sync.Mutex
	var failed []string
	q.OnFailure = func(job Job, err error) {
		mu.Lock()
		failed = append(failed, job.Name())
		mu.Unlock()
	}

	job := &countingJob{name: "doomed", failures: 100}
	q.Enqueue(job)
	q.Close()

	if got := atomic.LoadInt32(&job.runs); got != 3 {
		t.Errorf("job ran %d times, want 3 (retry cap)", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0] != "doomed" {
		t.Errorf("OnFailure calls %v, want exactly [doomed]", failed)
	}
}

func TestQueueRetriesSurviveShutdown(t *testing.T) {
	q := NewQueue(2, 8)

	var failures int32
	q.OnFailure = func(job Job, err error) {
		atomic.AddInt32(&failures, 1)
	}

	// Enqueue jobs that will still be mid-retry when Close runs. Shutdown
	// must let every job finish its retries, not panic or drop them.
	jobs := make([]*countingJob, 5)
	for i := range jobs {
		jobs[i] = &countingJob{name: "doomed", failures: 100}
		q.Enqueue(jobs[i])
	}
	q.Close()

	for i, job := range jobs {
		if got := atomic.LoadInt32(&job.runs); got != 3 {
			t.Errorf("job %d ran %d times, want 3", i, got)
		}
	}
	if got := atomic.LoadInt32(&failures); got != 5 {
		t.Errorf("OnFailure fired %d times, want 5", got)
	}
}

func TestQueueProcessesConcurrently(t *testing.T) {
	q := NewQueue(4, 16)

	var running, peak int32
	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(4)

	for i := 0; i < 4; i++ {
		q.Enqueue(&funcJob{name: "parallel", fn: func() error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			wg.Done()
			<-block
			atomic.AddInt32(&running, -1)
			return nil
		}})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not run jobs concurrently")
	}
	close(block)
	q.Close()

	if atomic.LoadInt32(&peak) != 4 {
		t.Errorf("peak concurrency %d, want 4", peak)
	}
}

type funcJob struct {
	name string
	fn   func() error
}

func (j *funcJob) Name() string { return j.name }
func (j *funcJob) Run() error   { return j.fn() }
