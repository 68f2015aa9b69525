package core

import "sync"

// Task is one unit of work submitted to a Dispatcher.
type Task func() (any, error)

// Outcome is the completed result of a Task.
type Outcome struct {
	Value any
	Err   error
}

// Dispatcher runs tasks on a fixed pool of workers so hashing, I/O, and
// catalog access never run on the caller's path. Submit hands back a
// completion channel; the caller may block on it, select on it, or abandon
// it — an abandoned task still runs to completion.
type Dispatcher struct {
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type job struct {
	task Task
	done chan Outcome
}

// NewDispatcher starts a dispatcher with the given number of workers.
// workers below 1 is treated as 1.
func NewDispatcher(workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{jobs: make(chan job)}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		value, err := j.task()
		j.done <- Outcome{Value: value, Err: err}
	}
}

// Submit queues a task and returns a buffered channel that receives
// exactly one Outcome. After Close, the returned channel immediately
// yields an Outcome with ErrDispatcherClosed.
func (d *Dispatcher) Submit(task Task) <-chan Outcome {
	done := make(chan Outcome, 1)

	// The lock is held across the send so Close cannot close the jobs
	// channel between the check and the send.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		done <- Outcome{Err: ErrDispatcherClosed}
		return done
	}
	d.jobs <- job{task: task, done: done}
	return done
}

// Close stops accepting tasks and waits for in-flight tasks to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.jobs)
	d.wg.Wait()
}
