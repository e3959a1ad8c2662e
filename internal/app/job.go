package app

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// JobContext is the in-process implementation of core.Job: it collects
// shutdown callbacks and fans the shutdown signal out exactly once.
type JobContext struct {
	mu        sync.Mutex
	callbacks []func(reason string)
	done      chan struct{}
	reason    string
	stopped   bool
}

func NewJobContext() *JobContext {
	return &JobContext{done: make(chan struct{})}
}

func (j *JobContext) AddShutdownCallback(fn func(reason string)) {
	j.mu.Lock()
	if !j.stopped {
		j.callbacks = append(j.callbacks, fn)
		j.mu.Unlock()
		return
	}
	reason := j.reason
	j.mu.Unlock()
	fn(reason)
}

// Shutdown signals the job to stop. Callbacks run in reverse registration
// order on a dedicated goroutine, so a callback may wait for the calling
// task itself to unwind. Done is closed after the last callback returns.
// Subsequent calls are no-ops.
func (j *JobContext) Shutdown(reason string) {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	j.reason = reason
	callbacks := j.callbacks
	j.callbacks = nil
	j.mu.Unlock()

	log.Info().Str("module", "app.job").Str("reason", reason).Msg("job shutting down")
	go func() {
		for i := len(callbacks) - 1; i >= 0; i-- {
			func(fn func(string)) {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Str("module", "app.job").Interface("panic", r).Msg("shutdown callback panicked")
					}
				}()
				fn(reason)
			}(callbacks[i])
		}
		close(j.done)
	}()
}

// Done is closed after all shutdown callbacks ran.
func (j *JobContext) Done() <-chan struct{} { return j.done }

// Reason is valid once Done is closed.
func (j *JobContext) Reason() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reason
}
