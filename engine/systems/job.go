package systems

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

type queuedJob struct {
	ctx  context.Context
	task metadata.JobTask
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan queuedJob
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, core.ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, core.ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan queuedJob, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job queuedJob) {
	jt := job.task
	defer func() {
		// Call the completion callback if set
		if jt.OnCompletionCallback != nil {
			jt.OnCompletionCallback()
		}
	}()

	// Jobs whose context ended while queued are failed without running.
	err := job.ctx.Err()
	if err == nil {
		err = js.invoke(job)
	}
	if err != nil {
		core.LogDebug("job '%s' failed: %s", jt.Name, err)
		if jt.OnFailure != nil {
			jt.OnFailure(err)
		}
		return
	}
	if jt.OnComplete != nil {
		jt.OnComplete()
	}
}

// invoke turns a panicking job into a failed one so a worker never dies.
func (js *JobSystem) invoke(job queuedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job '%s' panicked: %v", job.task.Name, r)
		}
	}()
	return job.task.OnStart(job.ctx)
}

/**
 * @brief Shuts the job system down. Queued jobs are still run.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Submits the provided job to be queued for execution.
 * Blocks while the queue is full, until ctx is done.
 * @param info The description of the job to be executed.
 */
func (js *JobSystem) Submit(ctx context.Context, jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job '%s' has no start function", jt.Name)
	}
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return core.ErrJobSystemClosed
	}
	select {
	case js.jobQueue <- queuedJob{ctx: ctx, task: jt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
