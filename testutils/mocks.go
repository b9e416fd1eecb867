package testutils

import (
	"sync"

	"github.com/harborchat/harborchat/services/queue"
)

// RecordingEnqueuer captures enqueued email jobs for assertions.
type RecordingEnqueuer struct {
	mu   sync.Mutex
	Jobs []queue.EmailJob
	Err  error
}

func (r *RecordingEnqueuer) Enqueue(job queue.EmailJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Jobs = append(r.Jobs, job)
	return nil
}

func (r *RecordingEnqueuer) Enqueued() []queue.EmailJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EmailJob, len(r.Jobs))
	copy(out, r.Jobs)
	return out
}
