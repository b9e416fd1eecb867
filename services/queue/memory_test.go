package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []EmailJob
	err  error
}

func (r *recordingSender) SendTemplateFrom(fromName, templateName string, to []string, subject string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, EmailJob{
		Template: templateName,
		To:       to,
		FromName: fromName,
		Subject:  subject,
		Context:  data,
	})
	return r.err
}

func (r *recordingSender) jobs() []EmailJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EmailJob, len(r.sent))
	copy(out, r.sent)
	return out
}

func TestNewEmailJob(t *testing.T) {
	job := NewEmailJob("notify_new_login", []string{"user@example.com"}, "Security", "New login", map[string]any{"k": "v"})

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "notify_new_login", job.Template)
	assert.Equal(t, []string{"user@example.com"}, job.To)
	assert.Equal(t, "Security", job.FromName)
}

func TestMemoryQueue_DeliversEnqueuedJobs(t *testing.T) {
	sender := &recordingSender{}
	q := NewMemoryQueue(8, sender, nil)
	q.Start()

	job := NewEmailJob("welcome", []string{"user@example.com"}, "", "Hi", nil)
	require.NoError(t, q.Enqueue(job))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	jobs := sender.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "welcome", jobs[0].Template)
	assert.Equal(t, []string{"user@example.com"}, jobs[0].To)
}

func TestMemoryQueue_FullBufferDropsWithoutBlocking(t *testing.T) {
	sender := &recordingSender{}
	q := NewMemoryQueue(1, sender, nil)
	// Worker not started, so the buffer never drains.

	require.NoError(t, q.Enqueue(NewEmailJob("a", []string{"x@example.com"}, "", "", nil)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Enqueue(NewEmailJob("b", []string{"y@example.com"}, "", "", nil))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}
}

func TestMemoryQueue_DrainsBufferedJobsOnStop(t *testing.T) {
	sender := &recordingSender{}
	q := NewMemoryQueue(8, sender, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(NewEmailJob("batch", []string{"user@example.com"}, "", "", nil)))
	}

	q.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.Len(t, sender.jobs(), 5)
}

func TestMemoryQueue_SenderErrorsAreAbsorbed(t *testing.T) {
	sender := &recordingSender{err: assert.AnError}
	q := NewMemoryQueue(8, sender, nil)
	q.Start()

	require.NoError(t, q.Enqueue(NewEmailJob("failing", []string{"user@example.com"}, "", "", nil)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.Len(t, sender.jobs(), 1)
}
