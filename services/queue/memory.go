package queue

import (
	"context"
	"sync"

	"github.com/harborchat/harborchat/services/logging"
	"go.uber.org/zap"
)

// MailSender is the subset of the mail service the worker needs.
type MailSender interface {
	SendTemplateFrom(fromName, templateName string, to []string, subject string, data map[string]any) error
}

// MemoryQueue is an in-process queue drained by a single worker
// goroutine. When the buffer is full the job is dropped with a warning;
// the enqueue contract promises nothing more.
type MemoryQueue struct {
	jobs   chan EmailJob
	sender MailSender
	logger *logging.Service

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewMemoryQueue(bufferSize int, sender MailSender, logger *logging.Service) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &MemoryQueue{
		jobs:   make(chan EmailJob, bufferSize),
		sender: sender,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(job EmailJob) error {
	select {
	case q.jobs <- job:
		q.logger.Debug("email job enqueued",
			zap.String("job_id", job.ID),
			zap.String("template", job.Template))
		return nil
	default:
		q.logger.Warn("email queue full, dropping job",
			zap.String("job_id", job.ID),
			zap.String("template", job.Template))
		return nil
	}
}

// Start runs the worker until Stop is called. Jobs already buffered at
// shutdown are drained before the worker exits.
func (q *MemoryQueue) Start() {
	go func() {
		defer close(q.done)
		for {
			select {
			case job := <-q.jobs:
				q.deliver(job)
			case <-q.stop:
				for {
					select {
					case job := <-q.jobs:
						q.deliver(job)
					default:
						return
					}
				}
			}
		}
	}()
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.stop)
	})

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) deliver(job EmailJob) {
	if err := q.sender.SendTemplateFrom(job.FromName, job.Template, job.To, job.Subject, job.Context); err != nil {
		q.logger.Error("email job delivery failed",
			zap.Error(err),
			zap.String("job_id", job.ID),
			zap.String("template", job.Template))
		return
	}
	q.logger.Debug("email job delivered", zap.String("job_id", job.ID))
}
