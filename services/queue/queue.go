package queue

import (
	"github.com/google/uuid"
)

// EmailJob describes one templated email to be delivered by whichever
// consumer drains the outbound queue. Enqueueing carries no delivery
// guarantee.
type EmailJob struct {
	ID       string         `json:"id"`
	Template string         `json:"template"`
	To       []string       `json:"to"`
	FromName string         `json:"from_name,omitempty"`
	Subject  string         `json:"subject"`
	Context  map[string]any `json:"context"`
}

func NewEmailJob(template string, to []string, fromName, subject string, context map[string]any) EmailJob {
	return EmailJob{
		ID:       uuid.NewString(),
		Template: template,
		To:       to,
		FromName: fromName,
		Subject:  subject,
		Context:  context,
	}
}

// Enqueuer is the fire-and-forget hand-off used by notification code.
// A nil error means the job was accepted, not that it was delivered.
type Enqueuer interface {
	Enqueue(job EmailJob) error
}
