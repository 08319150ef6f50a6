package services

import (
	"fmt"

	"github.com/google/uuid"
)

// ExtractionJob processes one attachment through the extraction pipeline.
// Re-delivery is safe: extraction overwrites status and data in place.
type ExtractionJob struct {
	Service      *ExtractionService
	AttachmentID uuid.UUID
}

func (j ExtractionJob) Name() string {
	return fmt.Sprintf("extract attachment %s", j.AttachmentID)
}

func (j ExtractionJob) Run() error {
	return j.Service.Extract(j.AttachmentID)
}

// MailboxJob polls one user's mailbox for emailed invoices
type MailboxJob struct {
	Service *MailboxService
	UserID  uuid.UUID
}

func (j MailboxJob) Name() string {
	return fmt.Sprintf("poll mailbox for user %s", j.UserID)
}

func (j MailboxJob) Run() error {
	return j.Service.PollUserID(j.UserID)
}
