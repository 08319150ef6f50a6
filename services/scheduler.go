package services

import (
	"log"
	"os"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler periodically enqueues mailbox polls for users that enabled
// automatic import
type Scheduler struct {
	db      *gorm.DB
	queue   *Queue
	mailbox *MailboxService
	cron    *cron.Cron
}

func NewScheduler(db *gorm.DB, queue *Queue, mailbox *MailboxService) *Scheduler {
	return &Scheduler{db: db, queue: queue, mailbox: mailbox}
}

func (s *Scheduler) Start() {
	spec := os.Getenv("MAILBOX_POLL_CRON")
	if spec == "" {
		spec = "*/15 * * * *"
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, s.enqueueMailboxPolls); err != nil {
		log.Printf("[SCHEDULER] invalid cron spec %q: %v", spec, err)
		return
	}
	c.Start()
	s.cron = c
	log.Println("Mailbox poll scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) enqueueMailboxPolls() {
	var users []models.User
	if err := s.db.Find(&users, "auto_import_enabled = ? AND is_active = ?", true, true).Error; err != nil {
		log.Printf("[SCHEDULER] failed to fetch users: %v", err)
		return
	}

	for _, user := range users {
		s.queue.Enqueue(MailboxJob{Service: s.mailbox, UserID: user.ID})
	}
	if len(users) > 0 {
		log.Printf("[SCHEDULER] enqueued %d mailbox poll(s)", len(users))
	}
}
