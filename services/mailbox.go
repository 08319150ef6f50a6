package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MailboxService polls a user's IMAP mailbox and feeds matching attachments
// into the extraction pipeline as drafts. Marking a message seen is the
// de-duplication boundary and is best-effort: a crash between saving an
// attachment and setting the flag can produce a duplicate attachment on the
// next poll. Accepted tradeoff.
type MailboxService struct {
	db       *gorm.DB
	queue    *Queue
	extract  *ExtractionService
	notifier *Notifier
}

func NewMailboxService(db *gorm.DB, queue *Queue, extract *ExtractionService, notifier *Notifier) *MailboxService {
	return &MailboxService{db: db, queue: queue, extract: extract, notifier: notifier}
}

func (s *MailboxService) PollUserID(userID uuid.UUID) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	return s.PollUser(&user)
}

func (s *MailboxService) PollUser(user *models.User) error {
	if user.ImapHost == "" || user.ImapUsername == "" {
		return errors.New("IMAP settings are not configured")
	}

	c, err := s.connect(user)
	if err != nil {
		return err
	}
	defer c.Logout()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	processed := new(imap.SeqSet)
	imported := 0
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		if !subjectMatches(msg.Envelope.Subject, user.ImapSubjectFilter) {
			continue
		}

		body := msg.GetBody(section)
		if body == nil {
			continue
		}

		count, err := s.ingestMessage(user, body)
		if err != nil {
			log.Printf("[MAILBOX] user %s: message %d: %v", user.ID, msg.SeqNum, err)
			continue
		}
		imported += count
		processed.AddNum(msg.SeqNum)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("IMAP fetch failed: %w", err)
	}

	if !processed.Empty() {
		flags := []interface{}{imap.SeenFlag}
		if err := c.Store(processed, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
			log.Printf("[MAILBOX] user %s: could not mark messages seen: %v", user.ID, err)
		}
	}

	if imported > 0 {
		log.Printf("[MAILBOX] user %s: imported %d attachment(s)", user.ID, imported)
		s.notifier.IngestionDigest(user, imported)
	}
	return nil
}

// TestConnection verifies the user's IMAP settings without touching any
// message state
func (s *MailboxService) TestConnection(user *models.User) error {
	if user.ImapHost == "" || user.ImapUsername == "" {
		return errors.New("IMAP settings are not configured")
	}
	c, err := s.connect(user)
	if err != nil {
		return err
	}
	defer c.Logout()
	return nil
}

func (s *MailboxService) connect(user *models.User) (*client.Client, error) {
	port := user.ImapPort
	if port == 0 {
		port = 993
	}
	addr := fmt.Sprintf("%s:%d", user.ImapHost, port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("IMAP connect failed: %w", err)
	}
	if err := c.Login(user.ImapUsername, user.ImapPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP select failed: %w", err)
	}
	return c, nil
}

// subjectMatches applies the user's case-insensitive subject filter,
// defaulting to "invoice" when none is configured
func subjectMatches(subject, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		filter = "invoice"
	}
	return strings.Contains(strings.ToLower(subject), filter)
}

// ingestMessage walks the MIME parts of one message and saves every
// processable attachment as a draft, enqueueing extraction for each
func (s *MailboxService) ingestMessage(user *models.User, body io.Reader) (int, error) {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return 0, fmt.Errorf("parse message: %w", err)
	}

	imported := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read message part: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, _ := header.Filename()
		if filename == "" || !AllowedAttachment(filename) {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return imported, fmt.Errorf("read attachment %s: %w", filename, err)
		}

		path, err := SaveInvoiceFile(user.ID, filename, data, true)
		if err != nil {
			return imported, fmt.Errorf("store attachment %s: %w", filename, err)
		}

		attachment := models.Attachment{
			ID:               uuid.New(),
			UserID:           user.ID,
			StoragePath:      path,
			MimeType:         DetectMimeType(filename),
			SizeBytes:        int64(len(data)),
			OriginalFilename: filename,
			Source:           "email",
			Status:           "uploaded",
			IsDraft:          true,
		}
		if err := s.db.Create(&attachment).Error; err != nil {
			return imported, fmt.Errorf("save attachment row: %w", err)
		}

		s.queue.Enqueue(ExtractionJob{Service: s.extract, AttachmentID: attachment.ID})
		imported++
	}
	return imported, nil
}
