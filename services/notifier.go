package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/NickArm/Invoice-System-sub000/models"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier sends optional SMS/WhatsApp alerts about background pipeline
// events. Delivery failures are logged, never fatal.
type Notifier struct {
	client *twilio.RestClient
}

func NewNotifier() *Notifier {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if accountSid == "" || authToken == "" {
		return &Notifier{}
	}

	return &Notifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

// ExtractionFailed alerts the owner that a document could not be processed
func (n *Notifier) ExtractionFailed(user *models.User, filename string) {
	n.send(user, fmt.Sprintf("Invoice extraction failed for \"%s\". Open the app to review the attachment.", filename))
}

// IngestionDigest summarizes an email import run
func (n *Notifier) IngestionDigest(user *models.User, imported int) {
	n.send(user, fmt.Sprintf("%d emailed invoice(s) were imported as drafts and are awaiting review.", imported))
}

func (n *Notifier) send(user *models.User, message string) {
	if n == nil || n.client == nil {
		return
	}
	if user == nil || !user.AlertsEnabled || user.NotifyPhone == "" {
		return
	}

	// WhatsApp for E.164 numbers, plain SMS otherwise
	channel := "sms"
	to := user.NotifyPhone
	if strings.HasPrefix(user.NotifyPhone, "+") {
		to = "whatsapp:" + user.NotifyPhone
		channel = "whatsapp"
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(message)
	if channel == "whatsapp" {
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("[NOTIFY] failed to send alert to %s: %v", user.NotifyPhone, err)
		return
	}
	if resp.Sid != nil {
		log.Printf("[NOTIFY] alert sent to %s, SID: %s", user.NotifyPhone, *resp.Sid)
	}
}
