package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Name     string    `gorm:"not null"`

	// Company identity, injected into extraction prompts so the model
	// never maps the user's own company into the counterparty fields.
	CompanyName     string
	TaxID           string `gorm:"type:varchar(20)"`
	TaxOffice       string
	Address         string
	City            string
	PostalCode      string
	AccountantEmail string

	// Integration settings
	OpenAIAPIKey          string
	MyDataUserID          string
	MyDataSubscriptionKey string

	ImapHost          string
	ImapPort          int `gorm:"default:993"`
	ImapUsername      string
	ImapPassword      string
	ImapSubjectFilter string `gorm:"default:'invoice'"`
	AutoImportEnabled bool   `gorm:"default:false"`

	NotifyPhone   string
	AlertsEnabled bool `gorm:"default:false"`

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID and hash the password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

// Custom JSONB type for loosely structured extraction output
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j)
	case string:
		return json.Unmarshal([]byte(v), &j)
	case nil:
		*j = nil
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
}
