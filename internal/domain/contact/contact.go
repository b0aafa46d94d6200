// Package contact holds the typed CRM contact record read from the external system.
package contact

import (
	"strings"
	"time"

	"github.com/westmoney/batchsync/internal/domain"
)

// Contact is an immutable CRM contact with the attributes batches care about.
type Contact struct {
	id             string
	firstName      string
	lastName       string
	email          string
	phone          string
	whatsAppPhone  string
	consentStatus  string
	consentDate    time.Time
	company        string
	lifecycleStage string
}

// Attributes carries the optional contact properties.
type Attributes struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	WhatsAppPhone  string
	ConsentStatus  string
	ConsentDate    time.Time
	Company        string
	LifecycleStage string
}

// New validates and creates a Contact. The ID is required.
func New(id string, a Attributes) (Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Contact{}, domain.NewValidationError("id", "contact id is required")
	}
	return Contact{
		id:             id,
		firstName:      strings.TrimSpace(a.FirstName),
		lastName:       strings.TrimSpace(a.LastName),
		email:          strings.ToLower(strings.TrimSpace(a.Email)),
		phone:          strings.TrimSpace(a.Phone),
		whatsAppPhone:  strings.TrimSpace(a.WhatsAppPhone),
		consentStatus:  strings.TrimSpace(a.ConsentStatus),
		consentDate:    a.ConsentDate,
		company:        strings.TrimSpace(a.Company),
		lifecycleStage: strings.TrimSpace(a.LifecycleStage),
	}, nil
}

func (c Contact) ID() string { return c.id }
func (c Contact) FirstName() string { return c.firstName }
func (c Contact) LastName() string { return c.lastName }
func (c Contact) Email() string { return c.email }
func (c Contact) Phone() string { return c.phone }
func (c Contact) WhatsAppPhone() string { return c.whatsAppPhone }
func (c Contact) ConsentStatus() string { return c.consentStatus }
func (c Contact) ConsentDate() time.Time { return c.consentDate }
func (c Contact) Company() string { return c.company }
func (c Contact) LifecycleStage() string { return c.lifecycleStage }

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.firstName + " " + c.lastName)
}

// IDs extracts the IDs of contacts in order.
func IDs(cs []Contact) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.id
	}
	return ids
}

// NormalizePhone formats a German number as +49XXXXXXXXXX.
// Numbers already carrying a country prefix are only stripped of separators.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "/", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "+") {
		return p
	}
	if strings.HasPrefix(p, "00") {
		return "+" + p[2:]
	}
	return "+49" + strings.TrimLeft(p, "0")
}
