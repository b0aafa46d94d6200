package hubspot

import (
	"fmt"
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// HubSpot contact property names.
const (
	PropWhatsAppConsent       = "hs_whatsapp_consent"
	PropWhatsAppConsentStatus = "hs_whatsapp_consent_status"
	PropWhatsAppConsentDate   = "hs_whatsapp_consent_date"
	PropWhatsAppPhone         = "hs_whatsapp_phone_number"
	PropLifecycleStage        = "lifecyclestage"
)

// properties maps a field change to the HubSpot properties it writes.
func properties(f field.Field, v field.Value, now time.Time) (map[string]string, error) {
	switch f {
	case field.WhatsAppConsent:
		return map[string]string{PropWhatsAppConsent: v.String()}, nil
	case field.WhatsAppConsentStatus:
		return map[string]string{
			PropWhatsAppConsentStatus: v.String(),
			PropWhatsAppConsentDate:   now.UTC().Format(time.RFC3339),
		}, nil
	case field.LifecycleStage:
		return map[string]string{PropLifecycleStage: v.String()}, nil
	}
	return nil, fmt.Errorf("field %q has no hubspot property", f)
}
