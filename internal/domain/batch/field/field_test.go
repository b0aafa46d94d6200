package field

import (
	"errors"
	"strings"
	"testing"

	"github.com/westmoney/batchsync/internal/domain"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"whatsapp_consent", WhatsAppConsent},
		{"whatsapp_consent_status", WhatsAppConsentStatus},
		{" lifecycle_stage ", LifecycleStage},
	}
	for _, tt := range tests {
		f, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if f != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, f, tt.want)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("email")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("  ")
	if err == nil {
		t.Fatal("expected error for empty field")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error should mention 'required': %v", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		f       Field
		v       string
		wantErr bool
	}{
		{WhatsAppConsent, "granted", false},
		{WhatsAppConsent, "revoked", false},
		{WhatsAppConsent, "pending", false},
		{WhatsAppConsent, "opted_in", true},
		{WhatsAppConsentStatus, "opted_in", false},
		{WhatsAppConsentStatus, "implicit_consent", false},
		{WhatsAppConsentStatus, "granted", true},
		{LifecycleStage, "customer", false},
		{LifecycleStage, "", true},
		{Field("nope"), "granted", true},
	}
	for _, tt := range tests {
		_, err := ParseValue(tt.f, tt.v)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseValue(%q, %q) err = %v, wantErr %v", tt.f, tt.v, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ParseValue(%q, %q) error should wrap ErrValidation: %v", tt.f, tt.v, err)
		}
	}
}

func TestParseValue_ListsAllowed(t *testing.T) {
	_, err := ParseValue(WhatsAppConsent, "maybe")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "granted, revoked, pending") {
		t.Errorf("error should list allowed values: %v", err)
	}
}

func TestAllows(t *testing.T) {
	if !WhatsAppConsent.Allows(ConsentGranted) {
		t.Error("granted should be allowed for whatsapp_consent")
	}
	if WhatsAppConsent.Allows(StatusOptedIn) {
		t.Error("opted_in should not be allowed for whatsapp_consent")
	}
	if Field("unknown").Valid() {
		t.Error("unknown field should not be valid")
	}
}

func TestValues_ReturnsCopy(t *testing.T) {
	vals := WhatsAppConsent.Values()
	vals[0] = "tampered"
	if WhatsAppConsent.Values()[0] != ConsentGranted {
		t.Error("Values() must not expose the registry")
	}
}

func TestAll_Sorted(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Errorf("All() not sorted: %v", all)
		}
	}
}
