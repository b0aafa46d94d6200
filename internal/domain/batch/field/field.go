package field

import (
	"sort"
	"strings"

	"github.com/westmoney/batchsync/internal/domain"
)

// Field is a logical contact attribute that batches are allowed to change.
type Field string

// Permitted fields.
const (
	WhatsAppConsent       Field = "whatsapp_consent"
	WhatsAppConsentStatus Field = "whatsapp_consent_status"
	LifecycleStage        Field = "lifecycle_stage"
)

// Value is a candidate value for a Field.
type Value string

// WhatsApp consent values used by the dashboard bulk updater.
const (
	ConsentGranted Value = "granted"
	ConsentRevoked Value = "revoked"
	ConsentPending Value = "pending"
)

// HubSpot WhatsApp consent status values.
const (
	StatusOptedIn         Value = "opted_in"
	StatusOptedOut        Value = "opted_out"
	StatusNotSet          Value = "not_set"
	StatusPending         Value = "pending"
	StatusImplicitConsent Value = "implicit_consent"
)

var allowed = map[Field][]Value{
	WhatsAppConsent: {ConsentGranted, ConsentRevoked, ConsentPending},
	WhatsAppConsentStatus: {
		StatusOptedIn, StatusOptedOut, StatusNotSet, StatusPending, StatusImplicitConsent,
	},
	LifecycleStage: {
		"subscriber", "lead", "marketingqualifiedlead", "salesqualifiedlead",
		"opportunity", "customer", "evangelist", "other",
	},
}

// Parse validates a field name.
func Parse(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if f == "" {
		return "", domain.NewValidationError("field", "is required")
	}
	if _, ok := allowed[f]; !ok {
		return "", domain.NewValidationError("field", "unknown field %q", name)
	}
	return f, nil
}

// ParseValue validates v against the allowed set of f.
func ParseValue(f Field, v string) (Value, error) {
	vals, ok := allowed[f]
	if !ok {
		return "", domain.NewValidationError("field", "unknown field %q", f)
	}
	val := Value(strings.TrimSpace(v))
	for _, a := range vals {
		if a == val {
			return val, nil
		}
	}
	return "", domain.NewValidationError("value",
		"%q is not allowed for %s (allowed: %s)", v, f, joinValues(vals))
}

// Valid reports whether f is a permitted field.
func (f Field) Valid() bool {
	_, ok := allowed[f]
	return ok
}

// Allows reports whether v is in the allowed set of f.
func (f Field) Allows(v Value) bool {
	for _, a := range allowed[f] {
		if a == v {
			return true
		}
	}
	return false
}

// Values returns a copy of the allowed values of f.
func (f Field) Values() []Value {
	vals := allowed[f]
	out := make([]Value, len(vals))
	copy(out, vals)
	return out
}

func (f Field) String() string { return string(f) }

func (v Value) String() string { return string(v) }

// All returns every permitted field, sorted by name.
func All() []Field {
	out := make([]Field, 0, len(allowed))
	for f := range allowed {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
