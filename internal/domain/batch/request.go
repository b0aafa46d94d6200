package batch

import (
	"strings"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// DefaultMaxTargets is the default upper bound on targets per request.
const DefaultMaxTargets = 1000

// Request is an immutable field/value change over a deduplicated set of targets.
type Request struct {
	targets []string
	field   field.Field
	value   field.Value
}

// NewRequest validates and creates a Request.
// Targets are trimmed and deduplicated preserving first-seen order.
// maxTargets <= 0 disables the size check.
func NewRequest(targets []string, f field.Field, v field.Value, maxTargets int) (Request, error) {
	if !f.Valid() {
		return Request{}, domain.NewValidationError("field", "unknown field %q", f)
	}
	if !f.Allows(v) {
		return Request{}, domain.NewValidationError("value", "%q is not allowed for %s", v, f)
	}

	seen := make(map[string]struct{}, len(targets))
	ids := make([]string, 0, len(targets))
	for i, raw := range targets {
		id := strings.TrimSpace(raw)
		if id == "" {
			return Request{}, domain.NewValidationError("targets", "target at index %d is empty", i)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return Request{}, domain.NewValidationError("targets", "at least one target is required")
	}
	if maxTargets > 0 && len(ids) > maxTargets {
		return Request{}, domain.NewValidationError("targets",
			"%d targets exceeds the limit of %d", len(ids), maxTargets)
	}

	return Request{targets: ids, field: f, value: v}, nil
}

// Validate checks invariants of an already constructed Request.
// A zero Request is invalid.
func (r Request) Validate() error {
	if len(r.targets) == 0 {
		return domain.NewValidationError("targets", "at least one target is required")
	}
	if !r.field.Allows(r.value) {
		return domain.NewValidationError("value", "%q is not allowed for %s", r.value, r.field)
	}
	return nil
}

// Targets returns a copy of the target IDs.
func (r Request) Targets() []string {
	out := make([]string, len(r.targets))
	copy(out, r.targets)
	return out
}

// Len returns the number of distinct targets.
func (r Request) Len() int { return len(r.targets) }

// Field returns the attribute being changed.
func (r Request) Field() field.Field { return r.field }

// Value returns the new value.
func (r Request) Value() field.Value { return r.value }

// target returns the i-th target without copying.
func (r Request) target(i int) string { return r.targets[i] }
