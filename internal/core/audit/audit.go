// Package audit implements the audit/compliance redaction supplemented
// feature (SPEC_FULL.md §C.3): scrubbing configured attribute names from
// logged event payloads before they reach the structured logger.
//
// Grounded on the teacher's infrastructure/redaction.Redactor, narrowed from
// a generic map/string redactor to one addressed by a stream's attribute
// schema — events carry positional AttributeValue slices, not
// map[string]interface{}, so redaction here is "blank out column i" rather
// than "scan a string for secret-shaped substrings".
package audit

import (
	"encoding/json"
	"strings"

	"github.com/eventflux-io/engine/internal/core/event"
)

// RedactionText is substituted for any attribute configured as sensitive.
const RedactionText = "***REDACTED***"

// Redactor blanks out configured attribute names before an event's values
// are logged (e.g. in DLQ diagnostics or processor trace logging).
type Redactor struct {
	enabled   bool
	sensitive map[string]struct{} // lower-cased attribute names
}

// NewRedactor builds a Redactor over a set of attribute names considered
// sensitive (e.g. declared via a `WITH(audit.redact='password,ssn')`
// property).
func NewRedactor(enabled bool, attributeNames []string) *Redactor {
	r := &Redactor{enabled: enabled, sensitive: make(map[string]struct{}, len(attributeNames))}
	for _, name := range attributeNames {
		r.sensitive[strings.ToLower(name)] = struct{}{}
	}
	return r
}

// IsSensitive reports whether attrName was configured for redaction.
func (r *Redactor) IsSensitive(attrName string) bool {
	if !r.enabled {
		return false
	}
	_, ok := r.sensitive[strings.ToLower(attrName)]
	return ok
}

// RedactEvent returns a copy of e with every sensitive attribute's value
// replaced by RedactionText, leaving e itself untouched (events may be
// shared with other subscribers, spec invariant I1).
func (r *Redactor) RedactEvent(e *event.Event, attrNames []string) *event.Event {
	if !r.enabled || len(r.sensitive) == 0 {
		return e
	}
	out := e.Clone()
	for i, name := range attrNames {
		if i >= len(out.Data) {
			break
		}
		if r.IsSensitive(name) {
			out.Data[i] = event.Str(RedactionText)
		}
	}
	return out
}

// RedactJSON scrubs any top-level object field whose name was configured as
// sensitive, for use on a source record's raw payload before it's embedded
// verbatim in a DLQ event or error log (SPEC_FULL.md §C.3). payload that
// isn't a JSON object (malformed, or a scalar/array record) is returned
// unchanged — redaction only applies where a field name is available to
// match against.
func (r *Redactor) RedactJSON(payload []byte) []byte {
	if !r.enabled || len(r.sensitive) == 0 {
		return payload
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return payload
	}
	redacted := false
	for name := range fields {
		if r.IsSensitive(name) {
			fields[name] = []byte(`"` + RedactionText + `"`)
			redacted = true
		}
	}
	if !redacted {
		return payload
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return payload
	}
	return out
}

// RedactRow is the table-row equivalent of RedactEvent, used when logging
// rows fetched for diagnostics.
func (r *Redactor) RedactRow(row []event.AttributeValue, attrNames []string) []event.AttributeValue {
	if !r.enabled || len(r.sensitive) == 0 {
		return row
	}
	out := make([]event.AttributeValue, len(row))
	copy(out, row)
	for i, name := range attrNames {
		if i >= len(out) {
			break
		}
		if r.IsSensitive(name) {
			out[i] = event.Str(RedactionText)
		}
	}
	return out
}
