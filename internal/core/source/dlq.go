package source

import (
	"time"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// DLQAttributes is the exact, ordered six-field schema every DLQ stream
// must declare (spec §6): "DLQ streams MUST declare these six attributes,
// exactly, in any order; extras or missing fields are a validation error."
// The order here is canonical for BuildDLQEvent's output, not a constraint
// on how a CREATE STREAM declares them — ValidateDLQSchema checks by name
// and type, not position.
var DLQAttributes = []event.Attribute{
	{Name: "originalEvent", Type: event.TypeString},
	{Name: "errorMessage", Type: event.TypeString},
	{Name: "errorType", Type: event.TypeString},
	{Name: "timestamp", Type: event.TypeLong},
	{Name: "attemptCount", Type: event.TypeInt},
	{Name: "streamName", Type: event.TypeString},
}

// errorTypeOf resolves the DLQ errorType field from an error: an *errs.Error
// reports its taxonomy Kind, anything else is "other" (spec §7 taxonomy).
func errorTypeOf(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return string(e.Kind)
	}
	return string(errs.Other)
}

// BuildDLQEvent constructs the fixed six-field DLQ record (spec §6, P7):
// originalPayload is expected to already be the JSON serialization of the
// record that failed (see MarshalEventJSON for the Event-shaped case).
func BuildDLQEvent(originalPayload []byte, cause error, attemptCount int, streamName string) *event.Event {
	ts := nowMillis()
	return event.New(ts, []event.AttributeValue{
		event.Str(string(originalPayload)),
		event.Str(cause.Error()),
		event.Str(errorTypeOf(cause)),
		event.Long(ts),
		event.Int(int32(attemptCount)),
		event.Str(streamName),
	})
}

// ValidateDLQSchema implements the parse-time DLQ schema check (spec §7
// phase 1): a stream named as an error.dlq.stream target must declare
// exactly DLQAttributes, by name and type, in any order.
func ValidateDLQSchema(attrs []event.Attribute) error {
	if len(attrs) != len(DLQAttributes) {
		return errs.New(errs.ValidationFailed, "DLQ stream must declare exactly 6 attributes")
	}
	want := make(map[string]event.AttributeType, len(DLQAttributes))
	for _, a := range DLQAttributes {
		want[a.Name] = a.Type
	}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		wantType, ok := want[a.Name]
		if !ok {
			return errs.New(errs.ValidationFailed, "DLQ stream has unexpected attribute: "+a.Name)
		}
		if wantType != a.Type {
			return errs.New(errs.ValidationFailed, "DLQ stream attribute "+a.Name+" has the wrong type")
		}
		seen[a.Name] = true
	}
	for _, a := range DLQAttributes {
		if !seen[a.Name] {
			return errs.New(errs.ValidationFailed, "DLQ stream is missing attribute: "+a.Name)
		}
	}
	return nil
}
