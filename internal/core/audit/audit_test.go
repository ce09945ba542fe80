package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventflux-io/engine/internal/core/event"
)

func TestRedactEventBlanksSensitiveColumns(t *testing.T) {
	r := NewRedactor(true, []string{"password"})
	e := event.New(1, []event.AttributeValue{event.Str("alice"), event.Str("hunter2")})

	redacted := r.RedactEvent(e, []string{"user", "password"})

	assert.Equal(t, "alice", redacted.Data[0].AsString())
	assert.Equal(t, RedactionText, redacted.Data[1].AsString())
	// original must be untouched
	assert.Equal(t, "hunter2", e.Data[1].AsString())
}

func TestRedactEventDisabledIsNoOp(t *testing.T) {
	r := NewRedactor(false, []string{"password"})
	e := event.New(1, []event.AttributeValue{event.Str("hunter2")})

	assert.Same(t, e, r.RedactEvent(e, []string{"password"}))
}

func TestIsSensitiveCaseInsensitive(t *testing.T) {
	r := NewRedactor(true, []string{"SSN"})
	assert.True(t, r.IsSensitive("ssn"))
	assert.False(t, r.IsSensitive("name"))
}
