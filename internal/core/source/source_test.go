package source

import (
	"context"
	"testing"
	"time"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropStrategySwallowsError(t *testing.T) {
	ctx := NewSourceErrorContext("In", Config{Strategy: Drop}, nil)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		return errs.New(errs.MappingFailed, "bad record")
	})
	assert.NoError(t, err)
}

func TestFailStrategyPropagatesError(t *testing.T) {
	ctx := NewSourceErrorContext("In", Config{Strategy: Fail}, nil)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		return errs.New(errs.MappingFailed, "bad record")
	})
	assert.Error(t, err)
}

func TestRetryStrategyRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	cfg := Config{Strategy: Retry, Retry: RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Backoff: 2}}
	ctx := NewSourceErrorContext("In", cfg, nil)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ConnectionUnavailable, "transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStrategyShortCircuitsNonRetriableError(t *testing.T) {
	attempts := 0
	cfg := Config{Strategy: Retry, Retry: RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Backoff: 2}}
	ctx := NewSourceErrorContext("In", cfg, nil)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		attempts++
		return errs.New(errs.MappingFailed, "bad shape")
	})
	assert.NoError(t, err) // non-retriable -> disposed as a drop, not propagated
	assert.Equal(t, 1, attempts)
}

type recordingDLQ struct {
	published []*event.Event
	failNext  bool
}

func (d *recordingDLQ) Publish(e *event.Event) error {
	if d.failNext {
		return errs.New(errs.SendError, "dlq unavailable")
	}
	d.published = append(d.published, e)
	return nil
}

func TestDLQStrategyPublishesSixFieldRecord(t *testing.T) {
	dlq := &recordingDLQ{}
	cfg := Config{Strategy: DLQ, DLQStream: "Errors"}
	ctx := NewSourceErrorContext("In", cfg, dlq)
	err := ctx.Attempt(context.Background(), []byte(`{"v":1}`), func() error {
		return errs.New(errs.MappingFailed, "bad record")
	})
	require.NoError(t, err)
	require.Len(t, dlq.published, 1)
	rec := dlq.published[0]
	require.Len(t, rec.Data, 6)
	assert.Equal(t, `{"v":1}`, rec.Data[0].AsString())
	assert.Equal(t, "bad record", rec.Data[1].AsString())
	assert.Equal(t, string(errs.MappingFailed), rec.Data[2].AsString())
	assert.Equal(t, int32(1), rec.Data[4].AsInt())
	assert.Equal(t, "In", rec.Data[5].AsString())
}

func TestDLQDeliveryFailureFallsBackToLog(t *testing.T) {
	dlq := &recordingDLQ{failNext: true}
	cfg := Config{Strategy: DLQ, DLQFallback: FallbackLog}
	ctx := NewSourceErrorContext("In", cfg, dlq)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		return errs.New(errs.MappingFailed, "bad record")
	})
	assert.NoError(t, err)
}

func TestDLQDeliveryFailureCanFallBackToFail(t *testing.T) {
	dlq := &recordingDLQ{failNext: true}
	cfg := Config{Strategy: DLQ, DLQFallback: FallbackFail}
	ctx := NewSourceErrorContext("In", cfg, dlq)
	err := ctx.Attempt(context.Background(), []byte("{}"), func() error {
		return errs.New(errs.MappingFailed, "bad record")
	})
	assert.Error(t, err)
}

func TestValidateDLQSchemaAcceptsExactSixFields(t *testing.T) {
	assert.NoError(t, ValidateDLQSchema(DLQAttributes))
}

func TestValidateDLQSchemaRejectsMissingField(t *testing.T) {
	attrs := DLQAttributes[:5]
	assert.Error(t, ValidateDLQSchema(attrs))
}

func TestValidateDLQSchemaRejectsWrongType(t *testing.T) {
	attrs := append([]event.Attribute{}, DLQAttributes...)
	attrs[3] = event.Attribute{Name: "timestamp", Type: event.TypeString}
	assert.Error(t, ValidateDLQSchema(attrs))
}

func TestValidateDLQSchemaRejectsExtraField(t *testing.T) {
	attrs := append([]event.Attribute{}, DLQAttributes...)
	attrs = append(attrs, event.Attribute{Name: "extra", Type: event.TypeString})
	assert.Error(t, ValidateDLQSchema(attrs))
}
