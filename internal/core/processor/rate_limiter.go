package processor

import (
	"github.com/eventflux-io/engine/internal/core/event"
	"golang.org/x/time/rate"
)

// OutputRateLimiter throttles a processor chain's output, shedding events
// that exceed the configured rate rather than blocking the publishing
// thread — output rate limiting is a downstream concern distinct from the
// async-junction backpressure of spec §5, which instead blocks or drops at
// the junction boundary.
type OutputRateLimiter struct {
	BaseProcessor
	limiter *rate.Limiter
}

// NewOutputRateLimiter allows up to eventsPerSec sustained, with burst as
// the instantaneous allowance.
func NewOutputRateLimiter(eventsPerSec float64, burst int) *OutputRateLimiter {
	return &OutputRateLimiter{limiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst)}
}

func (r *OutputRateLimiter) Process(chunk *event.StreamEvent) {
	var out *event.StreamEvent
	for cur := chunk; cur != nil; {
		next := cur.Next
		cur.Next = nil
		if r.limiter.Allow() {
			out = appendChunk(out, cur)
		}
		cur = next
	}
	r.Forward(out)
}

func (r *OutputRateLimiter) IsStateful() bool               { return false }
func (r *OutputRateLimiter) ProcessingMode() ProcessingMode { return ModeDefault }
func (r *OutputRateLimiter) Clone() Processor {
	return NewOutputRateLimiter(float64(r.limiter.Limit()), r.limiter.Burst())
}
