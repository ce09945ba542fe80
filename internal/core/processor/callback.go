package processor

import "github.com/eventflux-io/engine/internal/core/event"

// EventChunkCallback is invoked by a CallbackProcessor with the chunk head —
// mirrors the teacher's ServiceHandler.ProcessRequest callback shape, here
// terminating a query's processor chain rather than a request route.
type EventChunkCallback func(chunk *event.StreamEvent)

// CallbackProcessor is the terminal stage of every processor chain: it has
// no next_processor and instead hands the chunk to an arbitrary Go callback,
// which is how a StreamJunction publish or a SinkMapper gets invoked (spec
// §4.4: "terminal CallbackProcessor").
type CallbackProcessor struct {
	BaseProcessor
	OnChunk EventChunkCallback
}

func NewCallbackProcessor(fn EventChunkCallback) *CallbackProcessor {
	return &CallbackProcessor{OnChunk: fn}
}

func (c *CallbackProcessor) Process(chunk *event.StreamEvent) {
	if chunk == nil {
		return
	}
	c.OnChunk(chunk)
}

func (c *CallbackProcessor) IsStateful() bool               { return false }
func (c *CallbackProcessor) ProcessingMode() ProcessingMode { return ModeDefault }
func (c *CallbackProcessor) Clone() Processor                { return &CallbackProcessor{OnChunk: c.OnChunk} }
