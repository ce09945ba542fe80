package pattern

import "sync/atomic"

// SharedState coordinates the two branches of an AND/OR combinator without
// the branches taking a lock on each other (spec §9: "AND/OR combinators
// must not deadlock when both branches fire on the same tick; prefer an
// atomic flag over mutual locking"). Each branch, on matching, calls MarkHit
// and inspects whether the other branch already hit this tick.
type SharedState struct {
	leftHit  atomic.Bool
	rightHit atomic.Bool
}

func NewSharedState() *SharedState { return &SharedState{} }

// MarkLeft records the left branch's match for the current tick and reports
// whether the right branch had already matched (i.e. AND is now satisfied).
func (s *SharedState) MarkLeft() (otherAlreadyHit bool) {
	s.leftHit.Store(true)
	return s.rightHit.Load()
}

func (s *SharedState) MarkRight() (otherAlreadyHit bool) {
	s.rightHit.Store(true)
	return s.leftHit.Load()
}

// EitherHit reports whether at least one branch matched — OR's completion
// condition.
func (s *SharedState) EitherHit() bool { return s.leftHit.Load() || s.rightHit.Load() }

// Reset clears both flags for the next tick.
func (s *SharedState) Reset() {
	s.leftHit.Store(false)
	s.rightHit.Store(false)
}
