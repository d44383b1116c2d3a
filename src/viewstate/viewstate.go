// Package viewstate models the lifecycle of a fetch-driven view.
package viewstate

import (
	"fmt"

	"git.automatex.dev/stem/stemweb/src/oops"
)

type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is Idle, Loading, Loaded with a value, or Errored with a message.
// The zero value is Idle. Fields are unexported so no other combination can
// be built.
type State[T any] struct {
	phase   Phase
	value   T
	message string
}

func (s State[T]) Phase() Phase {
	return s.phase
}

func (s State[T]) IsLoading() bool {
	return s.phase == Loading
}

// Value returns the loaded value, and false in any other phase.
func (s State[T]) Value() (T, bool) {
	return s.value, s.phase == Loaded
}

// Message returns the error message, and false in any other phase.
func (s State[T]) Message() (string, bool) {
	return s.message, s.phase == Errored
}

// Begin starts a fresh load from any phase, discarding the previous result.
func (s *State[T]) Begin() {
	*s = State[T]{phase: Loading}
}

func (s *State[T]) Succeed(v T) {
	s.mustBeLoading("Succeed")
	*s = State[T]{phase: Loaded, value: v}
}

func (s *State[T]) Fail(message string) {
	s.mustBeLoading("Fail")
	*s = State[T]{phase: Errored, message: message}
}

func (s *State[T]) mustBeLoading(op string) {
	if s.phase != Loading {
		panic(oops.New(nil, "viewstate: %s called in phase %s", op, s.phase))
	}
}
