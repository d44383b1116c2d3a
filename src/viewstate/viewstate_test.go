package viewstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle(t *testing.T) {
	var s State[string]
	assert.Equal(t, Idle, s.Phase())

	s.Begin()
	assert.True(t, s.IsLoading())
	_, ok := s.Value()
	assert.False(t, ok)

	s.Succeed("Calc")
	v, ok := s.Value()
	assert.True(t, ok)
	assert.Equal(t, "Calc", v)
	assert.False(t, s.IsLoading())

	t.Run("fresh trigger replaces terminal state", func(t *testing.T) {
		s.Begin()
		assert.Equal(t, Loading, s.Phase())
		_, ok := s.Value()
		assert.False(t, ok)

		s.Fail("boom")
		msg, ok := s.Message()
		assert.True(t, ok)
		assert.Equal(t, "boom", msg)
		_, ok = s.Value()
		assert.False(t, ok)

		s.Begin()
		_, ok = s.Message()
		assert.False(t, ok)
	})
}

func TestInvalidTransitionsPanic(t *testing.T) {
	var s State[int]
	assert.Panics(t, func() { s.Succeed(1) })
	assert.Panics(t, func() { s.Fail("x") })

	s.Begin()
	s.Succeed(1)
	assert.Panics(t, func() { s.Fail("x") })
	assert.Panics(t, func() { s.Succeed(2) })
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
