package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalang/core/internal/langtypes"
)

func TestRegisterAndMatchHandler(t *testing.T) {
	r := New()
	idx := r.Register(Handler{EventName: Beat})
	require.Equal(t, 0, idx)

	matches := r.Emit(Beat, nil, 0.5)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Index)
}

func TestEmitRecordsPayload(t *testing.T) {
	r := New()
	r.Emit("customEvent", map[string]langtypes.Value{"velocity": langtypes.NumberOf(90)}, 1.0)
	require.Len(t, r.Emitted(), 1)
	assert.Equal(t, "customEvent", r.Emitted()[0].EventName)
}

func TestPatternMatchesWildcard(t *testing.T) {
	assert.True(t, patternMatches("note*", "noteOn"))
	assert.True(t, patternMatches("*", "anything"))
	assert.False(t, patternMatches("note*", "beat"))
	assert.True(t, patternMatches("beat", "beat"))
}

func TestPatternMatchesQuestionMark(t *testing.T) {
	assert.True(t, patternMatches("b?at", "beat"))
	assert.False(t, patternMatches("b?at", "boat2"))
}

func TestWildcardHandlerMatchesMultipleEvents(t *testing.T) {
	r := New()
	r.Register(Handler{EventName: "note*"})
	on := r.Emit("noteOn", nil, 0)
	off := r.Emit("noteOff", nil, 0)
	assert.Len(t, on, 1)
	assert.Len(t, off, 1)
}

func TestOnceHandlerFiresExactlyOnce(t *testing.T) {
	r := New()
	r.Register(Handler{EventName: Beat, Once: true})
	matches := r.Emit(Beat, nil, 0)
	require.Len(t, matches, 1)
	assert.True(t, r.ShouldExecute(matches[0], Beat))
	assert.False(t, r.ShouldExecute(matches[0], Beat))
}

func TestOnceTrackingIsPerHandlerIndex(t *testing.T) {
	r := New()
	r.Register(Handler{EventName: Beat, Once: true})
	r.Register(Handler{EventName: Beat, Once: true})
	matches := r.Emit(Beat, nil, 0)
	require.Len(t, matches, 2)
	assert.True(t, r.ShouldExecute(matches[0], Beat))
	assert.True(t, r.ShouldExecute(matches[1], Beat))
}

func TestClearResetsState(t *testing.T) {
	r := New()
	r.Register(Handler{EventName: Beat, Once: true})
	m := r.Emit(Beat, nil, 0)
	r.ShouldExecute(m[0], Beat)
	r.Clear()
	assert.Empty(t, r.Emitted())
	matches := r.Emit(Beat, nil, 0)
	assert.Empty(t, matches, "handlers should also be cleared")
}
