package mididecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToValueShapesBPMAndNotes(t *testing.T) {
	notes := []NoteEvent{
		{TimeBeats: 0, Note: 60, Velocity: 100, DurationBeats: 1, Channel: 0},
		{TimeBeats: 1, Note: 64, Velocity: 90, DurationBeats: 0.5, Channel: 0},
	}
	v := ToValue(126, notes)

	require.Equal(t, "number", v.Map["bpm"].Kind.String())
	assert.Equal(t, float64(126), v.Map["bpm"].Number)
	assert.Equal(t, "midi", v.Map["type"].String)

	noteArray := v.Map["notes"].Array
	require.Len(t, noteArray, 2)
	assert.Equal(t, float64(60), noteArray[0].Map["note"].Number)
	assert.Equal(t, float64(1), noteArray[0].Map["duration"].Number)
	assert.Equal(t, float64(64), noteArray[1].Map["note"].Number)
}

func TestToValueHandlesEmptyNoteList(t *testing.T) {
	v := ToValue(120, nil)
	assert.Empty(t, v.Map["notes"].Array)
}
