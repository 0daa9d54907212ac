package specialvars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTimeDerivesBeatAndBar(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	c.UpdateTime(1.0)
	assert.Equal(t, 2.0, c.CurrentBeat)
	assert.Equal(t, 0.5, c.CurrentBar)
}

func TestUpdateBPMRecomputesDuration(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	c.UpdateBPM(60)
	assert.Equal(t, 1.0, c.BeatDuration)
}

func TestResolveKnownVars(t *testing.T) {
	c := New(140, 48000, 2, SeedDisabled, 0)
	v, err := c.Resolve("$bpm")
	require.NoError(t, err)
	assert.Equal(t, 140.0, v.Number)

	v, err = c.Resolve("$sampleRate")
	require.NoError(t, err)
	assert.Equal(t, 48000.0, v.Number)
}

func TestResolveDisabledRandomIsZero(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	v, err := c.Resolve("$random")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Number)
}

func TestBeatCrossingFiresOnceAtStartThenOnEachIntegerBeat(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0) // beatDuration = 0.5s, bar = 4 beats
	c.UpdateTime(0)
	beat, beatCrossed, bar, barCrossed := c.BeatCrossing()
	assert.Equal(t, 0, beat)
	assert.True(t, beatCrossed)
	assert.Equal(t, 0, bar)
	assert.True(t, barCrossed)

	// still within beat 0: no repeat crossing.
	c.UpdateTime(0.25)
	_, beatCrossed, _, barCrossed = c.BeatCrossing()
	assert.False(t, beatCrossed)
	assert.False(t, barCrossed)

	// crosses into beat 1, still bar 0.
	c.UpdateTime(0.5)
	beat, beatCrossed, bar, barCrossed = c.BeatCrossing()
	assert.Equal(t, 1, beat)
	assert.True(t, beatCrossed)
	assert.Equal(t, 0, bar)
	assert.False(t, barCrossed)

	// crosses into beat 4 / bar 1.
	c.UpdateTime(2.0)
	beat, beatCrossed, bar, barCrossed = c.BeatCrossing()
	assert.Equal(t, 4, beat)
	assert.True(t, beatCrossed)
	assert.Equal(t, 1, bar)
	assert.True(t, barCrossed)
}

func TestResolveCurveEvaluatesAtCurrentPosition(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	c.TotalDuration = 10
	c.UpdateTime(5) // halfway through, Position == 0.5

	v, err := c.Resolve("$curve.in")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v.Number, 1e-9) // EaseIn(0.5) == 0.5*0.5

	v, err = c.Resolve("$ease.bezier(0,0,1,1)")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v.Number, 1e-6) // a linear bezier is the identity
}

func TestResolveUnknownCurveNameErrors(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	_, err := c.Resolve("$curve.nonexistent")
	assert.Error(t, err)
}

func TestResolveFixedSeedIsDeterministic(t *testing.T) {
	a := New(120, 44100, 2, 7, 7)
	b := New(120, 44100, 2, 7, 7)
	va, _ := a.Resolve("$random")
	vb, _ := b.Resolve("$random")
	assert.Equal(t, va.Number, vb.Number)
}

func TestRandomRangeParsing(t *testing.T) {
	c := New(120, 44100, 2, 3, 3)
	v, err := c.Resolve("$random.range(20,80)")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.Number, 20.0)
	assert.LessOrEqual(t, v.Number, 80.0)
}

func TestResolveUnknownVar(t *testing.T) {
	c := New(120, 44100, 2, SeedDisabled, 0)
	_, err := c.Resolve("$bogus")
	assert.Error(t, err)
}

func TestIsSpecialVar(t *testing.T) {
	assert.True(t, IsSpecialVar("$beat"))
	assert.False(t, IsSpecialVar("beat"))
}
