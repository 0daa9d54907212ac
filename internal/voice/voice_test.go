package voice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalang/core/internal/synth"
)

func TestRenderSynthProducesExpectedLength(t *testing.T) {
	def := synth.Default()
	note := Note{FrequencyHz: 440, GateSeconds: 0.1, SampleRate: 8000, Effects: DefaultEffectParams()}
	buf := RenderSynth(def, note)
	expected := int((0.1 + def.Envelope.ReleaseSeconds) * 8000)
	require.Len(t, buf, expected)
}

func TestRenderSynthIsSilentWithZeroGate(t *testing.T) {
	def := synth.Default()
	def.Envelope.ReleaseSeconds = 0
	note := Note{FrequencyHz: 440, GateSeconds: 0, SampleRate: 8000, Effects: DefaultEffectParams()}
	buf := RenderSynth(def, note)
	assert.Empty(t, buf)
}

func TestPluckPresetAppliesAutoBandpassWhenFilterUnset(t *testing.T) {
	var def synth.SynthDef
	synth.ApplyPreset(&def, synth.Pluck)
	require.Equal(t, synth.NoFilter, def.Filter.Kind, "preset itself leaves Filter unset")

	note := Note{FrequencyHz: 220, GateSeconds: 0.2, SampleRate: 22050, Effects: DefaultEffectParams()}
	rendered := RenderSynth(def, note)

	totalSeconds := note.GateSeconds + def.Envelope.ReleaseSeconds
	unfiltered := make([]float32, len(rendered))
	for i := range unfiltered {
		t := float64(i) / float64(note.SampleRate)
		pitchRatio := 1 - t/totalSeconds*(1-def.PitchEndRatio)
		unfiltered[i] = float32(synth.Oscillate(def.Waveform, 220*pitchRatio*t) * def.Envelope.AmplitudeAt(t, note.GateSeconds))
	}
	unfiltered = ApplyEffects(unfiltered, note.SampleRate, note.Effects)

	assert.NotEqual(t, unfiltered, rendered)
}

func TestPluckPresetRespectsExplicitFilter(t *testing.T) {
	var def synth.SynthDef
	synth.ApplyPreset(&def, synth.Pluck)
	def.Filter = synth.Filter{Kind: synth.Lowpass, Cutoff: 500, Resonance: 1}

	note := Note{FrequencyHz: 220, GateSeconds: 0.2, SampleRate: 22050, Effects: DefaultEffectParams()}
	withLowpass := RenderSynth(def, note)

	def.Filter = synth.Filter{}
	withAutoBandpass := RenderSynth(def, note)

	assert.NotEqual(t, withLowpass, withAutoBandpass)
}

func TestApplyDriveSaturates(t *testing.T) {
	buf := []float32{0.9, -0.9}
	applyDrive(buf, 1.0)
	for _, s := range buf {
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

func TestApplyFadesZeroesEndpoints(t *testing.T) {
	buf := make([]float32, 100)
	for i := range buf {
		buf[i] = 1.0
	}
	applyFades(buf, 100, 0.1, 0.1)
	assert.Equal(t, float32(0), buf[0])
	assert.Equal(t, float32(0), buf[len(buf)-1])
}

func TestFlangerPreservesLength(t *testing.T) {
	buf := make([]float32, 1000)
	for i := range buf {
		buf[i] = float32(math.Sin(float64(i) * 0.1))
	}
	f := NewFlanger(0.7, 0.5, 0.5, 0.5)
	out := f.Process(buf, 44100)
	assert.Len(t, out, len(buf))
}

func TestReverbPreservesLength(t *testing.T) {
	buf := make([]float32, 2000)
	r := NewReverb(0.5, 0.5, 0.5, 0.3)
	out := r.Process(buf, 44100)
	assert.Len(t, out, len(buf))
}

func TestCompressorClampsAboveThreshold(t *testing.T) {
	buf := []float32{0.99, -0.99}
	applyCompressor(buf, 0.9)
	for _, s := range buf {
		assert.Less(t, math.Abs(float64(s)), 0.99)
	}
}
