// Package voice renders a single synthesized note into a PCM buffer
// and applies the fixed per-note effect chain (drive/distortion ->
// chorus/flanger/phaser/vibrato -> delay -> reverb -> compressor ->
// fades/gain); pitch and pan are handled by the caller.
package voice

import (
	"math"

	"github.com/devalang/core/internal/synth"
)

// EffectParams is the resolved, alias-normalized per-note effect
// parameter set (the fixed arrow-call method vocabulary). Defaults
// mirror the original engine's EffectParams::default().
type EffectParams struct {
	Gain     float64
	Pan      float64
	FadeIn   float64
	FadeOut  float64
	Pitch    float64
	Detune   float64 // cents
	Spread   float64
	Drive    float64
	Distort  float64
	Reverb   float64
	Delay    float64
	Chorus   float64
	Flanger  float64
	Phaser   float64
	Vibrato  float64
	Compress float64
}

func DefaultEffectParams() EffectParams {
	return EffectParams{Gain: 1.0, Pan: 0.0, Pitch: 1.0}
}

// Note describes one synthesized voice to render: its frequency, gate
// duration and the resolved effect parameters.
type Note struct {
	FrequencyHz float64
	GateSeconds float64
	SampleRate  int
	Effects     EffectParams
}

// RenderSynth synthesizes def across note.GateSeconds + the envelope's
// release tail, mono, at note.SampleRate, then applies the fixed effect
// chain to the result.
func RenderSynth(def synth.SynthDef, note Note) []float32 {
	totalSeconds := note.GateSeconds + def.Envelope.ReleaseSeconds
	n := int(totalSeconds * float64(note.SampleRate))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)

	freq := note.FrequencyHz
	if def.OctaveShift > 0 {
		freq = freq / math.Pow(2, float64(def.OctaveShift))
	}

	for i := range out {
		t := float64(i) / float64(note.SampleRate)
		phase := freq * t
		sample := synth.Oscillate(def.Waveform, phase)

		if def.Type == synth.Pad && def.Voices > 1 {
			sample = unisonMix(def, freq, t)
		}
		if def.Type == synth.Sub && def.OctaveStack {
			sample = 0.6*sample + 0.4*synth.Oscillate(def.Waveform, note.FrequencyHz*t)
		}
		if def.Type == synth.Pluck && def.PitchEndRatio > 0 && def.PitchEndRatio != 1 {
			progress := t / math.Max(totalSeconds, 1e-9)
			pitchRatio := 1 - progress*(1-def.PitchEndRatio)
			sample = synth.Oscillate(def.Waveform, freq*pitchRatio*t)
		}

		env := def.Envelope.AmplitudeAt(t, note.GateSeconds)
		out[i] = float32(sample * env)
	}

	if def.Type == synth.Sub && def.OctaveShift > 0 {
		for i := range out {
			out[i] *= 1.5
			if out[i] > 1 {
				out[i] = 1
			} else if out[i] < -1 {
				out[i] = -1
			}
		}
	}

	if def.Type == synth.Keys {
		applyClickTransient(out, note.SampleRate, def.ClickAmount)
	}
	if def.Type == synth.Arp {
		applyGate(out, note.SampleRate, def.GateRate, def.GateRatio)
	}

	filter := def.Filter
	if def.Type == synth.Pluck && filter.Kind == synth.NoFilter {
		filter = synth.PluckFilterFor(freq)
	}
	applyFilter(out, note.SampleRate, filter)
	return ApplyEffects(out, note.SampleRate, note.Effects)
}

func unisonMix(def synth.SynthDef, freq, t float64) float64 {
	var sum float64
	voices := def.Voices
	for v := 0; v < voices; v++ {
		spread := (float64(v) - float64(voices-1)/2) / math.Max(float64(voices-1), 1)
		detuneRatio := 1 + spread*def.UnisonDetune/1200
		sum += synth.Oscillate(def.Waveform, freq*detuneRatio*t)
	}
	return sum / float64(voices)
}

// applyClickTransient adds a short LCG-noise transient over the first
// 3ms of a Keys-type note, cubic-decayed, matching the original
// engine's keys.rs post-processing.
func applyClickTransient(buf []float32, sampleRate int, amount float64) {
	if amount <= 0 {
		return
	}
	clickSamples := int(0.003 * float64(sampleRate))
	if clickSamples > len(buf) {
		clickSamples = len(buf)
	}
	state := uint32(12345)
	for i := 0; i < clickSamples; i++ {
		state = state*1103515245 + 12345
		noise := float64(state>>16&0x7fff)/16384.0 - 1
		progress := float64(i) / float64(clickSamples)
		decay := math.Pow(1-progress, 3)
		buf[i] += float32(noise * amount * decay)
	}
}

// applyGate chops buf into on/off pulses at rate Hz, each pulse held
// open for ratio of its period and faded out over the last 5ms before
// closing, matching the original engine's arp.rs gating.
func applyGate(buf []float32, sampleRate int, rate, ratio float64) {
	if rate <= 0 {
		return
	}
	periodSamples := float64(sampleRate) / rate
	fadeSamples := int(0.005 * float64(sampleRate))
	for i := range buf {
		posInPeriod := math.Mod(float64(i), periodSamples)
		onSamples := periodSamples * ratio
		if posInPeriod >= onSamples {
			buf[i] = 0
			continue
		}
		if fadeSamples > 0 {
			remaining := onSamples - posInPeriod
			if remaining < float64(fadeSamples) {
				buf[i] *= float32(remaining / float64(fadeSamples))
			}
		}
	}
}

func applyFilter(buf []float32, sampleRate int, f synth.Filter) {
	if f.Kind == synth.NoFilter || f.Cutoff <= 0 {
		return
	}
	rc := 1.0 / (2 * math.Pi * f.Cutoff)
	dt := 1.0 / float64(sampleRate)
	alpha := dt / (rc + dt)
	switch f.Kind {
	case synth.Lowpass:
		prev := float32(0)
		for i, s := range buf {
			prev = prev + float32(alpha)*(s-prev)
			buf[i] = prev
		}
	case synth.Highpass:
		prevIn, prevOut := float32(0), float32(0)
		for i, s := range buf {
			out := float32(alpha) * (prevOut + s - prevIn)
			prevIn = s
			prevOut = out
			buf[i] = out
		}
	case synth.Bandpass:
		// cascade a lowpass then a highpass at the same cutoff.
		applyFilter(buf, sampleRate, synth.Filter{Kind: synth.Lowpass, Cutoff: f.Cutoff * 1.5})
		applyFilter(buf, sampleRate, synth.Filter{Kind: synth.Highpass, Cutoff: f.Cutoff * 0.5})
	}
}
