package synth

import "math"

// Waveform enumerates the oscillator shapes a SynthDef may select.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Sawtooth
	Square
	Noise
)

// Type names the synth-type presets the `use` arrow-call vocabulary
// selects between; each mutates its default ADSR/waveform/filter and
// adds a post-processing pass of its own.
type Type int

const (
	Plain Type = iota
	Keys
	Arp
	Pad
	Pluck
	Sub
	Lead
	Bass
)

// ParseType maps spec.md §3's synth_type vocabulary
// (generic|keys|arp|sub|pluck|pad|lead|bass) onto a Type, defaulting
// an unrecognized name to Plain rather than erroring, matching the
// rest of the voice renderer's "unknown falls back to safe default"
// failure semantics (§4.2).
func ParseType(name string) Type {
	switch name {
	case "keys":
		return Keys
	case "arp":
		return Arp
	case "pad":
		return Pad
	case "pluck":
		return Pluck
	case "sub":
		return Sub
	case "lead":
		return Lead
	case "bass":
		return Bass
	default:
		return Plain
	}
}

// FilterKind selects the SynthDef's optional filter stage.
type FilterKind int

const (
	NoFilter FilterKind = iota
	Lowpass
	Bandpass
	Highpass
)

// Filter parameters for the optional filter stage.
type Filter struct {
	Kind      FilterKind
	Cutoff    float64
	Resonance float64
}

// PluginSpec names a third-party WASM synth, per spec.md §3's
// SynthDef.plugin: optional{author,name,export}. Author+Name key the
// compiled module the caller's plugin registry supplies; Export names
// the render function to call (falling back to "render_note" if the
// module doesn't export it).
type PluginSpec struct {
	Author string
	Name   string
	Export string
}

// Key returns the "author.name" identifier a caller's WASM module
// registry is keyed by.
func (p PluginSpec) Key() string { return p.Author + "." + p.Name }

// SynthDef is the fully-resolved definition a voice renders from: the
// oscillator, envelope, optional filter and synth-type post-processing
// parameters, plus an optional WASM plugin reference.
type SynthDef struct {
	Type     Type
	Waveform Waveform
	Envelope Envelope
	Filter   Filter
	Plugin   *PluginSpec        // non-nil selects a loaded WASM plugin instead of Waveform
	Options  map[string]float64 // per spec.md §3, applied to the plugin's named setters

	// Type-specific extras, populated by ApplyPreset.
	Voices        int     // Pad: unison voice count
	UnisonDetune  float64 // Pad: cents of spread across unison voices
	ClickAmount   float64 // Keys: transient click mix
	GateRate      float64 // Arp: pulses per second
	GateRatio     float64 // Arp: on-ratio per pulse
	OctaveShift   int     // Sub: octaves to shift down
	OctaveStack   bool    // Sub: also sound the un-shifted octave
	Drive         float64 // Lead: saturation amount (not read by voice.RenderSynth)
	AutoChorus    bool    // Pad: chorus flag (not read by voice.RenderSynth; no chorus is added)
	PitchEndRatio float64 // Pluck: end-of-note pitch ratio (glide down)
}

// Default returns a SynthDef with the tracker-style neutral ADSR (fast
// attack, no decay, full sustain, short release) and a sine oscillator.
func Default() SynthDef {
	return SynthDef{
		Type:     Plain,
		Waveform: Sine,
		Envelope: Envelope{
			AttackSeconds:  AttackToSeconds(0.02),
			DecaySeconds:   0,
			SustainLevel:   1,
			ReleaseSeconds: ReleaseToSeconds(0.05),
		},
	}
}

// ApplyPreset mutates def in place to the named synth type's defaults,
// pinned from the original engine's per-type parameter tables. Callers
// apply ApplyPreset before any explicit user overrides from SynthDef
// construction arguments, matching the "preset first, overrides after"
// order the original's arrow-call handlers use.
func ApplyPreset(def *SynthDef, t Type) {
	def.Type = t
	switch t {
	case Keys:
		def.Waveform = Triangle
		def.Envelope = Envelope{
			AttackSeconds: 0.001, DecaySeconds: 0.15,
			SustainLevel: 0.4, ReleaseSeconds: 0.25,
		}
		def.ClickAmount = 0.4
	case Arp:
		def.Envelope = Envelope{
			AttackSeconds: 0.001, DecaySeconds: 0.05,
			SustainLevel: 0.85, ReleaseSeconds: 0.01,
		}
		def.GateRate = 8.0
		def.GateRatio = 0.30
	case Pad:
		def.Envelope = Envelope{
			AttackSeconds: 0.6, DecaySeconds: 0.3,
			SustainLevel: 0.8, ReleaseSeconds: 0.9,
		}
		def.Voices = 3
		def.UnisonDetune = 15
		def.AutoChorus = true
	case Pluck:
		def.Envelope = Envelope{
			AttackSeconds: 0.002, DecaySeconds: 0.08,
			SustainLevel: 0.0, ReleaseSeconds: 0.12,
		}
		def.PitchEndRatio = 0.98
	case Sub:
		def.Envelope = Envelope{
			AttackSeconds: 0.01, DecaySeconds: 0.08,
			SustainLevel: 1.0, ReleaseSeconds: 0.3,
		}
		def.Filter = Filter{Kind: Lowpass, Cutoff: 150, Resonance: 1}
		def.OctaveShift = 1
	case Lead:
		def.Waveform = Sawtooth
		def.Envelope = Envelope{
			AttackSeconds: 0.005, DecaySeconds: 0.05,
			SustainLevel: 0.9, ReleaseSeconds: 0.15,
		}
		def.Filter = Filter{Kind: Lowpass, Cutoff: 4000, Resonance: 2}
		def.Drive = 0.15
	case Bass:
		def.Waveform = Square
		def.Envelope = Envelope{
			AttackSeconds: 0.01, DecaySeconds: 0.1,
			SustainLevel: 0.8, ReleaseSeconds: 0.1,
		}
		def.Filter = Filter{Kind: Lowpass, Cutoff: 600, Resonance: 1.5}
		def.OctaveShift = 1
	}
}

// PluckFilterFor returns the auto-injected bandpass filter a Pluck
// preset applies when the caller hasn't already set one: cutoff at
// 2x the note frequency (capped at 10kHz) with a fixed resonance,
// pinned from the original engine's pluck post-processing.
func PluckFilterFor(freqHz float64) Filter {
	cutoff := freqHz * 2
	if cutoff > 10000 {
		cutoff = 10000
	}
	return Filter{Kind: Bandpass, Cutoff: cutoff, Resonance: 6}
}

// MidiToFrequency converts a MIDI note number to Hz using the standard
// equal-temperament formula (A4 = 440Hz at MIDI 69), matching the
// note_to_freq helper repeated across the original engine's synth-type
// files.
func MidiToFrequency(midi float64) float64 {
	return 440.0 * math.Pow(2, (midi-69)/12)
}

// Oscillate samples waveform w at phase (a fraction of a cycle, not
// necessarily reduced to [0,1)).
func Oscillate(w Waveform, phase float64) float64 {
	frac := phase - math.Floor(phase)
	switch w {
	case Triangle:
		return 4*math.Abs(frac-0.5) - 1
	case Sawtooth:
		return 2*frac - 1
	case Square:
		if frac < 0.5 {
			return 1
		}
		return -1
	case Noise:
		// deterministic pseudo-noise from the phase itself, so the
		// same phase always reproduces the same sample for tests.
		v := math.Sin(phase*12.9898) * 43758.5453
		return 2*(v-math.Floor(v)) - 1
	default:
		return math.Sin(2 * math.Pi * frac)
	}
}
