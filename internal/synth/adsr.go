// Package synth defines SynthDef, waveform generation, ADSR envelope
// shaping and the per-synth-type preset table (keys/arp/pad/pluck/sub).
//
// The ADSR hex(0-254)-to-seconds/level mapping is adapted from the
// tracker's types.AttackToSeconds/DecayToSeconds/SustainToLevel/
// ReleaseToSeconds, generalized from a hex tracker-column input to a
// plain float parameter in [0,1].
package synth

import "math"

// attackMinSeconds/attackMaxSeconds and releaseMinSeconds/
// releaseMaxSeconds mirror the tracker's own exponential curve bounds.
const (
	attackMinSeconds  = 0.0005
	attackMaxSeconds  = 5.0
	releaseMinSeconds = 0.002
	releaseMaxSeconds = 8.0
)

// AttackToSeconds maps a normalized [0,1] attack parameter to seconds
// via the same exponential curve shape the tracker uses for its hex
// attack column: minSeconds * (maxSeconds/minSeconds)^ratio.
func AttackToSeconds(ratio float64) float64 {
	ratio = clamp01(ratio)
	return attackMinSeconds * math.Pow(attackMaxSeconds/attackMinSeconds, ratio)
}

// ReleaseToSeconds is AttackToSeconds' release-side counterpart.
func ReleaseToSeconds(ratio float64) float64 {
	ratio = clamp01(ratio)
	return releaseMinSeconds * math.Pow(releaseMaxSeconds/releaseMinSeconds, ratio)
}

// DecayToSeconds is linear, matching the tracker's own decay mapping.
func DecayToSeconds(ratio float64) float64 {
	ratio = clamp01(ratio)
	return ratio * 3.0
}

// SustainToLevel is linear, matching the tracker's own sustain mapping.
func SustainToLevel(ratio float64) float64 {
	return clamp01(ratio)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Envelope holds resolved attack/decay/sustain/release in seconds/level
// (not normalized ratios) ready to be sampled against a note's elapsed
// time and gate state.
type Envelope struct {
	AttackSeconds  float64
	DecaySeconds   float64
	SustainLevel   float64
	ReleaseSeconds float64
}

// AmplitudeAt returns the envelope's gain at elapsedSeconds into a note
// whose gate (note-on duration, excluding release) lasts gateSeconds.
// After the gate closes, amplitude decays from whatever level it had
// reached towards 0 over ReleaseSeconds.
func (e Envelope) AmplitudeAt(elapsedSeconds, gateSeconds float64) float64 {
	if elapsedSeconds < 0 {
		return 0
	}
	if elapsedSeconds < gateSeconds {
		return e.amplitudeDuringGate(elapsedSeconds)
	}
	releaseElapsed := elapsedSeconds - gateSeconds
	if releaseElapsed >= e.ReleaseSeconds {
		return 0
	}
	levelAtRelease := e.amplitudeDuringGate(gateSeconds)
	if e.ReleaseSeconds <= 0 {
		return 0
	}
	t := releaseElapsed / e.ReleaseSeconds
	return levelAtRelease * (1 - t)
}

func (e Envelope) amplitudeDuringGate(t float64) float64 {
	if t < e.AttackSeconds {
		if e.AttackSeconds <= 0 {
			return 1
		}
		return t / e.AttackSeconds
	}
	t -= e.AttackSeconds
	if t < e.DecaySeconds {
		if e.DecaySeconds <= 0 {
			return e.SustainLevel
		}
		frac := t / e.DecaySeconds
		return 1 - frac*(1-e.SustainLevel)
	}
	return e.SustainLevel
}
