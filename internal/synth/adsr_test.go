package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttackToSecondsBounds(t *testing.T) {
	assert.InDelta(t, attackMinSeconds, AttackToSeconds(0), 1e-9)
	assert.InDelta(t, attackMaxSeconds, AttackToSeconds(1), 1e-9)
}

func TestReleaseToSecondsBounds(t *testing.T) {
	assert.InDelta(t, releaseMinSeconds, ReleaseToSeconds(0), 1e-9)
	assert.InDelta(t, releaseMaxSeconds, ReleaseToSeconds(1), 1e-9)
}

func TestDecayAndSustainLinear(t *testing.T) {
	assert.Equal(t, 1.5, DecayToSeconds(0.5))
	assert.Equal(t, 0.5, SustainToLevel(0.5))
}

func TestEnvelopeAmplitudeAttackRamp(t *testing.T) {
	e := Envelope{AttackSeconds: 1, DecaySeconds: 0, SustainLevel: 1, ReleaseSeconds: 1}
	assert.InDelta(t, 0.5, e.AmplitudeAt(0.5, 4), 1e-9)
	assert.InDelta(t, 1.0, e.AmplitudeAt(1.0, 4), 1e-9)
}

func TestEnvelopeAmplitudeRelease(t *testing.T) {
	e := Envelope{AttackSeconds: 0, DecaySeconds: 0, SustainLevel: 1, ReleaseSeconds: 2}
	assert.InDelta(t, 1.0, e.AmplitudeAt(0.5, 1.0), 1e-9)
	assert.InDelta(t, 0.5, e.AmplitudeAt(2.0, 1.0), 1e-9)
	assert.Equal(t, 0.0, e.AmplitudeAt(3.1, 1.0))
}
