package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceKeyDeterministic(t *testing.T) {
	a := instanceKey([]byte{1, 2, 3}, "synth1")
	b := instanceKey([]byte{1, 2, 3}, "synth1")
	assert.Equal(t, a, b)
}

func TestInstanceKeyDiffersPerInstanceID(t *testing.T) {
	a := instanceKey([]byte{1, 2, 3}, "synth1")
	b := instanceKey([]byte{1, 2, 3}, "synth2")
	assert.NotEqual(t, a, b)
}

func TestSetterNamesTable(t *testing.T) {
	assert.Equal(t, "setWaveform", setterNames["waveform"])
	assert.Equal(t, "setEnvMod", setterNames["env_mod"])
	assert.Equal(t, "setGlide", setterNames["glide"])
	_, ok := setterNames["unknown_param"]
	assert.False(t, ok)
}
