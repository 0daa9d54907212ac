package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteChainReachesMaster(t *testing.T) {
	g := NewGraph()
	g.AddRoute("kick", "drumBus", 1.0)
	g.AddRoute("drumBus", MasterNode, 0.8)
	chain := g.RouteChain("kick")
	assert.Equal(t, []string{"kick", "drumBus", MasterNode}, chain)
}

func TestRouteChainAppendsMasterIfUnreached(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("orphan")
	chain := g.RouteChain("orphan")
	assert.Equal(t, []string{"orphan", MasterNode}, chain)
}

func TestRouteChainBreaksOnCycle(t *testing.T) {
	g := NewGraph()
	g.AddRoute("a", "b", 1)
	g.AddRoute("b", "a", 1)
	chain := g.RouteChain("a")
	assert.Contains(t, chain, MasterNode)
	assert.LessOrEqual(t, len(chain), 3)
}

func TestMixIntoInsertAccumulates(t *testing.T) {
	g := NewGraph()
	m := NewMixer(g, 44100, 1)
	buf := SampleBuffer{Data: []float32{0.5, 0.5}, Frames: 2, Channels: 1, SampleRate: 44100}
	m.MixIntoInsert("kick", buf, 0, 1.0)
	ins := m.insert("kick")
	assert.Equal(t, float32(0.5), ins.Buffer[0])
}

func TestRouteToMasterAppliesGain(t *testing.T) {
	g := NewGraph()
	g.AddRoute("kick", MasterNode, 0.5)
	m := NewMixer(g, 44100, 1)
	buf := SampleBuffer{Data: []float32{1.0}, Frames: 1, Channels: 1, SampleRate: 44100}
	m.MixIntoInsert("kick", buf, 0, 1.0)
	m.RouteToMaster("kick")
	master := m.MasterBuffer(1)
	assert.InDelta(t, 0.5, master[0], 1e-6)
}

func TestNormalizeScalesDownClippingBuffer(t *testing.T) {
	buf := []float32{0.5, -2.0, 1.0}
	Normalize(buf, 1.0)
	assert.InDelta(t, 1.0, float64(-buf[1]), 1e-5)
	assert.InDelta(t, 0.25, float64(buf[0]), 1e-5)
}

func TestNormalizeLeavesQuietBufferUnchanged(t *testing.T) {
	buf := []float32{0.1, -0.4, 0.2}
	Normalize(buf, 1.0)
	assert.Equal(t, float32(0.1), buf[0])
	assert.Equal(t, float32(-0.4), buf[1])
	assert.Equal(t, float32(0.2), buf[2])
}

func TestApplyDuckReducesGainAboveThreshold(t *testing.T) {
	dst := []float32{1.0, 1.0, 1.0}
	src := []float32{1.0, 1.0, 1.0}
	applyDuck(dst, src, map[string]float64{"threshold": 0.1, "ratio": 4, "attack": 1, "release": 1}, 44100)
	assert.Less(t, dst[2], float32(1.0))
}

func TestApplySidechainGateSilencesAboveThreshold(t *testing.T) {
	dst := []float32{1.0}
	src := []float32{0.9}
	applySidechainGate(dst, src, map[string]float64{"threshold": 0.3, "depth": 0.9})
	assert.InDelta(t, 0.1, dst[0], 1e-6)
}

func TestDeclareNodeRegistersAliasWithoutClobberingEffects(t *testing.T) {
	g := NewGraph()
	g.SetInsertEffects("lead", map[string]float64{"gain": 0.5})
	g.DeclareNode("lead", "leadSynth")
	n := g.Nodes["lead"]
	assert.Equal(t, "leadSynth", n.Alias)
	assert.Equal(t, 0.5, n.Effects["gain"])
}

func TestApplyInsertEffectsAppliesGainInPlace(t *testing.T) {
	g := NewGraph()
	g.SetInsertEffects("lead", map[string]float64{"gain": 0.25})
	m := NewMixer(g, 44100, 1)
	buf := SampleBuffer{Data: []float32{1.0, 1.0}, Frames: 2, Channels: 1, SampleRate: 44100}
	m.MixIntoInsert("lead", buf, 0, 1.0)
	m.ApplyInsertEffects("lead")
	ins := m.insert("lead")
	assert.InDelta(t, 0.25, ins.Buffer[0], 1e-6)
}

func TestApplyInsertEffectsNoopWithoutEffects(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("lead")
	m := NewMixer(g, 44100, 1)
	buf := SampleBuffer{Data: []float32{0.5}, Frames: 1, Channels: 1, SampleRate: 44100}
	m.MixIntoInsert("lead", buf, 0, 1.0)
	m.ApplyInsertEffects("lead")
	ins := m.insert("lead")
	assert.Equal(t, float32(0.5), ins.Buffer[0])
}
