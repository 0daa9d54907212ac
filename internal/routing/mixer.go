package routing

import (
	"math"

	"github.com/devalang/core/internal/voice"
)

// SampleBuffer is a decoded/rendered mono-or-stereo PCM buffer tagged
// with its own sample rate and channel count, mirroring the original
// mixer's SampleBuffer (data/frames/channels/sample_rate).
type SampleBuffer struct {
	Data       []float32 // interleaved
	Frames     int
	Channels   int
	SampleRate int
}

// SampleChannel reads frame f, channel c, downmixing mono to stereo and
// wrapping channel indices modulo the buffer's channel count the way
// sample_channel does.
func (b SampleBuffer) SampleChannel(frame, channel int) float32 {
	if b.Channels == 0 || frame < 0 || frame >= b.Frames {
		return 0
	}
	c := channel % b.Channels
	return b.Data[frame*b.Channels+c]
}

// Insert is one mixer channel: its own accumulation buffer, fed by
// Route connections pointing at it.
type Insert struct {
	Name       string
	Buffer     []float32 // interleaved at the mixer's output sample rate/channels
	FrameCount int
}

// Mixer owns one Insert per graph node and mixes SampleBuffers into
// them, walking each voice's route chain, applying duck/sidechain
// modulation, then flattening into a master buffer.
type Mixer struct {
	Graph      *Graph
	SampleRate int
	Channels   int
	inserts    map[string]*Insert
}

func NewMixer(g *Graph, sampleRate, channels int) *Mixer {
	return &Mixer{Graph: g, SampleRate: sampleRate, Channels: channels, inserts: make(map[string]*Insert)}
}

func (m *Mixer) insert(name string) *Insert {
	ins, ok := m.inserts[name]
	if !ok {
		ins = &Insert{Name: name}
		m.inserts[name] = ins
	}
	return ins
}

// MixIntoInsert resample/downmixes buf to the mixer's output rate and
// channel count and accumulates it into destination's insert at
// startFrame, growing the insert buffer as needed.
func (m *Mixer) MixIntoInsert(destination string, buf SampleBuffer, startFrame int, gain float64) {
	ins := m.insert(destination)
	ratio := buf.SampleRate
	if ratio == 0 {
		ratio = m.SampleRate
	}
	outFrames := int(float64(buf.Frames) * float64(m.SampleRate) / float64(ratio))
	needed := (startFrame + outFrames) * m.Channels
	m.growInsert(ins, needed)

	srcRatio := float64(buf.SampleRate) / float64(m.SampleRate)
	for outFrame := 0; outFrame < outFrames; outFrame++ {
		srcPos := float64(outFrame) * srcRatio
		srcIdx := int(math.Floor(srcPos))
		frac := srcPos - float64(srcIdx)
		for c := 0; c < m.Channels; c++ {
			a := buf.SampleChannel(srcIdx, c)
			b := buf.SampleChannel(srcIdx+1, c)
			sample := a + (b-a)*float32(frac)
			pos := (startFrame+outFrame)*m.Channels + c
			if pos < len(ins.Buffer) {
				ins.Buffer[pos] += sample * float32(gain)
			}
		}
	}
	if startFrame+outFrames > ins.FrameCount {
		ins.FrameCount = startFrame + outFrames
	}
}

func (m *Mixer) growInsert(ins *Insert, needed int) {
	if len(ins.Buffer) >= needed {
		return
	}
	grown := make([]float32, needed)
	copy(grown, ins.Buffer)
	ins.Buffer = grown
}

// RouteToMaster moves name's currently accumulated buffer one hop
// towards the master bus (to its Route parent, or straight to master if
// it has none) and drains name's buffer so a later call only forwards
// content accumulated since. A single hop per call, rather than
// walking the whole chain, is what makes repeated calls safe: the
// engine's flattenGraph calls this (and ApplyDuckingAndSidechain) for
// every node on every pass, and a multi-hop chain needs several passes
// to fully drain regardless of node visitation order, but never
// forwards the same sample twice.
func (m *Mixer) RouteToMaster(name string) {
	if name == MasterNode {
		return
	}
	parent, ok := m.Graph.ParentOf(name)
	if !ok || parent == name {
		parent = MasterNode
	}
	gain := 1.0
	for _, c := range m.Graph.OutgoingRoutes(name) {
		if c.Destination == parent {
			gain = c.Gain
			break
		}
	}
	src := m.insert(name)
	dst := m.insert(parent)
	m.growInsert(dst, len(src.Buffer))
	for idx, s := range src.Buffer {
		if s == 0 {
			continue
		}
		dst.Buffer[idx] += s * float32(gain)
		src.Buffer[idx] = 0
	}
	if src.FrameCount > dst.FrameCount {
		dst.FrameCount = src.FrameCount
	}
}

// ApplyDuckingAndSidechain walks every Duck/Sidechain connection whose
// destination is name and modulates name's insert buffer using the
// source insert's RMS envelope (duck: smooth gain reduction,
// sidechain: hard gate), matching the original engine's compressor/
// gate split between the two connection kinds.
func (m *Mixer) ApplyDuckingAndSidechain(name string) {
	ins, ok := m.inserts[name]
	if !ok {
		return
	}
	for _, c := range m.Graph.IncomingDucks(name) {
		src, ok := m.inserts[c.Source]
		if !ok {
			continue
		}
		applyDuck(ins.Buffer, src.Buffer, c.Params, m.SampleRate)
	}
	for _, c := range m.Graph.IncomingSidechains(name) {
		src, ok := m.inserts[c.Source]
		if !ok {
			continue
		}
		applySidechainGate(ins.Buffer, src.Buffer, c.Params)
	}
}

// ApplyInsertEffects runs name's RoutingFx chain (if any was attached
// via Graph.SetInsertEffects) over its accumulated buffer in place,
// using the same fixed per-voice effect order voice.ApplyEffects
// already enforces for per-note effects (spec.md §4.3 item 2: "applies
// its insert effect chain in place" before duck/sidechain modulation).
func (m *Mixer) ApplyInsertEffects(name string) {
	node, ok := m.Graph.Nodes[name]
	if !ok || len(node.Effects) == 0 {
		return
	}
	ins, ok := m.inserts[name]
	if !ok {
		return
	}
	p := insertEffectParams(node.Effects)
	out := voice.ApplyEffects(ins.Buffer, m.SampleRate, p)
	if len(out) > len(ins.Buffer) {
		m.growInsert(ins, len(out))
		frames := len(out) / m.Channels
		if frames > ins.FrameCount {
			ins.FrameCount = frames
		}
	}
	copy(ins.Buffer, out)
}

// insertEffectParams maps a RoutingFx numeric effect map onto
// voice.EffectParams, defaulting any key not present the way
// engine.effectParamsFrom does for per-note effects.
func insertEffectParams(m map[string]float64) voice.EffectParams {
	p := voice.DefaultEffectParams()
	for key, n := range m {
		switch key {
		case "gain":
			p.Gain = n
		case "pan":
			p.Pan = n
		case "drive":
			p.Drive = n
		case "distort":
			p.Distort = n
		case "reverb":
			p.Reverb = n
		case "delay":
			p.Delay = n
		case "chorus":
			p.Chorus = n
		case "flanger":
			p.Flanger = n
		case "phaser":
			p.Phaser = n
		case "vibrato":
			p.Vibrato = n
		case "compress":
			p.Compress = n
		}
	}
	return p
}

func paramOr(params map[string]float64, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return fallback
}

// applyDuck is an RMS-envelope-driven compressor: as the source's
// running RMS exceeds threshold, destination's gain is smoothly pulled
// down by ratio, with attack/release smoothing over the envelope.
func applyDuck(dst, src []float32, params map[string]float64, sampleRate int) {
	threshold := paramOr(params, "threshold", 0.3)
	ratio := paramOr(params, "ratio", 4.0)
	attackMs := paramOr(params, "attack", 10)
	releaseMs := paramOr(params, "release", 200)
	attackCoeff := timeConstantCoeff(attackMs, sampleRate)
	releaseCoeff := timeConstantCoeff(releaseMs, sampleRate)

	var env float32 // smoothed mean square of src
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		sq := src[i] * src[i]
		if sq > env {
			env = env + (sq-env)*float32(attackCoeff)
		} else {
			env = env + (sq-env)*float32(releaseCoeff)
		}
		rms := math.Sqrt(float64(env))
		if rms > threshold {
			over := rms - threshold
			reduction := 1 - (over/ratio)/math.Max(rms, 1e-9)
			if reduction < 0 {
				reduction = 0
			}
			dst[i] *= float32(reduction)
		}
	}
}

// applySidechainGate hard-gates dst to near-silence whenever src's
// instantaneous magnitude exceeds threshold, the simpler sibling of
// applyDuck.
func applySidechainGate(dst, src []float32, params map[string]float64) {
	threshold := paramOr(params, "threshold", 0.3)
	depth := paramOr(params, "depth", 0.9)
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		mag := src[i]
		if mag < 0 {
			mag = -mag
		}
		if float64(mag) > threshold {
			dst[i] *= float32(1 - depth)
		}
	}
}

func timeConstantCoeff(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 1
	}
	tau := ms / 1000.0
	return 1 - math.Exp(-1/(tau*float64(sampleRate)))
}

// MasterBuffer returns the master insert's buffer, resized/truncated
// to exactly totalFrames*channels, matching into_master_buffer.
func (m *Mixer) MasterBuffer(totalFrames int) []float32 {
	master := m.insert(MasterNode)
	needed := totalFrames * m.Channels
	if len(master.Buffer) < needed {
		m.growInsert(master, needed)
	}
	return master.Buffer[:needed]
}

// Normalize scales buf down so its peak absolute sample reaches
// ceiling only when the buffer's peak exceeds ceiling (clipping);
// a buffer that never exceeds ceiling is returned unchanged, per
// spec.md §4.3 item 4. The divisor applied is exactly the pre-scale
// peak, matching the testable property that normalization never
// amplifies a quiet render.
func Normalize(buf []float32, ceiling float32) {
	if ceiling <= 0 {
		ceiling = 1.0
	}
	var peak float32
	for _, s := range buf {
		m := s
		if m < 0 {
			m = -m
		}
		if m > peak {
			peak = m
		}
	}
	if peak <= ceiling {
		return
	}
	scale := ceiling / peak
	for i := range buf {
		buf[i] *= scale
	}
}
