package voice

import "math"

// ApplyEffects runs buf through the fixed per-note effect chain order:
// pitch and pan are caller-side concerns (pan applies at mixdown,
// pitch already baked into oscillation); here we
// apply drive/distortion, then the modulation effects (chorus/flanger/
// phaser/vibrato), then delay, then reverb, then compression, and
// finally fades and gain.
func ApplyEffects(buf []float32, sampleRate int, p EffectParams) []float32 {
	if p.Drive > 0 {
		applyDrive(buf, p.Drive)
	}
	if p.Distort > 0 {
		applyDistortion(buf, p.Distort)
	}
	if p.Chorus > 0 {
		buf = applyChorus(buf, sampleRate, p.Chorus)
	}
	if p.Flanger > 0 {
		buf = NewFlanger(0.7, 0.5, 0.5, p.Flanger).Process(buf, sampleRate)
	}
	if p.Phaser > 0 {
		buf = applyPhaser(buf, sampleRate, p.Phaser)
	}
	if p.Vibrato > 0 {
		buf = NewVibrato(5.0, p.Vibrato*0.003).Process(buf, sampleRate)
	}
	if p.Delay > 0 {
		buf = applyDelay(buf, sampleRate, p.Delay)
	}
	if p.Reverb > 0 {
		buf = NewReverb(0.5, 0.5, p.Reverb, 0.3).Process(buf, sampleRate)
	}
	if p.Compress > 0 {
		applyCompressor(buf, p.Compress)
	}
	applyFades(buf, sampleRate, p.FadeIn, p.FadeOut)
	applyGainGate(buf, p.Gain)
	return buf
}

func applyDrive(buf []float32, amount float64) {
	gain := 1 + amount*4
	for i, s := range buf {
		v := float64(s) * gain
		buf[i] = float32(math.Tanh(v))
	}
}

func applyDistortion(buf []float32, amount float64) {
	threshold := 1 - clamp01(amount)*0.9
	for i, s := range buf {
		v := float64(s)
		if v > threshold {
			v = threshold
		} else if v < -threshold {
			v = -threshold
		}
		buf[i] = float32(v)
	}
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

// applyChorus mixes buf with a slowly-modulated, slightly-delayed copy
// of itself (a single-voice flanger with a longer, un-fed-back delay
// and slower rate is the textbook chorus construction).
func applyChorus(buf []float32, sampleRate int, mix float64) []float32 {
	f := NewFlanger(0.5, 0.2, 0.0, mix)
	f.maxDelaySamples = int(0.03 * float64(sampleRate)) // ~30ms chorus delay
	f.delayBuffer = make([]float32, f.maxDelaySamples)
	return f.Process(buf, sampleRate)
}

func applyPhaser(buf []float32, sampleRate int, mix float64) []float32 {
	out := make([]float32, len(buf))
	rate := 0.5
	var ap1, ap2 float32
	for i, s := range buf {
		t := float64(i) / float64(sampleRate)
		lfo := (math.Sin(2*math.Pi*rate*t) + 1) / 2
		coeff := float32(0.1 + lfo*0.7)
		stage1 := -coeff*s + ap1 + coeff*ap1
		ap1 = s
		stage2 := -coeff*stage1 + ap2 + coeff*ap2
		ap2 = stage1
		out[i] = s*(1-float32(mix)) + stage2*float32(mix)
	}
	return out
}

func applyDelay(buf []float32, sampleRate int, amount float64) []float32 {
	delayMs := 250.0 + amount*250.0
	delaySamples := int(delayMs / 1000 * float64(sampleRate))
	feedback := 0.35
	mix := clamp01(amount)
	out := make([]float32, len(buf)+delaySamples*2)
	copy(out, buf)
	for i := 0; i < len(buf); i++ {
		di := i + delaySamples
		if di < len(out) {
			out[di] += buf[i] * float32(feedback) * float32(mix)
		}
	}
	return out
}

func applyCompressor(buf []float32, amount float64) {
	threshold := float32(1 - clamp01(amount)*0.8)
	ratio := float32(4.0)
	for i, s := range buf {
		mag := s
		if mag < 0 {
			mag = -mag
		}
		if mag > threshold {
			over := mag - threshold
			compressed := threshold + over/ratio
			if s < 0 {
				buf[i] = -compressed
			} else {
				buf[i] = compressed
			}
		}
	}
}

func applyFades(buf []float32, sampleRate int, fadeIn, fadeOut float64) {
	if fadeIn > 0 {
		n := int(fadeIn * float64(sampleRate))
		if n > len(buf) {
			n = len(buf)
		}
		for i := 0; i < n; i++ {
			buf[i] *= float32(i) / float32(n)
		}
	}
	if fadeOut > 0 {
		n := int(fadeOut * float64(sampleRate))
		if n > len(buf) {
			n = len(buf)
		}
		for i := 0; i < n; i++ {
			buf[len(buf)-1-i] *= float32(i) / float32(n)
		}
	}
}

func applyGainGate(buf []float32, gain float64) {
	if gain == 1 {
		return
	}
	for i := range buf {
		buf[i] *= float32(gain)
	}
}

// Flanger is a sine-LFO modulated delay line with feedback, pinned
// from the original engine's flanger.rs (10ms max delay @44.1kHz
// reference, feedback fed back into the delay buffer before the wet/
// dry mix).
type Flanger struct {
	depth, rate, feedback, mix float64
	phase                      float64
	delayBuffer                []float32
	bufferPos                  int
	maxDelaySamples            int
}

func NewFlanger(depth, rate, feedback, mix float64) *Flanger {
	return &Flanger{
		depth: clamp01(depth), rate: rate, feedback: clampRange(feedback, 0, 0.95), mix: clamp01(mix),
		maxDelaySamples: 441, // ~10ms at 44.1kHz
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (f *Flanger) Process(buf []float32, sampleRate int) []float32 {
	if f.delayBuffer == nil {
		f.delayBuffer = make([]float32, f.maxDelaySamples)
	}
	out := make([]float32, len(buf))
	phaseInc := f.rate / float64(sampleRate)
	for i, s := range buf {
		lfo := math.Sin(2 * math.Pi * f.phase)
		delaySamples := f.depth * float64(f.maxDelaySamples) * (lfo + 1) / 2
		if delaySamples >= float64(f.maxDelaySamples) {
			delaySamples = float64(f.maxDelaySamples - 1)
		}
		readPos := f.bufferPos - int(delaySamples)
		for readPos < 0 {
			readPos += f.maxDelaySamples
		}
		delayed := f.delayBuffer[readPos%f.maxDelaySamples]

		f.delayBuffer[f.bufferPos] = s + delayed*float32(f.feedback)
		out[i] = s*float32(1-f.mix) + delayed*float32(f.mix)

		f.bufferPos = (f.bufferPos + 1) % f.maxDelaySamples
		f.phase += phaseInc
		if f.phase >= 1 {
			f.phase -= 1
		}
	}
	return out
}

// combDelays and allpassDelays are the original engine's reverb.rs
// sample-count tables, referenced at 44.1kHz and scaled for other
// sample rates.
var combDelays = []int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var allpassDelays = []int{556, 441, 341, 225}

// Reverb is a Schroeder/Moorer-style parallel-comb + series-allpass
// reverb, pinned from the original engine's reverb.rs.
type Reverb struct {
	roomSize, damping, mix, decay float64
}

func NewReverb(roomSize, damping, mix, decay float64) *Reverb {
	return &Reverb{roomSize: clamp01(roomSize), damping: clamp01(damping), mix: clamp01(mix), decay: clampRange(decay, 0, 2)}
}

func (r *Reverb) Process(buf []float32, sampleRate int) []float32 {
	scale := float64(sampleRate) / 44100.0
	feedback := clampRange(0.78+r.roomSize*0.14, 0, 1) * (0.6 + r.decay*0.2)
	if feedback > 0.995 {
		feedback = 0.995
	}

	combBufs := make([][]float32, len(combDelays))
	combPos := make([]int, len(combDelays))
	combFilterState := make([]float32, len(combDelays))
	for i, d := range combDelays {
		n := int(float64(d) * scale)
		if n < 1 {
			n = 1
		}
		combBufs[i] = make([]float32, n)
	}

	allpassBufs := make([][]float32, len(allpassDelays))
	allpassPos := make([]int, len(allpassDelays))
	for i, d := range allpassDelays {
		n := int(float64(d) * scale)
		if n < 1 {
			n = 1
		}
		allpassBufs[i] = make([]float32, n)
	}

	out := make([]float32, len(buf))
	for i, s := range buf {
		var combSum float32
		for c := range combBufs {
			buflen := len(combBufs[c])
			delayed := combBufs[c][combPos[c]]
			combFilterState[c] = delayed*float32(1-r.damping) + combFilterState[c]*float32(r.damping)
			combBufs[c][combPos[c]] = s + combFilterState[c]*float32(feedback)
			combPos[c] = (combPos[c] + 1) % buflen
			combSum += delayed
		}
		output := combSum / float32(len(combBufs))

		for a := range allpassBufs {
			buflen := len(allpassBufs[a])
			delayed := allpassBufs[a][allpassPos[a]]
			bufIn := output + delayed*0.5
			allpassBufs[a][allpassPos[a]] = bufIn
			output = delayed - bufIn*0.5
			allpassPos[a] = (allpassPos[a] + 1) % buflen
		}

		out[i] = s*float32(1-r.mix) + output*float32(r.mix)
	}
	return out
}

// Vibrato is a fractional-delay pitch-wobble line, pinned from the
// original engine's vibrato.rs (read computed before write, to avoid
// self-referencing the sample it's about to overwrite).
type Vibrato struct {
	rate, depth float64
	buf         []float32
	pos         int
	phase       float64
}

func NewVibrato(rate, depth float64) *Vibrato {
	return &Vibrato{rate: rate, depth: depth, buf: make([]float32, 2048)}
}

func (v *Vibrato) Process(buf []float32, sampleRate int) []float32 {
	out := make([]float32, len(buf))
	phaseInc := v.rate / float64(sampleRate)
	for i, s := range buf {
		lfo := math.Sin(2 * math.Pi * v.phase)
		delaySamples := v.depth * float64(sampleRate) * (lfo + 1) / 2

		readPos := float64(v.pos) - delaySamples
		for readPos < 0 {
			readPos += float64(len(v.buf))
		}
		i0 := int(readPos) % len(v.buf)
		i1 := (i0 + 1) % len(v.buf)
		frac := readPos - math.Floor(readPos)
		interpolated := v.buf[i0]*float32(1-frac) + v.buf[i1]*float32(frac)

		out[i] = interpolated
		v.buf[v.pos] = s
		v.pos = (v.pos + 1) % len(v.buf)
		v.phase += phaseInc
		if v.phase >= 1 {
			v.phase -= 1
		}
	}
	return out
}
