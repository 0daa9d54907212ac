// Package engine wires the full render pipeline together: the event
// collector, the synth voice renderer, the sample provider, the
// routing graph/mixer and the WAV encoder. It is the top-level entry
// point a CLI or embedding caller drives.
//
// The flag-driven Options struct feeding a fixed sequence of subsystem
// constructors follows a flag-driven bootstrap shape,
// adapted from a TUI's startup sequence to a one-shot render pipeline.
package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/devalang/core/internal/collector"
	"github.com/devalang/core/internal/encoder"
	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/mididecode"
	"github.com/devalang/core/internal/midilive"
	"github.com/devalang/core/internal/monitor"
	"github.com/devalang/core/internal/music"
	"github.com/devalang/core/internal/plugin"
	"github.com/devalang/core/internal/routing"
	"github.com/devalang/core/internal/sampleprovider"
	"github.com/devalang/core/internal/statement"
	"github.com/devalang/core/internal/synth"
	"github.com/devalang/core/internal/voice"
)

// Options configures a single render pass.
type Options struct {
	SampleRate  int
	Channels    int
	OutputPath  string
	NormalizeTo float32 // peak ceiling above which the master buffer is scaled back down; 0 disables normalization entirely

	Samples sampleprovider.Provider
	Monitor *monitor.Monitor

	// Synths maps a `use`d synth name to the definition the collector's
	// AudioEvent.SynthName references; a name absent from this map falls
	// back to synth.Default().
	Synths map[string]synth.SynthDef

	// PluginHost renders any SynthDef with a non-nil Plugin field
	// (spec.md §4.4); left nil, plugin-backed synths render silence for
	// their voice instead of failing the whole render (per §4.4's
	// failure semantics: a missing host/module is fatal to that voice
	// only). PluginModules maps a PluginSpec's "author.name" key to the
	// compiled module's raw WASM bytes.
	PluginHost    *plugin.Host
	PluginModules map[string][]byte

	// LiveMIDI, left nil by default, mirrors every rendered Note/Chord
	// event out to a live MIDI device as the render walks its timeline —
	// a monitoring/preview sink analogous to Monitor's OSC mirror, not
	// part of the rendered WAV itself.
	LiveMIDI *midilive.Player
}

// DefaultOptions matches the pipeline's internal working format.
// NormalizeTo 1.0 matches spec.md §4.3 item 4's master-bus ceiling
// exactly: a buffer that never clips above 1.0 is left unchanged, and
// one that does is scaled back down so its peak lands at 1.0.
func DefaultOptions(outputPath string) Options {
	return Options{
		SampleRate:  44100,
		Channels:    2,
		OutputPath:  outputPath,
		NormalizeTo: 1.0,
		Synths:      make(map[string]synth.SynthDef),
		Monitor:     monitor.Disabled(),
	}
}

// Result summarizes a completed render.
type Result struct {
	OutputPath      string
	DurationSeconds float64
	FrameCount      int
}

// Render walks program with the collector, synthesizes/loads every
// resulting AudioEvent, mixes it down through the routing graph and
// encodes the master buffer to a WAV file at opts.OutputPath.
func Render(ctx context.Context, program []statement.Statement, opts Options) (Result, []collector.Diagnostic, error) {
	c := collector.New()
	c.DecodeMidi = mididecode.Decode
	if resolver, ok := opts.Samples.(collector.BankResolver); ok {
		c.Banks = resolver
	}
	if resolver, ok := opts.Samples.(collector.SampleResolver); ok {
		c.Samples = resolver
	}

	events, diags, err := c.Run(ctx, program)
	if err != nil {
		return Result{}, diags, err
	}

	if opts.Monitor == nil {
		opts.Monitor = monitor.Disabled()
	}
	opts.Monitor.Start(opts.OutputPath, c.Special.BPM)

	totalSeconds := 0.0
	for _, e := range events {
		end := e.TimeSeconds + e.DurationMs/1000.0
		if end > totalSeconds {
			totalSeconds = end
		}
	}
	totalSeconds += 1.0 // tail room for release/reverb decay

	mixer := routing.NewMixer(c.Graph, opts.SampleRate, opts.Channels)

	for i, e := range events {
		if e.Kind != collector.EventSample && len(e.Notes) > 0 {
			log.Printf("render: %s at %.3fs on %s", noteNames(e.Notes), e.TimeSeconds, e.Destination)
		}
		buf, err := renderEvent(opts, e)
		if err != nil {
			diags = append(diags, collector.Diagnostic{
				Kind:     collector.KindUnresolvedTrigger,
				Message:  fmt.Sprintf("event %d: %v", i, err),
				Severity: collector.SeverityWarning,
			})
			continue
		}
		startFrame := int(e.TimeSeconds * float64(opts.SampleRate))
		c.Graph.EnsureNode(e.Destination)
		mixer.MixIntoInsert(e.Destination, buf, startFrame, e.Velocity)

		if opts.LiveMIDI != nil && e.Kind != collector.EventSample {
			for _, note := range e.Notes {
				opts.LiveMIDI.Play(uint8(note), velocityToMIDI(e.Velocity), time.Duration(e.DurationMs*float64(time.Millisecond)))
			}
		}

		if opts.Monitor != nil {
			beatDuration := c.Special.BeatDuration
			if beatDuration > 0 {
				opts.Monitor.Beat(int(e.TimeSeconds/beatDuration), e.TimeSeconds)
			}
		}
	}

	flattenGraph(mixer, c.Graph)

	totalFrames := int(math.Ceil(totalSeconds * float64(opts.SampleRate)))
	master := mixer.MasterBuffer(totalFrames)
	if opts.NormalizeTo > 0 {
		routing.Normalize(master, opts.NormalizeTo)
	}

	enc := encoder.New(encoder.Format{SampleRate: opts.SampleRate, Channels: opts.Channels, BitsPerSample: 16})
	if err := enc.WriteFile(opts.OutputPath, master); err != nil {
		return Result{}, diags, fmt.Errorf("encode output: %w", err)
	}

	opts.Monitor.End(opts.OutputPath, totalSeconds)

	return Result{
		OutputPath:      opts.OutputPath,
		DurationSeconds: totalSeconds,
		FrameCount:      totalFrames,
	}, diags, nil
}

// renderEvent synthesizes or loads the PCM for one collector AudioEvent
// at the pipeline's working sample rate, as stereo-interleaved output.
func renderEvent(opts Options, e collector.AudioEvent) (routing.SampleBuffer, error) {
	if e.Kind == collector.EventSample {
		if opts.Samples == nil {
			return routing.SampleBuffer{}, fmt.Errorf("no sample provider configured for trigger %q", e.TriggerRef)
		}
		buf, err := opts.Samples.Load(e.TriggerRef)
		if err != nil {
			return routing.SampleBuffer{}, err
		}
		if buf.Channels == 1 {
			pan := 0.0
			if v, ok := e.Effects["pan"]; ok {
				pan, _ = v.AsNumber()
			}
			buf = routing.SampleBuffer{
				Data:       panStereo(buf.Data, pan),
				Frames:     buf.Frames,
				Channels:   2,
				SampleRate: buf.SampleRate,
			}
		}
		return buf, nil
	}

	def := synth.Default()
	if opts.Synths != nil {
		if named, ok := opts.Synths[e.SynthName]; ok {
			def = named
		}
	}

	effects := effectParamsFrom(e.Effects)
	gateSeconds := e.DurationMs / 1000.0

	if len(e.Notes) == 0 {
		return routing.SampleBuffer{}, fmt.Errorf("note/chord event carries no pitches")
	}

	// Chord widening (spec.md §4.2): pitch i of n is panned away from
	// the event's base pan by spread*(i-(n-1)/2)/n (the middle pitch of
	// an odd-sized chord stays at the base pan), so a wide spread decorrelates the chord's
	// left/right channels instead of summing every voice dead-center.
	n := len(e.Notes)
	var stereo []float32
	frames := 0
	for i, midiNote := range e.Notes {
		freq := synth.MidiToFrequency(float64(midiNote))
		var voiceBuf []float32
		if def.Plugin != nil {
			voiceBuf = renderPluginVoice(opts, def, e.SynthName, freq, e.Velocity, e.DurationMs)
			voiceBuf = voice.ApplyEffects(voiceBuf, opts.SampleRate, effects)
		} else {
			voiceBuf = voice.RenderSynth(def, voice.Note{
				FrequencyHz: freq,
				GateSeconds: gateSeconds,
				SampleRate:  opts.SampleRate,
				Effects:     effects,
			})
		}
		pan := effects.Pan + effects.Spread*(float64(i)-float64(n-1)/2)/float64(n)
		if pan > 1 {
			pan = 1
		} else if pan < -1 {
			pan = -1
		}
		voiceStereo := panStereo(voiceBuf, pan)
		if len(voiceBuf) > frames {
			frames = len(voiceBuf)
		}
		stereo = accumulate(stereo, voiceStereo, 1.0/float64(n))
	}

	return routing.SampleBuffer{Data: stereo, Frames: frames, Channels: 2, SampleRate: opts.SampleRate}, nil
}

// renderPluginVoice dispatches one note to the WASM plugin host
// (spec.md §4.4), keeping a separate instance per synth id so two
// `use`d synth names sharing the same module never share state. A
// missing host/module/compile failure is fatal only to this voice:
// the note renders as silence rather than aborting the whole render.
func renderPluginVoice(opts Options, def synth.SynthDef, synthID string, freq, velocity, durationMs float64) []float32 {
	frames := int(durationMs / 1000.0 * float64(opts.SampleRate))
	if frames <= 0 {
		frames = 1
	}
	if opts.PluginHost == nil || opts.PluginModules == nil || def.Plugin == nil {
		return make([]float32, frames)
	}
	wasmBytes, ok := opts.PluginModules[def.Plugin.Key()]
	if !ok {
		return make([]float32, frames)
	}

	ctx := context.Background()
	if err := opts.PluginHost.Load(ctx, wasmBytes, synthID); err != nil {
		return make([]float32, frames)
	}
	if len(def.Options) > 0 {
		_ = opts.PluginHost.ApplySetters(ctx, wasmBytes, synthID, def.Options)
	}

	exportName := def.Plugin.Export
	if exportName == "" {
		exportName = "render_note"
	}
	out, err := opts.PluginHost.RenderIn(ctx, wasmBytes, synthID, exportName,
		make([]float32, frames), freq, velocity, int(durationMs), opts.SampleRate, 1)
	if err != nil {
		return make([]float32, frames)
	}
	return out
}

// panStereo expands a mono buffer into interleaved stereo using the
// equal-sum pan law from spec.md §4.2: left_gain = 1 - max(pan,0),
// right_gain = 1 + min(pan,0), monotonic and symmetric about 0.
func panStereo(mono []float32, pan float64) []float32 {
	leftGain := float32(1 - math.Max(pan, 0))
	rightGain := float32(1 + math.Min(pan, 0))
	out := make([]float32, len(mono)*2)
	for i, s := range mono {
		out[i*2] = s * leftGain
		out[i*2+1] = s * rightGain
	}
	return out
}

// noteNames renders a chord's pitches as standard pitch names for
// render-progress logging.
func noteNames(notes []int) string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = music.MidiToNoteName(n)
	}
	return strings.Join(names, " ")
}

// velocityToMIDI scales a collector AudioEvent's 0..1 velocity into the
// MIDI 0..127 range, clamping an out-of-range caller-supplied value.
func velocityToMIDI(velocity float64) uint8 {
	if velocity < 0 {
		velocity = 0
	} else if velocity > 1 {
		velocity = 1
	}
	return uint8(velocity * 127)
}

func accumulate(dst, src []float32, gain float64) []float32 {
	if len(src) > len(dst) {
		grown := make([]float32, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, s := range src {
		dst[i] += s * float32(gain)
	}
	return dst
}

// effectParamsFrom converts the collector's loosely-typed arrow-call
// effect map into voice.EffectParams, defaulting any key the event
// didn't set.
func effectParamsFrom(m map[string]langtypes.Value) voice.EffectParams {
	p := voice.DefaultEffectParams()
	for key, v := range m {
		n, ok := v.AsNumber()
		if !ok {
			continue
		}
		switch key {
		case "gain":
			p.Gain = n
		case "pan":
			p.Pan = n
		case "fadeIn":
			p.FadeIn = n
		case "fadeOut":
			p.FadeOut = n
		case "pitch":
			p.Pitch = n
		case "detune":
			p.Detune = n
		case "spread":
			p.Spread = n
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

// flattenGraph pushes every non-master insert towards the master bus,
// applying ducking/sidechain modulation first. RouteToMaster requires
// leaves to be flattened before their parents; rather than topologically
// sort the graph, this repeats a full pass over every node once per
// node, which is enough passes for a chain of any depth to fully drain
// towards master regardless of the order names are visited in.
func flattenGraph(mixer *routing.Mixer, g *routing.Graph) {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		if name != routing.MasterNode {
			names = append(names, name)
		}
	}
	for pass := 0; pass < len(names); pass++ {
		for _, n := range names {
			mixer.ApplyInsertEffects(n)
			mixer.ApplyDuckingAndSidechain(n)
			mixer.RouteToMaster(n)
		}
	}
}
