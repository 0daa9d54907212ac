// Package specialvars resolves the $-prefixed runtime variables
// ($time, $beat, $bpm, $random, ...) that arrow-call arguments and
// effect parameters may reference instead of a literal value.
//
// The field set and update formulas mirror the original Rust engine's
// SpecialVarContext; the $random seed-mode convention (disabled /
// time-seeded / fixed) is adapted from a ModulateSettings.Seed-style
// disabled/time-seeded/fixed handling scheme.
package specialvars

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/devalang/core/internal/curve"
	"github.com/devalang/core/internal/langtypes"
)

// SeedMode controls how Context's RNG is seeded.
type SeedMode int

const (
	// SeedDisabled makes $random always resolve to 0 (deterministic
	// silence — used by tests that must not depend on randomness).
	SeedDisabled SeedMode = -1
	// SeedTime seeds the RNG from the current render's wall time, once,
	// at Context construction.
	SeedTime SeedMode = 0
)

// Context carries the runtime state special variables read from. One
// Context is owned by the collector and mutated as the time cursor
// advances.
type Context struct {
	CurrentTime   float64
	CurrentBeat   float64
	CurrentBar    float64
	BPM           float64
	BeatDuration  float64 // seconds per beat, recomputed on BPM change
	SampleRate    int
	Channels      int
	Position      float64 // 0..1 progress through the render
	TotalDuration float64

	seedMode SeedMode
	rng      *rand.Rand

	// lastBeatInt/lastBarInt track which integer beat/bar BeatCrossing
	// has already reported, so the collector's built-in beat/bar
	// handlers fire at most once per integer regardless of how many
	// Collector scope-forks share this Context pointer.
	lastBeatInt int
	lastBarInt  int
}

// New builds a Context with the same defaults the original engine
// ships (bpm 120, 44.1kHz stereo), seeded per mode. seed is used only
// when mode is neither Disabled nor Time (a fixed 1..128 style seed).
func New(bpm float64, sampleRate, channels int, mode SeedMode, seed int64) *Context {
	c := &Context{
		BPM:          bpm,
		BeatDuration: 60.0 / bpm,
		SampleRate:   sampleRate,
		Channels:     channels,
		seedMode:     mode,
		lastBeatInt:  -1,
		lastBarInt:   -1,
	}
	switch mode {
	case SeedDisabled:
		// no RNG constructed; Resolve returns 0 for $random.*
	case SeedTime:
		c.rng = rand.New(rand.NewSource(timeSeed()))
	default:
		c.rng = rand.New(rand.NewSource(seed))
	}
	return c
}

// timeSeed is isolated so tests can stub it; production uses wall time.
var timeSeed = func() int64 { return time.Now().UnixNano() }

// UpdateTime advances the cursor-derived fields as the collector moves
// forward in the timeline.
func (c *Context) UpdateTime(t float64) {
	c.CurrentTime = t
	if c.BeatDuration > 0 {
		c.CurrentBeat = t / c.BeatDuration
		c.CurrentBar = c.CurrentBeat / 4.0
	}
	if c.TotalDuration > 0 {
		c.Position = clamp(t/c.TotalDuration, 0, 1)
	}
}

// BeatCrossing reports whether the position set by the most recent
// UpdateTime call has crossed into a new integer beat and/or bar since
// the last call: "handlers for beat/bar fire at integer crossings
// only, at most once per integer." The very first call always reports
// beat 0/bar 0 as crossed, so a render's opening beat still fires its
// handlers.
func (c *Context) BeatCrossing() (beat int, beatCrossed bool, bar int, barCrossed bool) {
	beat = int(math.Floor(c.CurrentBeat))
	if beat != c.lastBeatInt {
		beatCrossed = true
		c.lastBeatInt = beat
	}
	bar = int(math.Floor(c.CurrentBar))
	if bar != c.lastBarInt {
		barCrossed = true
		c.lastBarInt = bar
	}
	return
}

// UpdateBPM re-derives BeatDuration from a new tempo.
func (c *Context) UpdateBPM(bpm float64) {
	c.BPM = bpm
	if bpm > 0 {
		c.BeatDuration = 60.0 / bpm
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsSpecialVar reports whether s names a $-prefixed special variable.
func IsSpecialVar(s string) bool {
	return strings.HasPrefix(s, "$")
}

// Resolve evaluates a special-variable reference such as "$beat",
// "$random.range(20,80)" or "$tempo" against the current context.
func (c *Context) Resolve(name string) (langtypes.Value, error) {
	switch {
	case name == "$time" || name == "$currentTime":
		return langtypes.NumberOf(c.CurrentTime), nil
	case name == "$beat" || name == "$currentBeat":
		return langtypes.NumberOf(c.CurrentBeat), nil
	case name == "$bar" || name == "$currentBar":
		return langtypes.NumberOf(c.CurrentBar), nil
	case name == "$bpm" || name == "$tempo":
		return langtypes.NumberOf(c.BPM), nil
	case name == "$duration":
		return langtypes.NumberOf(c.BeatDuration), nil
	case name == "$position" || name == "$progress":
		return langtypes.NumberOf(c.Position), nil
	case name == "$sampleRate":
		return langtypes.NumberOf(float64(c.SampleRate)), nil
	case name == "$channels":
		return langtypes.NumberOf(float64(c.Channels)), nil
	case name == "$random" || name == "$random.float":
		return langtypes.NumberOf(c.randomFloat()), nil
	case name == "$random.noise":
		return langtypes.NumberOf(c.randomFloat()*2 - 1), nil
	case name == "$random.int":
		return langtypes.NumberOf(math.Round(c.randomFloat() * 100)), nil
	case name == "$random.bool":
		return langtypes.BooleanOf(c.randomFloat() >= 0.5), nil
	case strings.HasPrefix(name, "$random.range("):
		min, max, err := parseRandomRange(name)
		if err != nil {
			return langtypes.Null(), err
		}
		return langtypes.NumberOf(min + c.randomFloat()*(max-min)), nil
	case strings.HasPrefix(name, "$curve.") || strings.HasPrefix(name, "$ease."):
		spec, err := curve.Parse(name)
		if err != nil {
			return langtypes.Null(), err
		}
		return langtypes.NumberOf(curve.Evaluate(spec, c.Position)), nil
	default:
		return langtypes.Null(), fmt.Errorf("unknown special variable %q", name)
	}
}

func (c *Context) randomFloat() float64 {
	if c.rng == nil {
		return 0
	}
	return c.rng.Float64()
}

// parseRandomRange extracts "$random.range(min,max)"'s two numbers via
// substring-between-parens + comma-split, matching the original
// engine's parser rather than a regexp.
func parseRandomRange(name string) (float64, float64, error) {
	start := strings.Index(name, "(")
	end := strings.LastIndex(name, ")")
	if start < 0 || end < 0 || end <= start {
		return 0, 0, fmt.Errorf("malformed $random.range: %q", name)
	}
	parts := strings.Split(name[start+1:end], ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("$random.range requires exactly two arguments: %q", name)
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("$random.range min: %w", err)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("$random.range max: %w", err)
	}
	return min, max, nil
}
