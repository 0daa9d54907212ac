// Package collector implements the event collector: a
// statement-tree walker that owns the deterministic time cursor, the
// variable scope chain and control flow (loops/groups/spawns/events/
// functions/routing), producing a flat, time-ordered []AudioEvent
// timeline plus any diagnostics raised along the way.
//
// The cursor-accumulation walk generalizes a recursive cumulative-sum
// tree walk from a fixed tracker phrase/chain/track hierarchy to an
// arbitrary statement tree; the
// pass-loop/indefinite-loop semantics are pinned from the original
// engine's loop_impl.rs.
package collector

import (
	"context"
	"fmt"
	"log"
	"math"

	"strings"

	"github.com/devalang/core/internal/chord"
	"github.com/devalang/core/internal/events"
	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/mididecode"
	"github.com/devalang/core/internal/routing"
	"github.com/devalang/core/internal/specialvars"
	"github.com/devalang/core/internal/statement"
	"github.com/devalang/core/internal/vartable"
)

// BankResolver resolves a loaded bank's triggers into a trigger-name ->
// sample-URI map for a Bank statement's alias binding; implemented by
// sampleprovider.Filesystem.ResolveBankTriggers.
type BankResolver interface {
	ResolveBankTriggers(bankKey string) (map[string]string, error)
}

// MidiDecoder decodes a MIDI file referenced by a Load statement into a
// tempo and flat note list; implemented by mididecode.Decode.
type MidiDecoder func(path string) (bpm float64, notes []mididecode.NoteEvent, err error)

// SampleResolver loads a sample reference's decoded PCM, used to
// resolve an Auto or Identifier-kind Trigger duration from the
// referenced sample's own natural length; implemented by
// sampleprovider.Filesystem/sampleprovider.Provider.
type SampleResolver interface {
	Load(ref string) (routing.SampleBuffer, error)
}

// LogEntry is one Print statement's output, timestamped at the cursor
// position it executed at.
type LogEntry struct {
	TimeSeconds float64
	Message     string
}

const (
	maxLoopIterations     = 100_000
	indefiniteLoopTimeCap = 60.0 // seconds
	cursorEpsilon         = 1e-9
)

// Collector owns everything a statement-tree walk needs to flatten
// into a timeline.
type Collector struct {
	Vars      *vartable.Table
	Funcs     *vartable.FunctionTable
	Events    *events.Registry
	Special   *specialvars.Context
	Graph     *routing.Graph

	// Banks and DecodeMidi are optional collaborators a caller (normally
	// internal/engine) wires in before Run; left nil, Bank/Load
	// statements still bind an alias but without resolved trigger URIs.
	Banks      BankResolver
	DecodeMidi MidiDecoder
	Samples    SampleResolver

	// ctx is checked at the top of every statement dispatch; a canceled
	// context stops the walk immediately, leaving events/diagnostics/
	// logs collected so far intact rather than rolling them back.
	ctx       context.Context
	cancelled bool

	cursor      float64
	bpm         float64
	events_     []AudioEvent
	diagnostics []Diagnostic
	logs        []LogEntry

	activeSynth       string
	activeDestination string

	breakFlag     bool
	returnFlag    bool
	returnValue   langtypes.Value
	SuppressPrint bool

	// suppressBeatEmit is set for the duration of a pass-loop's body
	// execution (per spec.md §4.1/§4.5) so the body's own statement
	// dispatch doesn't re-enter the beat/bar crossing the loop's own
	// cursor advance already fired.
	suppressBeatEmit bool
}

// Logs returns every Print statement's output recorded so far, in
// execution order.
func (c *Collector) Logs() []LogEntry { return c.logs }

// New builds a Collector with a fresh root scope, bpm 120 and a graph
// seeded with the master bus.
func New() *Collector {
	return &Collector{
		Vars:              vartable.New(),
		Funcs:             vartable.NewFunctionTable(),
		Events:            events.New(),
		Special:           specialvars.New(120, 44100, 2, specialvars.SeedTime, 0),
		Graph:             routing.NewGraph(),
		bpm:               120,
		activeDestination: routing.MasterNode,
	}
}

// Run walks the top-level program and returns the flattened timeline.
// A nil ctx behaves like context.Background: the walk always runs to
// completion. A canceled ctx stops the walk between statements,
// returning whatever events/diagnostics/logs were collected up to that
// point rather than an error.
func (c *Collector) Run(ctx context.Context, program []statement.Statement) ([]AudioEvent, []Diagnostic, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.dispatch(events.Start, map[string]langtypes.Value{"bpm": langtypes.NumberOf(c.bpm)})
	c.walkBlock(program)
	c.dispatch(events.End, map[string]langtypes.Value{"timeSeconds": langtypes.NumberOf(c.cursor)})
	return c.events_, c.diagnostics, nil
}

func (c *Collector) warn(kind Kind, pos statement.Position, msg string) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Kind: kind, Message: msg, Pos: pos, Severity: SeverityWarning})
}

func (c *Collector) warnf(kind Kind, pos statement.Position, format string, args ...any) {
	c.warn(kind, pos, fmt.Sprintf(format, args...))
}

func (c *Collector) errorf(kind Kind, pos statement.Position, format string, args ...any) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, Severity: SeverityError,
	})
}

// walkBlock executes each statement of body in order against the
// collector's current scope, stopping early once a Break or Return has
// been raised so the remainder of the block is skipped during unwind.
func (c *Collector) walkBlock(body []statement.Statement) {
	for i := range body {
		if c.checkCancelled() {
			return
		}
		c.walkStatement(&body[i])
		if c.breakFlag || c.returnFlag || c.cancelled {
			return
		}
	}
}

// checkCancelled reports whether the host has requested cancellation,
// latching c.cancelled so every enclosing walkBlock on the call stack
// also unwinds rather than only the innermost one.
func (c *Collector) checkCancelled() bool {
	if c.cancelled {
		return true
	}
	if c.ctx != nil && c.ctx.Err() != nil {
		c.cancelled = true
		return true
	}
	return false
}

func (c *Collector) walkStatement(s *statement.Statement) {
	c.Special.UpdateTime(c.cursor)
	if !c.suppressBeatEmit {
		c.emitBeatBarCrossings()
	}

	switch s.Kind {
	case statement.KindTempo:
		if bpm, ok := s.Value.AsNumber(); ok && bpm > 0 {
			if len(s.Children) > 0 {
				// A scoped tempo change applies only to its body; the
				// outer bpm is restored on exit regardless of how the
				// body terminates (normal, break or return).
				outerBPM := c.bpm
				c.bpm = bpm
				c.Special.UpdateBPM(bpm)
				c.Events.Emit(events.TempoChange, map[string]langtypes.Value{"bpm": langtypes.NumberOf(bpm)}, c.cursor)
				c.runBranch(s.Children)
				c.bpm = outerBPM
				c.Special.UpdateBPM(outerBPM)
				c.Events.Emit(events.TempoChange, map[string]langtypes.Value{"bpm": langtypes.NumberOf(outerBPM)}, c.cursor)
			} else {
				c.bpm = bpm
				c.Special.UpdateBPM(bpm)
				c.Events.Emit(events.TempoChange, map[string]langtypes.Value{"bpm": langtypes.NumberOf(bpm)}, c.cursor)
			}
		}

	case statement.KindLet:
		_ = c.Vars.Declare(s.Name, c.resolveValue(s.Value), vartable.BindingLet)
	case statement.KindVar:
		_ = c.Vars.Declare(s.Name, c.resolveValue(s.Value), vartable.BindingVar)
	case statement.KindConst:
		if err := c.Vars.Declare(s.Name, c.resolveValue(s.Value), vartable.BindingConst); err != nil {
			c.errorf(KindConstReassignment, s.Pos, "%s", err)
		}

	case statement.KindAssign:
		if err := c.Vars.Assign(s.Name, c.resolveValue(s.Value)); err != nil {
			c.errorf(KindUndeclaredVariable, s.Pos, "%s", err)
		}

	case statement.KindSleep:
		ms := s.Value.Duration.Milliseconds(c.bpm)
		c.cursor += ms / 1000.0

	case statement.KindPrint:
		msg := c.resolveValue(s.Value).AsString()
		if c.SuppressPrint {
			c.logs = append(c.logs, LogEntry{TimeSeconds: c.cursor, Message: msg})
		} else {
			log.Print(msg)
		}

	case statement.KindUse:
		c.activeSynth = s.Name
	case statement.KindUsePlugin:
		c.activeSynth = s.Name

	case statement.KindTrigger:
		c.emitTrigger(s)

	case statement.KindArrowCall:
		c.emitArrowCall(s)

	case statement.KindGroup:
		// A Group is a declaration, not an execution: store it as a
		// zero-parameter function so Call/Spawn can invoke it later.
		c.Funcs.Declare(s.Name, vartable.FunctionDef{Body: s.Children, Scope: c.Vars})

	case statement.KindFunction:
		c.Funcs.Declare(s.Name, vartable.FunctionDef{Params: s.Params, Body: s.Children, Scope: c.Vars})

	case statement.KindCall:
		c.callFunction(s, false)
	case statement.KindSpawn:
		c.callFunction(s, true)

	case statement.KindLoop:
		c.execLoop(s)
	case statement.KindFor:
		c.execFor(s)
	case statement.KindIf:
		if s.Condition.Boolean {
			c.runBranch(s.Children)
		} else if len(s.Else) > 0 {
			c.runBranch(s.Else)
		}

	case statement.KindOn:
		c.Events.Register(events.Handler{EventName: s.EventName, Body: s.Children, Once: s.Once})
	case statement.KindEmit:
		c.execEmit(s)

	case statement.KindRoutingNode:
		c.Graph.DeclareNode(s.Name, s.Alias)
	case statement.KindRoutingFx:
		c.Graph.SetInsertEffects(s.Destination, toFloatParams(s.Effects))

	case statement.KindRoute:
		gain := 1.0
		if g, ok := s.Effects["gain"]; ok {
			gain, _ = g.AsNumber()
		}
		if routeWouldCycle(c.Graph, s.Source, s.Destination) {
			c.warnf(KindRoutingCycle, s.Pos, "routing %q -> %q closes a cycle; falling back to %s", s.Source, s.Destination, routing.MasterNode)
			c.Graph.EnsureNode(s.Source)
		} else {
			c.Graph.AddRoute(s.Source, s.Destination, gain)
		}
	case statement.KindDuck:
		c.Graph.AddDuck(s.Source, s.Destination, toFloatParams(s.Effects))
	case statement.KindSidechain:
		c.Graph.AddSidechain(s.Source, s.Destination, toFloatParams(s.Effects))

	case statement.KindBank:
		c.execBank(s)
	case statement.KindLoad:
		c.execLoad(s)
	case statement.KindBind:
		c.execBind(s)

	case statement.KindFxPipeline, statement.KindImport, statement.KindExport:
		// Module linking (Import/Export) and the FxPipeline stage-name
		// shorthand carry no statement tree semantics of their own beyond
		// §6's external boundaries; nothing in the hard core acts on them.

	case statement.KindBreak:
		c.breakFlag = true
	case statement.KindReturn:
		c.returnValue = c.resolveValue(s.Value)
		c.returnFlag = true
	}
}

// routeWouldCycle reports whether adding a source->destination route
// would close a loop: either directly (a node routed to itself) or by
// destination already transitively routing back into source.
func routeWouldCycle(g *routing.Graph, source, destination string) bool {
	if source == destination {
		return true
	}
	for _, n := range g.RouteChain(destination) {
		if n == source {
			return true
		}
	}
	return false
}

func toFloatParams(m map[string]langtypes.Value) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := v.AsNumber(); ok {
			out[k] = f
		}
	}
	return out
}

// runBranch executes body in a fresh child scope (so inner Let/Const
// bindings don't leak) and folds its events, diagnostics, cursor and
// control-flow flags straight back into c — unlike a loop or function
// body, an If branch is not a flag boundary: a Break/Return inside it
// must keep propagating to the enclosing loop/function.
func (c *Collector) runBranch(body []statement.Statement) {
	child := c.childScope()
	child.walkBlock(body)
	c.events_ = append(c.events_, child.events_[len(c.events_):]...)
	c.diagnostics = append(c.diagnostics, child.diagnostics[len(c.diagnostics):]...)
	c.logs = append(c.logs, child.logs[len(c.logs):]...)
	c.cursor = child.cursor
	c.breakFlag = child.breakFlag
	c.returnFlag = child.returnFlag
	c.returnValue = child.returnValue
	c.cancelled = child.cancelled
}

func (c *Collector) childScope() *Collector {
	child := *c
	child.Vars = c.Vars.Child()
	return &child
}

// resolveValue expands a $-prefixed special-variable identifier into
// its live value; any other value passes through unchanged, since
// expression evaluation otherwise happens upstream of the collector.
func (c *Collector) resolveValue(v langtypes.Value) langtypes.Value {
	if v.Kind == langtypes.KindIdentifier && specialvars.IsSpecialVar(v.Identifier) {
		if resolved, err := c.Special.Resolve(v.Identifier); err == nil {
			return resolved
		}
	}
	if v.Kind == langtypes.KindIdentifier {
		if bound, ok := c.Vars.Get(v.Identifier); ok {
			return bound
		}
	}
	return v
}

// execBank resolves a `bank publisher.name as alias` declaration: the
// alias is bound to a Map{trigger -> uri} plus the default per-trigger
// keys every bank entry carries.
func (c *Collector) execBank(s *statement.Statement) {
	m := make(map[string]langtypes.Value, 8)
	if c.Banks != nil {
		triggers, err := c.Banks.ResolveBankTriggers(s.Name)
		if err != nil {
			c.errorf(KindMissingBank, s.Pos, "%s", err)
		} else {
			for trig, uri := range triggers {
				m[trig] = langtypes.StringOf(uri)
			}
		}
	}
	m["volume"] = langtypes.NumberOf(1.0)
	m["gain"] = langtypes.NumberOf(1.0)
	m["pan"] = langtypes.NumberOf(0)
	m["detune"] = langtypes.NumberOf(0)
	m["type"] = langtypes.StringOf("trigger")

	alias := s.Alias
	if alias == "" {
		alias = s.Name
	}
	_ = c.Vars.Declare(alias, langtypes.MapOf(m), vartable.BindingLet)
}

// execLoad resolves a `load "source" as alias` declaration. A .mid/
// .midi source is decoded into a Map{bpm, notes, type:"midi"} result;
// anything else binds the alias to the source string
// itself so Trigger's identifier lookup can resolve it later.
func (c *Collector) execLoad(s *statement.Statement) {
	alias := s.Alias
	if alias == "" {
		alias = s.Name
	}
	if isMidiPath(s.Name) && c.DecodeMidi != nil {
		bpm, notes, err := c.DecodeMidi(s.Name)
		if err != nil {
			c.errorf(KindUnresolvedTrigger, s.Pos, "load %q: %s", s.Name, err)
			return
		}
		_ = c.Vars.Declare(alias, mididecode.ToValue(bpm, notes), vartable.BindingLet)
		return
	}
	_ = c.Vars.Declare(alias, langtypes.StringOf(s.Name), vartable.BindingLet)
}

func isMidiPath(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".mid") || strings.HasSuffix(lower, ".midi")
}

// execBind expands a bound MIDI file's decoded notes into Note events
// at their own timestamps (converted from beats via the bpm option
// override if given, else the decoded file's own bpm, else the current
// bpm), attaching them to the target synth and honoring velocity/
// transpose option overrides.
func (c *Collector) execBind(s *statement.Statement) {
	midiVal, ok := c.Vars.Get(s.Name)
	if !ok || midiVal.Kind != langtypes.KindMap {
		c.errorf(KindUndeclaredVariable, s.Pos, "bind source %q is not a loaded MIDI file", s.Name)
		return
	}
	notes := midiVal.Map["notes"]
	bpm := c.bpm
	if declared, ok := midiVal.Map["bpm"]; ok {
		if v, ok := declared.AsNumber(); ok && v > 0 {
			bpm = v
		}
	}
	if override, ok := s.Effects["bpm"]; ok {
		if v, ok := override.AsNumber(); ok && v > 0 {
			bpm = v
		}
	}
	velocityOverride, hasVelocityOverride := s.Effects["velocity"]
	transpose := 0.0
	if t, ok := s.Effects["transpose"]; ok {
		transpose, _ = t.AsNumber()
	}

	beatSeconds := 60.0 / bpm
	for _, nv := range notes.Array {
		note, _ := nv.Map["note"].AsNumber()
		timeBeats, _ := nv.Map["time"].AsNumber()
		durationBeats, _ := nv.Map["duration"].AsNumber()
		velocity, _ := nv.Map["velocity"].AsNumber()
		velocity /= 127.0
		if hasVelocityOverride {
			velocity, _ = velocityOverride.AsNumber()
		}

		c.emitAudioEvent(AudioEvent{
			Kind:        EventNote,
			TimeSeconds: timeBeats * beatSeconds,
			DurationMs:  durationBeats * beatSeconds * 1000.0,
			Notes:       []int{int(note + transpose)},
			Velocity:    velocity,
			Destination: c.activeDestination,
			SynthName:   s.Alias,
		})
	}
}

// resolveTriggerEntity resolves a Trigger statement's Name into the
// sample reference it plays: a "<alias>.<trigger>" path looks up alias
// in scope (bound by a Bank/Load statement to a Map{trigger:uri,...})
// and returns its trigger key; anything else — a bare path, an already
// resolved devalang:// URI, or an unbound alias — passes through
// unchanged so a plain sample path keeps working without a bound bank.
func (c *Collector) resolveTriggerEntity(name string) string {
	if strings.Contains(name, "://") {
		return name
	}
	alias, trig, ok := strings.Cut(name, ".")
	if !ok {
		return name
	}
	bound, ok := c.Vars.Get(alias)
	if !ok || bound.Kind != langtypes.KindMap {
		return name
	}
	if uri, ok := bound.Map[trig]; ok && uri.Kind == langtypes.KindString {
		return uri.String
	}
	return name
}

// resolveTriggerDurationSeconds resolves a Trigger's Duration to
// seconds: Milliseconds/Beats/BeatFraction resolve against bpm as
// usual; Auto resolves against ref's own natural sample length, and an
// Identifier-kind duration resolves against the named sample instead
// — per spec.md §3's Duration union and §4.1's Trigger semantics.
func (c *Collector) resolveTriggerDurationSeconds(d langtypes.Duration, ref string) float64 {
	switch d.Kind {
	case langtypes.DurationAuto:
		return c.naturalSampleLengthSeconds(ref)
	case langtypes.DurationIdentifier:
		return c.naturalSampleLengthSeconds(c.resolveTriggerEntity(d.IdentifierName))
	default:
		return d.Milliseconds(c.bpm) / 1000.0
	}
}

// naturalSampleLengthSeconds loads ref through the configured sample
// resolver and reports its playback length; left at 0 (no cursor
// advance) when no resolver is wired or the load fails, rather than
// failing the whole render over one unresolved Auto duration.
func (c *Collector) naturalSampleLengthSeconds(ref string) float64 {
	if c.Samples == nil {
		return 0
	}
	buf, err := c.Samples.Load(ref)
	if err != nil || buf.SampleRate == 0 {
		return 0
	}
	return float64(buf.Frames) / float64(buf.SampleRate)
}

// emitTrigger resolves the entity and duration a Trigger statement
// plays, records its Sample event, and advances the cursor by the
// resolved duration — matching the ground-truth original's
// `cursor_time += duration_secs` right after inserting the event.
func (c *Collector) emitTrigger(s *statement.Statement) {
	ref := c.resolveTriggerEntity(s.Name)
	durationSeconds := c.resolveTriggerDurationSeconds(s.Value.Duration, ref)
	velocity := 1.0
	if v, ok := s.Args["velocity"]; ok {
		velocity, _ = v.AsNumber()
	}
	c.emitAudioEvent(AudioEvent{
		Kind: EventSample, TimeSeconds: c.cursor, DurationMs: durationSeconds * 1000.0,
		Velocity: velocity, Destination: c.activeDestination,
		TriggerRef: ref, Effects: s.Args, SynthName: c.activeSynth,
	})
	c.cursor += durationSeconds
}

// emitArrowCall builds the chainable `target -> method(args) -> ...`
// context described in spec.md §1: note()/chord() set the event's
// pitches, every other named method sets a state key later read as a
// per-note effect parameter (gain, pan, detune, spread, ...).
func (c *Collector) emitArrowCall(s *statement.Statement) {
	effects := make(map[string]langtypes.Value)
	var notes []int
	notesSet := false

	for _, call := range s.ArrowCalls {
		switch call.Method {
		case "note":
			if len(call.Args) > 0 {
				if n, ok := noteArgToMIDI(call.Args[0]); ok {
					notes = []int{n}
					notesSet = true
				}
			}
		case "chord":
			if len(call.Args) > 0 {
				if ns, ok := chordArgToMIDI(call.Args[0]); ok {
					notes = ns
					notesSet = true
				}
			}
		default:
			if len(call.Args) > 0 {
				effects[call.Method] = call.Args[0]
			} else {
				effects[call.Method] = langtypes.BooleanOf(true)
			}
		}
	}

	if !notesSet {
		switch s.Value.Kind {
		case langtypes.KindNumber:
			notes = []int{int(s.Value.Number)}
		case langtypes.KindArray:
			for _, v := range s.Value.Array {
				if n, ok := v.AsNumber(); ok {
					notes = append(notes, int(n))
				}
			}
		case langtypes.KindString:
			if ns, ok := chordArgToMIDI(s.Value); ok {
				notes = ns
			}
		}
	}

	kind := EventNote
	if len(notes) > 1 {
		kind = EventChord
	}

	durationMs := s.Value.Duration.Milliseconds(c.bpm)
	if v, ok := effects["duration"]; ok {
		durationMs = durationValueToMs(v, c.bpm)
	}
	velocity := 1.0
	if v, ok := effects["velocity"]; ok {
		if n, ok := v.AsNumber(); ok {
			velocity = n
		}
	}
	destination := c.activeDestination
	if v, ok := effects["insert"]; ok && v.Kind == langtypes.KindString {
		destination = v.String
	}

	c.emitAudioEvent(AudioEvent{
		Kind: kind, TimeSeconds: c.cursor, DurationMs: durationMs, Notes: notes,
		Velocity: velocity, Destination: destination,
		Effects: effects, SynthName: c.activeSynth,
	})
}

// durationValueToMs resolves an arrow-call duration() argument: a
// Duration-kind value (the parser's representation of a unit-bearing
// literal like `1/4` or `2 beats`) resolves against bpm the same way
// Trigger's duration does; a bare number is a literal millisecond
// count, matching scenario S6's `duration(500)`.
func durationValueToMs(v langtypes.Value, bpm float64) float64 {
	if v.Kind == langtypes.KindDuration {
		return v.Duration.Milliseconds(bpm)
	}
	if n, ok := v.AsNumber(); ok {
		return n
	}
	return 0
}

// noteArgToMIDI resolves a note() arrow-call argument: a bare MIDI
// number passes through, a note name like "c4" or "F#3" resolves via
// the same root+octave table chord.ParseNotation anchors its chords
// against.
func noteArgToMIDI(v langtypes.Value) (int, bool) {
	if n, ok := v.AsNumber(); ok {
		return int(n), true
	}
	if v.Kind == langtypes.KindString {
		if midis, err := chord.NoteNamesToMIDI([]string{v.String}); err == nil && len(midis) == 1 {
			return midis[0], true
		}
	}
	return 0, false
}

// chordArgToMIDI resolves a chord() arrow-call argument: chord.ParseNotation
// handles a bare symbol like "Cmaj7" (spec.md §4 scenario S6); an array
// argument is either note names ("c4") or bare MIDI numbers.
func chordArgToMIDI(v langtypes.Value) ([]int, bool) {
	switch v.Kind {
	case langtypes.KindString:
		if notes, err := chord.ParseNotation(v.String); err == nil {
			return notes, true
		}
	case langtypes.KindArray:
		var names []string
		allNumbers := true
		for _, e := range v.Array {
			if e.Kind != langtypes.KindNumber {
				allNumbers = false
			}
		}
		if allNumbers {
			notes := make([]int, 0, len(v.Array))
			for _, e := range v.Array {
				notes = append(notes, int(e.Number))
			}
			return notes, true
		}
		for _, e := range v.Array {
			if e.Kind == langtypes.KindString {
				names = append(names, e.String)
			} else {
				names = append(names, e.AsString())
			}
		}
		if notes, err := chord.NoteNamesToMIDI(names); err == nil {
			return notes, true
		}
	}
	return nil, false
}

func (c *Collector) execEmit(s *statement.Statement) {
	c.dispatch(s.EventName, s.EmitData)
}

// dispatch emits name to the event registry and runs every handler
// whose pattern matches and whose Once gate allows it, in a fresh
// child scope folded back into c the same way runBranch folds a
// nested body back — shared by user Emit statements, live MIDI
// injection and the collector's own built-in lifecycle events
// (start/end/beat/bar/note.on/note.off).
func (c *Collector) dispatch(name string, data map[string]langtypes.Value) {
	matches := c.Events.Emit(name, data, c.cursor)
	for _, m := range matches {
		if !c.Events.ShouldExecute(m, name) {
			continue
		}
		child := c.childScope()
		child.walkBlock(m.Handler.Body)
		c.events_ = append(c.events_, child.events_[len(c.events_):]...)
		c.diagnostics = append(c.diagnostics, child.diagnostics[len(c.diagnostics):]...)
		c.logs = append(c.logs, child.logs[len(c.logs):]...)
		c.cursor = child.cursor
	}
}

// emitBeatBarCrossings fires the built-in beat/bar handlers at most
// once per integer beat/bar, per spec.md §4.5.
func (c *Collector) emitBeatBarCrossings() {
	beat, beatCrossed, bar, barCrossed := c.Special.BeatCrossing()
	if beatCrossed {
		c.dispatch(events.Beat, map[string]langtypes.Value{"beat": langtypes.NumberOf(float64(beat))})
	}
	if barCrossed {
		c.dispatch(events.Bar, map[string]langtypes.Value{"bar": langtypes.NumberOf(float64(bar))})
	}
}

// emitAudioEvent appends e to the timeline and fires the built-in
// note.on/note.off handlers around it (spec.md §4.1/§4.5 lists these
// alongside start/end/beat/bar as lifecycle events the collector
// fires automatically). The collector has no separate release-time
// scheduling of its own, so both fire synchronously at the point the
// event is collected rather than note.on at onset and note.off at a
// later cursor position.
func (c *Collector) emitAudioEvent(e AudioEvent) {
	c.events_ = append(c.events_, e)
	data := map[string]langtypes.Value{
		"timeSeconds": langtypes.NumberOf(e.TimeSeconds),
		"velocity":    langtypes.NumberOf(e.Velocity),
	}
	c.dispatch(events.NoteOn, data)
	c.dispatch(events.NoteOff, data)
}

// InjectMIDIEvent delivers a live MIDI note-on/note-off from an external
// device into this collector's event registry, per spec.md §9's
// `mapping.in.<device>.noteOn`/`noteOff` boundary: the core assumes no
// transport layer of its own, so a caller reading from a real MIDI input
// (or any other live source) calls this once per note event, and any
// `on "mapping.in.<device>.noteOn" { ... }` handler registered so far
// runs exactly as it would for a same-named Emit statement, at
// timestampSeconds rather than the walk's current cursor.
func (c *Collector) InjectMIDIEvent(device string, noteOn bool, note, velocity, channel uint8, timestampSeconds float64) {
	verb := "noteOff"
	if noteOn {
		verb = "noteOn"
	}
	name := fmt.Sprintf("mapping.in.%s.%s", device, verb)
	data := map[string]langtypes.Value{
		"note":     langtypes.NumberOf(float64(note)),
		"velocity": langtypes.NumberOf(float64(velocity)),
		"channel":  langtypes.NumberOf(float64(channel)),
	}
	c.cursor = timestampSeconds
	c.Special.UpdateTime(timestampSeconds)
	c.dispatch(name, data)
}

// execLoop implements Number/pass-Identifier/pass-Call/indefinite(Null)
// loop forms, resolving the cursor-advance ambiguity exactly
// as the original engine does: the cursor auto-advances by Interval
// only when the loop body itself left the cursor unchanged.
func (c *Collector) execLoop(s *statement.Statement) {
	switch {
	case s.Count.Kind == langtypes.KindNumber:
		n := int(s.Count.Number)
		if n > maxLoopIterations {
			c.warn(KindLoopCapExceeded, s.Pos, fmt.Sprintf("loop count %d exceeds cap, truncating", n))
			n = maxLoopIterations
		}
		for i := 0; i < n; i++ {
			if c.checkCancelled() {
				break
			}
			c.runLoopBody(s)
			if c.breakFlag {
				c.breakFlag = false
				break
			}
			if c.returnFlag || c.cancelled {
				break
			}
		}

	case isPassForm(s.Count):
		prevSuppress := c.suppressBeatEmit
		c.suppressBeatEmit = true
		i := 0
		for i < maxLoopIterations {
			if c.checkCancelled() {
				break
			}
			c.runLoopBody(s)
			if c.breakFlag {
				c.breakFlag = false
				break
			}
			if c.returnFlag || c.cancelled {
				break
			}
			i++
		}
		c.suppressBeatEmit = prevSuppress

	case s.Count.IsNull():
		elapsed := 0.0
		i := 0
		for i < maxLoopIterations && elapsed < indefiniteLoopTimeCap {
			if c.checkCancelled() {
				break
			}
			before := c.cursor
			c.runLoopBody(s)
			if c.breakFlag {
				c.breakFlag = false
				break
			}
			if c.returnFlag || c.cancelled {
				break
			}
			if math.Abs(c.cursor-before) < cursorEpsilon {
				break
			}
			elapsed += c.cursor - before
			i++
		}
	}
}

func isPassForm(v langtypes.Value) bool {
	if v.Kind == langtypes.KindIdentifier && v.Identifier == "pass" {
		return true
	}
	// Call{name:"pass",...} is modeled as a Map with a "call" key in
	// the absence of an expression-evaluator stage; both forms suppress
	// per-iteration beat emission the same way.
	if v.Kind == langtypes.KindMap {
		if name, ok := v.Map["call"]; ok && name.Identifier == "pass" {
			return true
		}
	}
	return false
}

func (c *Collector) runLoopBody(s *statement.Statement) {
	before := c.cursor
	child := c.childScope()
	child.walkBlock(s.Children)
	c.events_ = append(c.events_, child.events_[len(c.events_):]...)
	c.diagnostics = append(c.diagnostics, child.diagnostics[len(c.diagnostics):]...)
	c.logs = append(c.logs, child.logs[len(c.logs):]...)
	c.cursor = child.cursor
	c.breakFlag = child.breakFlag
	c.returnFlag = child.returnFlag
	c.returnValue = child.returnValue
	c.cancelled = child.cancelled

	if math.Abs(c.cursor-before) < cursorEpsilon {
		c.cursor += s.Interval.Milliseconds(c.bpm) / 1000.0
	}
}

func (c *Collector) execFor(s *statement.Statement) {
	items := s.Iterable.Array
	if s.Iterable.Kind == langtypes.KindIdentifier {
		if bound, ok := c.Vars.Get(s.Iterable.Identifier); ok {
			items = bound.Array
		}
	}
	old, hadOld := c.Vars.Get(s.Binding)
	for _, item := range items {
		_ = c.Vars.Declare(s.Binding, item, vartable.BindingVar)
		child := c.childScope()
		child.walkBlock(s.Children)
		c.events_ = append(c.events_, child.events_[len(c.events_):]...)
		c.diagnostics = append(c.diagnostics, child.diagnostics[len(c.diagnostics):]...)
		c.logs = append(c.logs, child.logs[len(c.logs):]...)
		c.cursor = child.cursor
		c.cancelled = child.cancelled
		if child.breakFlag {
			break
		}
		if child.returnFlag {
			c.returnFlag = true
			c.returnValue = child.returnValue
			break
		}
		if child.cancelled {
			break
		}
	}
	c.Vars.Remove(s.Binding)
	if hadOld {
		_ = c.Vars.Declare(s.Binding, old, vartable.BindingVar)
	}
}

func (c *Collector) callFunction(s *statement.Statement, spawn bool) {
	def, ok := c.Funcs.Get(s.Name)
	if !ok {
		c.errorf(KindUndeclaredVariable, s.Pos, "call to undeclared function %q", s.Name)
		return
	}
	frame := c.childScope()
	frame.Vars = def.Scope.Child()
	for i, param := range def.Params {
		var arg langtypes.Value
		if i < len(s.CallArgs) {
			arg = s.CallArgs[i]
		}
		_ = frame.Vars.Declare(param, arg, vartable.BindingLet)
	}
	frame.breakFlag = false
	frame.returnFlag = false
	frame.walkBlock(def.Body)

	// frame started as a copy of c, so its events_/diagnostics slices
	// already hold everything c had; only the tail grown during the
	// call belongs to this invocation.
	newEvents := frame.events_[len(c.events_):]
	newDiagnostics := frame.diagnostics[len(c.diagnostics):]
	newLogs := frame.logs[len(c.logs):]
	c.logs = append(c.logs, newLogs...)

	// A Return inside the function body unwinds only this frame: bind
	// its value into the caller's scope as __return and do not let
	// break/return flags escape past the call boundary.
	if frame.returnFlag {
		_ = c.Vars.Declare("__return", frame.returnValue, vartable.BindingVar)
	}
	c.cancelled = frame.cancelled

	if spawn {
		// A spawned block runs on its own independent cursor branch: its
		// events are folded into the shared timeline at the times it
		// computed, but it does not advance the caller's cursor.
		c.events_ = append(c.events_, newEvents...)
		c.diagnostics = append(c.diagnostics, newDiagnostics...)
		return
	}
	c.events_ = append(c.events_, newEvents...)
	c.diagnostics = append(c.diagnostics, newDiagnostics...)
	c.cursor = frame.cursor
}
