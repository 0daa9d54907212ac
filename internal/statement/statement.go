// Package statement defines the audio-executable statement tree that
// internal/collector walks. Lexing and parsing a .deva source file into
// this tree is out of scope here — this package only fixes the shape a
// parser is assumed to already have produced.
package statement

import "github.com/devalang/core/internal/langtypes"

// Kind identifies the statement variant as an int-based enum, one
// constant per node kind.
type Kind int

const (
	KindTempo Kind = iota
	KindLet
	KindVar
	KindConst
	KindBank
	KindLoad
	KindUse
	KindUsePlugin
	KindTrigger
	KindSleep
	KindPrint
	KindCall
	KindSpawn
	KindFunction
	KindLoop
	KindFor
	KindIf
	KindReturn
	KindBreak
	KindGroup
	KindOn
	KindEmit
	KindArrowCall
	KindAssign
	KindRoutingNode
	KindRoutingFx
	KindRoute
	KindDuck
	KindSidechain
	KindBind
	KindFxPipeline
	KindImport
	KindExport
)

// Position is the source location a diagnostic should point at. Parsing
// is out of scope, but the tree still carries positions so diagnostics
// can cite a line/column the way the original source would have
// reported it.
type Position struct {
	Line   int
	Column int
	File   string
}

// ArrowCall is a "value -> method(args)" chained transform, e.g.
// `note("c4") -> detune(12) -> gain(0.8)`.
type ArrowCall struct {
	Method string
	Args   []langtypes.Value
}

// Statement is one node of the executable tree. Only the fields
// relevant to Kind are populated; this follows the common Go habit of
// one large struct with a discriminant rather than a Go
// interface-per-node hierarchy,
// which keeps the collector's switch simple and allocation-free.
type Statement struct {
	Kind Kind
	Pos  Position

	// Identifier-bearing statements: Let/Var/Const/Bank/Load/Use/
	// UsePlugin/Function/Group/On/Call/Spawn/Bind/Import/Export name
	// the thing being declared/referenced.
	Name string
	// Alias covers `use "x" as y` / `load "x" as y` forms; Bind reuses
	// it for the `bind source to target` target name, and Effects for
	// its velocity/bpm/transpose option overrides.
	Alias string

	// Value-bearing statements: Let/Var/Const/Assign/Trigger(duration)/
	// Sleep/Tempo carry a literal or expression value. Expression
	// evaluation itself happens upstream of the collector; by the time
	// the tree reaches it, Value is already resolved except for
	// special-variable references which resolve per-event.
	Value langtypes.Value

	// Trigger: Name is the bank/sample trigger path; Args carries
	// per-trigger effect-key overrides (gain, pan, ...).
	Args map[string]langtypes.Value

	// ArrowCalls chains zero or more transforms applied after Value is
	// established. Only ArrowCall statements read it; the collector
	// ignores it on every other kind.
	ArrowCalls []ArrowCall

	// Children holds nested statements for Group/Function/Loop/For/If/
	// On/Spawn bodies and the If/Else branches (Children = then-branch,
	// Else = else-branch).
	Children []Statement
	Else     []Statement

	// Loop: Count is the loop-count expression (Number, Identifier
	// "pass", Call{pass,args} encoded as Value, or Null meaning
	// indefinite). Interval is the per-iteration advance duration.
	Count    langtypes.Value
	Interval langtypes.Duration

	// For: Iterable is the bound array/range identifier or literal,
	// Binding is the loop variable name.
	Iterable langtypes.Value
	Binding  string

	// If: Condition holds the already-evaluated boolean guard.
	Condition langtypes.Value

	// Function/Spawn/Call: Params names formal parameters; CallArgs are
	// positional arguments for a Call/Spawn.
	Params   []string
	CallArgs []langtypes.Value

	// On/Emit: EventName is the handler's pattern (glob) or the emitted
	// event's literal name; Once marks `on event:once`.
	EventName string
	Once      bool
	EmitData  map[string]langtypes.Value

	// Routing (+RoutingNode/RoutingFx/Duck/Sidechain): Source/Destination
	// name the graph nodes (RoutingNode uses Name/Alias instead, since it
	// declares rather than connects; RoutingFx uses Destination as the
	// target insert); Effects carries the effect map (gain, threshold,
	// ratio, attack, release, drive, reverb, delay, ...).
	Source      string
	Destination string
	Effects     map[string]langtypes.Value

	// FxPipeline: ordered effect stage names applied to Destination.
	Stages []string
}
