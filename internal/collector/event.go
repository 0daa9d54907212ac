package collector

import "github.com/devalang/core/internal/langtypes"

// AudioEventKind tags the flattened event union the collector produces.
type AudioEventKind int

const (
	EventNote AudioEventKind = iota
	EventChord
	EventSample
)

// AudioEvent is one flattened, time-stamped render instruction — the
// collector's entire output is a slice of these, consumed by the voice
// renderer and routing graph.
type AudioEvent struct {
	Kind        AudioEventKind
	TimeSeconds float64
	DurationMs  float64
	Notes       []int // single note (len 1) or chord tones (len >1)
	Velocity    float64
	Destination string // routing graph node this event targets
	TriggerRef  string // EventSample: bank/sample path or devalang:// uri
	Effects     map[string]langtypes.Value
	SynthName   string // names the active `use`/arrow-call synth definition
}
