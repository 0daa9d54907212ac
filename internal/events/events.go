// Package events implements the On/Emit event registry: handler
// registration, glob-pattern dispatch and once-tracking. Semantics —
// including the glob matcher and the once-key convention — are pinned
// from the original engine's event registry, restated in Go idiom; its
// own unit tests are used as the behavioral spec for this package's
// tests.
package events

import (
	"fmt"

	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/statement"
)

// Builtin event names the engine itself emits during a render.
const (
	Beat        = "beat"
	Bar         = "bar"
	Start       = "start"
	End         = "end"
	TempoChange = "tempo.change"
	NoteOn      = "note.on"
	NoteOff     = "note.off"
)

// Handler is one registered `on "pattern" { ... }` body.
type Handler struct {
	EventName string
	Body      []statement.Statement
	Once      bool
}

// Payload is carried to a handler body's implicit `$event` binding.
type Payload struct {
	EventName string
	Data      map[string]langtypes.Value
	Timestamp float64
}

// Registry owns handler registration, emission and once-tracking for a
// single render.
type Registry struct {
	handlers     []Handler
	emitted      []Payload
	executedOnce map[string]bool
}

func New() *Registry {
	return &Registry{executedOnce: make(map[string]bool)}
}

// Register adds a handler and returns its index, used to build the
// once-tracking key.
func (r *Registry) Register(h Handler) int {
	r.handlers = append(r.handlers, h)
	return len(r.handlers) - 1
}

// Emit records an emitted event for later inspection (tests, telemetry)
// and returns the handlers whose pattern matches name, each paired with
// its registry index so the caller can honor Once semantics.
func (r *Registry) Emit(name string, data map[string]langtypes.Value, timestamp float64) []HandlerMatch {
	r.emitted = append(r.emitted, Payload{EventName: name, Data: data, Timestamp: timestamp})
	return r.matching(name)
}

// HandlerMatch pairs a matched handler with its stable registry index.
type HandlerMatch struct {
	Index   int
	Handler Handler
}

func (r *Registry) matching(name string) []HandlerMatch {
	var out []HandlerMatch
	for i, h := range r.handlers {
		if patternMatches(h.EventName, name) {
			out = append(out, HandlerMatch{Index: i, Handler: h})
		}
	}
	return out
}

// ShouldExecute reports whether a matched handler is allowed to run
// this time: always true for non-Once handlers; true exactly once per
// (event name emitted, handler index) pair for Once handlers.
func (r *Registry) ShouldExecute(m HandlerMatch, emittedName string) bool {
	if !m.Handler.Once {
		return true
	}
	key := onceKey(emittedName, m.Index)
	if r.executedOnce[key] {
		return false
	}
	r.executedOnce[key] = true
	return true
}

func onceKey(eventName string, handlerIndex int) string {
	return fmt.Sprintf("%s:%d", eventName, handlerIndex)
}

// Emitted returns every payload emitted so far, for diagnostics/tests.
func (r *Registry) Emitted() []Payload { return r.emitted }

// Clear resets all registry state (handlers, emissions, once-tracking).
func (r *Registry) Clear() {
	r.handlers = nil
	r.emitted = nil
	r.executedOnce = make(map[string]bool)
}

// patternMatches implements the `*`/`?` glob used by On handler
// patterns against emitted event names: `*` matches any run of
// characters (including empty), `?` matches exactly one character.
func patternMatches(pattern, name string) bool {
	return matchHere([]rune(pattern), []rune(name))
}

func matchHere(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '*':
		// Try consuming zero or more characters of name.
		for i := 0; i <= len(name); i++ {
			if matchHere(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(name) == 0 {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	default:
		if len(name) == 0 || pattern[0] != name[0] {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	}
}
