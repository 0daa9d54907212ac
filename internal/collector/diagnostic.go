package collector

import "github.com/devalang/core/internal/statement"

// Severity classifies a Diagnostic's impact on the render.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Kind taxonomizes the diagnostic.
type Kind int

const (
	KindUndeclaredVariable Kind = iota
	KindConstReassignment
	KindUnresolvedTrigger
	KindUnknownEvent
	KindLoopCapExceeded
	KindMalformedArrowCall
	KindMissingBank
	KindRoutingCycle
	KindPluginError
)

// Diagnostic is the engine's uniform error/warning shape: a kind, a
// human message, the offending position, an optional fix suggestion
// and a severity — descriptive fmt.Errorf-style errors generalized
// into a structured type instead of a bare error string,
// since the collector must keep rendering past recoverable problems
// rather than aborting on the first one.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Pos        statement.Position
	Suggestion string
	Severity   Severity
}

func (d Diagnostic) Error() string {
	return d.Message
}
