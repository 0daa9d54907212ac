package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLinear(t *testing.T) {
	assert.Equal(t, 0.5, Evaluate(Spec{Kind: Linear}, 0.5))
}

func TestEvaluateEaseInOutEndpoints(t *testing.T) {
	assert.InDelta(t, 0.0, Evaluate(Spec{Kind: EaseInOut}, 0), 1e-9)
	assert.InDelta(t, 1.0, Evaluate(Spec{Kind: EaseInOut}, 1), 1e-9)
}

func TestEvaluateStep(t *testing.T) {
	assert.Equal(t, 0.5, Evaluate(Spec{Kind: Step, Steps: 4}, 0.6))
}

func TestBezierEndpoints(t *testing.T) {
	s := Spec{Kind: Bezier, X1: 0.25, Y1: 0.1, X2: 0.25, Y2: 1.0}
	assert.InDelta(t, 0.0, Evaluate(s, 0), 0.01)
	assert.InDelta(t, 1.0, Evaluate(s, 1), 0.01)
}

func TestParseCurveReference(t *testing.T) {
	s, err := Parse("$curve.bounce(2)")
	require.NoError(t, err)
	assert.Equal(t, Bounce, s.Kind)
	assert.Equal(t, 2.0, s.Intensity)
}

func TestParseEaseReference(t *testing.T) {
	s, err := Parse("$ease.inOut")
	require.NoError(t, err)
	assert.Equal(t, EaseInOut, s.Kind)
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("$curve.nonsense()")
	assert.Error(t, err)
}
