package langtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAsNumber(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want float64
		ok   bool
	}{
		{"number passthrough", NumberOf(3.5), 3.5, true},
		{"true is one", BooleanOf(true), 1, true},
		{"false is zero", BooleanOf(false), 0, true},
		{"numeric string", StringOf("42"), 42, true},
		{"non numeric string", StringOf("bass"), 0, false},
		{"null", Null(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.AsNumber()
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDurationMilliseconds(t *testing.T) {
	assert.Equal(t, 500.0, MillisecondsDuration(500).Milliseconds(120))
	assert.Equal(t, 2000.0, BeatsDuration(4).Milliseconds(120))
	assert.Equal(t, 125.0, BeatFractionDuration(1, 4).Milliseconds(120))
	assert.Equal(t, 0.0, AutoDuration().Milliseconds(120))
}

func TestValueAsString(t *testing.T) {
	assert.Equal(t, "true", BooleanOf(true).AsString())
	assert.Equal(t, "kick", StringOf("kick").AsString())
	assert.Equal(t, "null", Null().AsString())
}
