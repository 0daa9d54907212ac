package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/devalang/core/internal/collector"
	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/routing"
	"github.com/devalang/core/internal/statement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct{}

func (fakeProvider) Load(ref string) (routing.SampleBuffer, error) {
	data := make([]float32, 441)
	for i := range data {
		data[i] = 0.25
	}
	return routing.SampleBuffer{Data: data, Frames: len(data), Channels: 1, SampleRate: 44100}, nil
}

func TestRenderProducesWAVFile(t *testing.T) {
	program := []statement.Statement{
		{Kind: statement.KindTempo, Value: langtypes.NumberOf(120)},
		{
			Kind: statement.KindArrowCall,
			Value: langtypes.NumberOf(60),
			ArrowCalls: []statement.ArrowCall{
				{Method: "gain", Args: []langtypes.Value{langtypes.NumberOf(0.8)}},
			},
		},
		sleepFor(250),
		{Kind: statement.KindTrigger, Name: "kick", Value: langtypes.DurationOf(langtypes.MillisecondsDuration(200))},
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	opts := DefaultOptions(out)
	opts.Samples = fakeProvider{}

	result, diags, err := Render(context.Background(), program, opts)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Greater(t, result.FrameCount, 0)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44))
}

func TestRenderReportsDiagnosticForMissingProvider(t *testing.T) {
	program := []statement.Statement{
		{Kind: statement.KindTrigger, Name: "kick", Value: langtypes.DurationOf(langtypes.MillisecondsDuration(100))},
	}
	out := filepath.Join(t.TempDir(), "out.wav")
	opts := DefaultOptions(out)

	_, diags, err := Render(context.Background(), program, opts)
	require.NoError(t, err)
	require.Len(t, diags, 1)
}

func TestChordSpreadWidensStereoImage(t *testing.T) {
	opts := DefaultOptions("")
	chord := func(spread float64) collector.AudioEvent {
		return collector.AudioEvent{
			Kind:        collector.EventChord,
			Notes:       []int{60, 64, 67, 71},
			DurationMs:  500,
			Velocity:    1.0,
			Destination: routing.MasterNode,
			Effects:     map[string]langtypes.Value{"spread": langtypes.NumberOf(spread)},
		}
	}

	narrow, err := renderEvent(opts, chord(0))
	require.NoError(t, err)
	wide, err := renderEvent(opts, chord(1.0))
	require.NoError(t, err)

	assert.Less(t, stereoCorrelation(wide.Data), stereoCorrelation(narrow.Data))
}

// stereoCorrelation is a cheap inter-channel correlation proxy: the sum
// of L*R over the buffer, normalized by the sum of L*L. A fully
// centered (mono-summed-to-both-channels) signal has L==R everywhere,
// so this equals the buffer's own energy; panning pulls L and R apart
// and the ratio drops below 1.
func stereoCorrelation(interleaved []float32) float64 {
	var cross, energy float64
	for i := 0; i+1 < len(interleaved); i += 2 {
		l, r := float64(interleaved[i]), float64(interleaved[i+1])
		cross += l * r
		energy += l * l
	}
	if energy == 0 {
		return 0
	}
	return cross / energy
}

func sleepFor(ms float64) statement.Statement {
	return statement.Statement{Kind: statement.KindSleep, Value: langtypes.DurationOf(langtypes.MillisecondsDuration(ms))}
}
