package encoder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProducesCanonicalHeader(t *testing.T) {
	e := New(DefaultFormat())
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, []float32{0, 0.5, -0.5, 1}))

	data := buf.Bytes()
	require.True(t, len(data) >= 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, "data", string(data[36:40]))

	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])
	assert.Equal(t, uint16(2), channels)
	assert.Equal(t, uint32(44100), sampleRate)
	assert.Equal(t, uint16(16), bits)

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	assert.Equal(t, uint32(4*2), dataSize)
}

func TestWriteClampsOutOfRangeSamples(t *testing.T) {
	e := New(DefaultFormat())
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, []float32{2.0, -2.0}))
	data := buf.Bytes()[44:]
	first := int16(binary.LittleEndian.Uint16(data[0:2]))
	second := int16(binary.LittleEndian.Uint16(data[2:4]))
	assert.Equal(t, int16(32767), first)
	assert.Equal(t, int16(-32767), second)
}

func TestUnsupportedBitDepthErrors(t *testing.T) {
	e := New(Format{SampleRate: 44100, Channels: 1, BitsPerSample: 8})
	var buf bytes.Buffer
	err := e.Write(&buf, []float32{0})
	assert.Error(t, err)
}
