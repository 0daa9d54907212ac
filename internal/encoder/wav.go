// Package encoder writes a rendered master buffer out as a WAV file,
// the output pipeline's only supported container. Non-WAV containers
// (MP3/FLAC/OGG/Opus) and MIDI export are not implemented, and no
// encoder interface for them exists; only the canonical 44-byte PCM
// WAV header is implemented here.
//
// The chunk layout mirrors the one github.com/go-audio/wav already
// decodes (a pipeline dependency via internal/sampleprovider), written
// by hand with encoding/binary the way github.com/go-audio/riff itself
// builds chunk headers internally — go-audio/wav ships no encoder, so
// there is no pack dependency that writes WAV for us to reuse.
package encoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Format describes the PCM layout a buffer is encoded with.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int // 16 or 24
}

// DefaultFormat matches the pipeline's internal working format: 44.1kHz
// stereo 16-bit PCM.
func DefaultFormat() Format {
	return Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
}

// Encoder writes float32 PCM frames (-1..1) out as a WAV file.
type Encoder struct {
	format Format
}

func New(format Format) *Encoder {
	return &Encoder{format: format}
}

// WriteFile encodes samples (interleaved per format.Channels) to path,
// truncating any existing file at path.
func (e *Encoder) WriteFile(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	defer f.Close()
	return e.Write(f, samples)
}

// Write encodes samples as a canonical 44-byte-header PCM WAV stream to
// w.
func (e *Encoder) Write(w io.Writer, samples []float32) error {
	bytesPerSample := e.format.BitsPerSample / 8
	dataSize := len(samples) * bytesPerSample
	blockAlign := e.format.Channels * bytesPerSample
	byteRate := e.format.SampleRate * blockAlign

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size (PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(e.format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(e.format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(e.format.BitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	buf := make([]byte, dataSize)
	switch e.format.BitsPerSample {
	case 16:
		for i, s := range samples {
			v := clampSample(s)
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
		}
	case 24:
		for i, s := range samples {
			v := int32(clampSample(s) * 8388607)
			off := i * 3
			buf[off] = byte(v)
			buf[off+1] = byte(v >> 8)
			buf[off+2] = byte(v >> 16)
		}
	default:
		return fmt.Errorf("unsupported bit depth %d", e.format.BitsPerSample)
	}

	_, err := w.Write(buf)
	return err
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
