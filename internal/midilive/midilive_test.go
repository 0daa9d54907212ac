package midilive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSender) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newFakeDevice() (*Device, *fakeSender) {
	fs := &fakeSender{}
	return &Device{out: fs, notesOn: make(map[uint8]uint8)}, fs
}

func TestDeviceNoteOnOffTracksState(t *testing.T) {
	d, fs := newFakeDevice()
	require.NoError(t, d.NoteOn(0, 60, 100))
	assert.Equal(t, 1, fs.count())
	require.NoError(t, d.NoteOff(0, 60))
	assert.Equal(t, 2, fs.count())
	assert.Empty(t, d.notesOn)
}

func TestDeviceCloseSendsNoteOffForActiveNotes(t *testing.T) {
	d, fs := newFakeDevice()
	require.NoError(t, d.NoteOn(0, 60, 100))
	require.NoError(t, d.Close())
	assert.Equal(t, 2, fs.count())
}

func TestPlayerRetriggerCancelsPreviousNoteOff(t *testing.T) {
	d, fs := newFakeDevice()
	p := NewPlayer(d, 0)
	p.Play(60, 100, 50*time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	p.Play(60, 100, 50*time.Millisecond) // retrigger before first off fires
	time.Sleep(70 * time.Millisecond)
	// two note-ons + exactly one note-off from the second (the first
	// was cancelled before its timer fired).
	assert.Equal(t, 3, fs.count())
}

func TestPlayerStopAllSilencesImmediately(t *testing.T) {
	d, fs := newFakeDevice()
	p := NewPlayer(d, 0)
	p.Play(60, 100, time.Second)
	p.StopAll()
	assert.Equal(t, 2, fs.count())
}
