// Package midilive implements live MIDI device output and the
// cancellable overlapping-note tracking a Bind/`mapping.in.*` output
// boundary needs, adapted from a guarded-map note-lifecycle idiom
// (GlobalMidiState singleton, per-note cancellable note-off timers) and
// a MIDI-connector style of device name resolution and raw note-on/off
// I/O.
package midilive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// sender is the narrow slice of drivers.Out this package depends on,
// kept as an interface so Player's note-lifecycle logic can be tested
// without a real MIDI backend.
type sender interface {
	Send([]byte) error
	Close() error
}

// Device wraps a live MIDI output port, tracking which notes are
// currently sounding so Close can send matching note-offs.
type Device struct {
	mu      sync.Mutex
	name    string
	out     sender
	notesOn map[uint8]uint8 // note -> channel
}

// Open resolves name against the system's available MIDI out ports and
// opens it, taking the first port that matches name case-insensitively,
// then the first that starts with it, then the first that contains it.
func Open(name string) (*Device, error) {
	resolved, err := resolveName(name)
	if err != nil {
		return nil, err
	}
	out, err := midi.FindOutPort(resolved)
	if err != nil {
		return nil, fmt.Errorf("find out port %q: %w", resolved, err)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", resolved, err)
	}
	return &Device{name: resolved, out: out, notesOn: make(map[uint8]uint8)}, nil
}

func resolveName(name string) (string, error) {
	names := Devices()
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(name)) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("no MIDI output matches %q", name)
}

func Devices() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

func (d *Device) NoteOn(channel, note, velocity uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.out.Send([]byte{0x90 | channel, note, velocity}); err != nil {
		return fmt.Errorf("note on: %w", err)
	}
	d.notesOn[note] = channel
	return nil
}

func (d *Device) NoteOff(channel, note uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.out.Send([]byte{0x80 | channel, note, 0}); err != nil {
		return fmt.Errorf("note off: %w", err)
	}
	delete(d.notesOn, note)
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	for note, ch := range d.notesOn {
		_ = d.out.Send([]byte{0x80 | ch, note, 0})
	}
	d.notesOn = make(map[uint8]uint8)
	d.mu.Unlock()
	return d.out.Close()
}

// NoteHandle lets the caller cancel an in-flight scheduled note-off
// (needed when the same pitch retriggers before its natural release).
type NoteHandle struct {
	Note   uint8
	Cancel context.CancelFunc
}

// Player schedules a note-on followed by a cancellable, delayed
// note-off, matching a scheduled-cancel note-lifecycle pattern.
type Player struct {
	mu      sync.Mutex
	device  *Device
	channel uint8
	active  map[uint8]context.CancelFunc
}

func NewPlayer(device *Device, channel uint8) *Player {
	return &Player{device: device, channel: channel, active: make(map[uint8]context.CancelFunc)}
}

// Play triggers note for duration, cancelling any previously scheduled
// note-off for the same pitch so overlapping retriggers don't clip
// each other's release early.
func (p *Player) Play(note, velocity uint8, duration time.Duration) {
	p.mu.Lock()
	if cancel, ok := p.active[note]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.active[note] = cancel
	p.mu.Unlock()

	_ = p.device.NoteOn(p.channel, note, velocity)

	go func() {
		select {
		case <-time.After(duration):
			_ = p.device.NoteOff(p.channel, note)
		case <-ctx.Done():
		}
		p.mu.Lock()
		if p.active[note] != nil {
			delete(p.active, note)
		}
		p.mu.Unlock()
	}()
}

// StopAll cancels every scheduled note-off and silences all active
// notes immediately.
func (p *Player) StopAll() {
	p.mu.Lock()
	for note, cancel := range p.active {
		cancel()
		_ = p.device.NoteOff(p.channel, note)
	}
	p.active = make(map[uint8]context.CancelFunc)
	p.mu.Unlock()
}

