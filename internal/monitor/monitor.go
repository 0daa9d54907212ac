// Package monitor mirrors a render's progress out-of-band over OSC:
// start/end, beat/bar crossings and periodic render-progress pings.
// Nothing in the pipeline depends on a monitor being attached — it is a
// fire-and-forget sink a caller may point at a meter, a DAW bridge or a
// test spy.
//
// The address/parameter-list dispatch shape is adapted from a
// sendOSCMessage/OSCMessageConfig-style helper (one generic sender
// backing several named message constructors), repointed from
// playback state mirroring at render telemetry.
package monitor

import (
	"log"

	"github.com/hypebeast/go-osc/osc"
)

// Addresses mirrors the OSC address namespace this monitor emits.
const (
	AddressStart    = "/render/start"
	AddressEnd      = "/render/end"
	AddressBeat     = "/render/beat"
	AddressBar      = "/render/bar"
	AddressProgress = "/render/progress"
)

// Sink is anything that can send an OSC message, narrowed from
// *osc.Client so tests can substitute a recording fake without binding
// a real UDP socket.
type Sink interface {
	Send(msg osc.Packet) error
}

// Monitor owns an optional OSC sink. A nil client makes every method a
// no-op, matching an "if client == nil { return }"
// guard in sendOSCMessage.
type Monitor struct {
	client Sink
}

// New dials an OSC client at host:port, matching the usual
// osc.NewClient("localhost", oscPort) construction.
func New(host string, port int) *Monitor {
	return &Monitor{client: osc.NewClient(host, port)}
}

// Disabled returns a Monitor that discards every message, for renders
// run without telemetry.
func Disabled() *Monitor {
	return &Monitor{}
}

func (m *Monitor) send(address string, args ...interface{}) {
	if m == nil || m.client == nil {
		return
	}
	msg := osc.NewMessage(address)
	for _, a := range args {
		msg.Append(a)
	}
	if err := m.client.Send(msg); err != nil {
		log.Printf("monitor: error sending %s: %v", address, err)
	}
}

// Start announces the beginning of a render, naming the source file
// and its declared tempo.
func (m *Monitor) Start(sourceName string, bpm float64) {
	m.send(AddressStart, sourceName, float32(bpm))
}

// End announces a render's completion and its rendered duration.
func (m *Monitor) End(sourceName string, durationSeconds float64) {
	m.send(AddressEnd, sourceName, float32(durationSeconds))
}

// Beat mirrors a beat crossing at the given render time.
func (m *Monitor) Beat(beatIndex int, timeSeconds float64) {
	m.send(AddressBeat, int32(beatIndex), float32(timeSeconds))
}

// Bar mirrors a bar crossing at the given render time.
func (m *Monitor) Bar(barIndex int, timeSeconds float64) {
	m.send(AddressBar, int32(barIndex), float32(timeSeconds))
}

// Progress mirrors the mixdown/encode stage's fractional completion,
// 0..1.
func (m *Monitor) Progress(fraction float64) {
	m.send(AddressProgress, float32(fraction))
}
