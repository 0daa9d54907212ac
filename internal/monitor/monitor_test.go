package monitor

import (
	"testing"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	addresses []string
}

func (f *fakeSink) Send(msg osc.Packet) error {
	m, ok := msg.(*osc.Message)
	if ok {
		f.addresses = append(f.addresses, m.Address)
	}
	return nil
}

func TestDisabledMonitorIsNoOp(t *testing.T) {
	m := Disabled()
	assert.NotPanics(t, func() {
		m.Start("song.deva", 120)
		m.End("song.deva", 4.5)
		m.Beat(3, 1.5)
		m.Bar(1, 2.0)
		m.Progress(0.5)
	})
}

func TestMonitorSendsExpectedAddresses(t *testing.T) {
	sink := &fakeSink{}
	m := &Monitor{client: sink}

	m.Start("song.deva", 120)
	m.Beat(0, 0)
	m.Bar(0, 0)
	m.Progress(1.0)
	m.End("song.deva", 2.0)

	require.Len(t, sink.addresses, 5)
	assert.Equal(t, []string{AddressStart, AddressBeat, AddressBar, AddressProgress, AddressEnd}, sink.addresses)
}
