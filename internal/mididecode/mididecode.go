// Package mididecode decodes standard MIDI files referenced by a Load
// statement into the Map{bpm,notes,type:"midi"} shape the Load
// operation produces, using gitlab.com/gomidi/midi/v2's smf reader.
package mididecode

import (
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/devalang/core/internal/langtypes"
)

// NoteEvent is one decoded note-on, paired with its note-off tick via
// DurationBeats once the matching note-off is seen.
type NoteEvent struct {
	TimeBeats float64
	Note      uint8
	Velocity  uint8
	DurationBeats float64
	Channel   uint8
}

// Decode reads a .mid/.midi file and returns its tempo (first Set Tempo
// meta event, defaulting to 120) and a flat, time-ordered note list.
func Decode(path string) (bpm float64, notes []NoteEvent, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := smf.ReadFrom(f)
	if err != nil {
		return 0, nil, fmt.Errorf("decode smf %s: %w", path, err)
	}

	bpm = 120
	ticksPerQuarter := float64(960)
	if tq, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ticksPerQuarter = float64(tq)
	}

	type pendingKey struct {
		channel, note uint8
	}
	type pendingNote struct {
		start float64
		vel   uint8
	}
	pending := make(map[pendingKey]pendingNote)
	tempoSeen := false

	for _, track := range s.Tracks {
		var absTicks uint32
		for _, ev := range track {
			absTicks += ev.Delta
			beats := float64(absTicks) / ticksPerQuarter

			var bpmVal float64
			if ev.Message.GetMetaTempo(&bpmVal) {
				if !tempoSeen {
					bpm = bpmVal
					tempoSeen = true
				}
				continue
			}

			var ch, key, vel uint8
			if ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
				pending[pendingKey{ch, key}] = pendingNote{start: beats, vel: vel}
				continue
			}
			isOff := ev.Message.GetNoteOff(&ch, &key, &vel)
			if !isOff {
				if ev.Message.GetNoteOn(&ch, &key, &vel) && vel == 0 {
					isOff = true
				}
			}
			if isOff {
				p, ok := pending[pendingKey{ch, key}]
				if !ok {
					continue
				}
				delete(pending, pendingKey{ch, key})
				notes = append(notes, NoteEvent{
					TimeBeats: p.start, Note: key, Velocity: p.vel, Channel: ch,
					DurationBeats: beats - p.start,
				})
			}
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].TimeBeats < notes[j].TimeBeats })
	return bpm, notes, nil
}

// ToValue renders a decoded file into the Load operation's result Map shape.
func ToValue(bpm float64, notes []NoteEvent) langtypes.Value {
	noteValues := make([]langtypes.Value, len(notes))
	for i, n := range notes {
		noteValues[i] = langtypes.MapOf(map[string]langtypes.Value{
			"time":     langtypes.NumberOf(n.TimeBeats),
			"note":     langtypes.NumberOf(float64(n.Note)),
			"velocity": langtypes.NumberOf(float64(n.Velocity)),
			"duration": langtypes.NumberOf(n.DurationBeats),
			"channel":  langtypes.NumberOf(float64(n.Channel)),
		})
	}
	return langtypes.MapOf(map[string]langtypes.Value{
		"bpm":   langtypes.NumberOf(bpm),
		"notes": langtypes.ArrayOf(noteValues),
		"type":  langtypes.StringOf("midi"),
	})
}
