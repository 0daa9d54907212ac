// Package music converts MIDI note numbers into human-readable pitch
// names for render diagnostics and logging.
package music

import "fmt"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// MidiToNoteName renders a MIDI note number (0-127) as standard pitch
// notation, e.g. "C4" (MIDI 60) or "A0" (MIDI 21). Octave numbering
// follows the MIDI convention where note 12 is C0. Out-of-range input
// returns "?" rather than panicking, since this only ever feeds a log
// line.
func MidiToNoteName(midiNote int) string {
	if midiNote < 0 || midiNote > 127 {
		return "?"
	}
	octave := midiNote/12 - 1
	return fmt.Sprintf("%s%d", noteNames[midiNote%12], octave)
}
