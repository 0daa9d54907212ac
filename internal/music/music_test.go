package music

import "testing"

func TestMidiToNoteName(t *testing.T) {
	tests := []struct {
		name     string
		midiNote int
		expected string
	}{
		{"MIDI 60 is C4", 60, "C4"},
		{"MIDI 61 is C#4", 61, "C#4"},
		{"MIDI 21 is A0", 21, "A0"},
		{"MIDI 0 is C-1", 0, "C-1"},
		{"MIDI 12 is C0", 12, "C0"},
		{"MIDI 127 is G9", 127, "G9"},
		{"MIDI 69 is A4 (concert pitch)", 69, "A4"},
		{"MIDI 24 is C1", 24, "C1"},
		{"MIDI -1 is invalid", -1, "?"},
		{"MIDI 128 is invalid", 128, "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MidiToNoteName(tt.midiNote)
			if result != tt.expected {
				t.Errorf("MidiToNoteName(%d) = %q, expected %q", tt.midiNote, result, tt.expected)
			}
		})
	}
}

func TestMidiToNoteNameCoversFullOctave(t *testing.T) {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	for i, want := range names {
		got := MidiToNoteName(60 + i)
		if got != want+"4" {
			t.Errorf("MidiToNoteName(%d) = %q, expected %q", 60+i, got, want+"4")
		}
	}
}
