// Package chord builds MIDI interval sets from either an instrument
// track's chord-column encoding (root/type/addition/transposition,
// adapted from the tracker's own types.GetChordNotes) or from
// arrow-call chord notation like "Cmaj7" (root+accidental extraction
// then a quality-suffix table, pinned from the original engine's
// chord-notation parser).
package chord

import (
	"fmt"
	"strconv"
	"strings"
)

// Type mirrors the tracker's ChordType enum for the encoded column
// form: root + triad/seventh quality.
type Type int

const (
	Major Type = iota
	Minor
	Diminished
	Augmented
)

// Addition mirrors the tracker's ChordAddition enum: extra scale-degree
// notes layered onto the base triad.
type Addition int

const (
	NoAddition Addition = iota
	Add7
	Add9
	Add4
)

// Transposition mirrors the tracker's ChordTransposition enum: octave
// rotation of chord tones (spreading a close-voiced triad wider).
type Transposition int

const (
	NoTransposition Transposition = iota
	Transpose1
	Transpose2
)

// Notes builds the MIDI interval set for an encoded chord column,
// generalized from the tracker's types.GetChordNotes: a triad from
// Type, an optional extra degree from Addition, then octave rotation
// from Transposition.
func Notes(root int, t Type, add Addition, transpose Transposition) []int {
	var intervals []int
	switch t {
	case Minor:
		intervals = []int{0, 3, 7}
	case Diminished:
		intervals = []int{0, 3, 6}
	case Augmented:
		intervals = []int{0, 4, 8}
	default:
		intervals = []int{0, 4, 7}
	}

	switch add {
	case Add7:
		intervals = append(intervals, 10)
	case Add9:
		intervals = append(intervals, 14)
	case Add4:
		intervals = append(intervals, 5)
	}

	notes := make([]int, len(intervals))
	for i, iv := range intervals {
		notes[i] = root + iv
	}

	switch transpose {
	case Transpose1:
		if len(notes) > 0 {
			notes[0] += 12
		}
	case Transpose2:
		if len(notes) > 1 {
			notes[0] += 12
			notes[1] += 12
		}
	}
	return notes
}

// qualityIntervals is the suffix-to-interval-set table pinned from the
// original engine's chord-notation parser.
var qualityIntervals = map[string][]int{
	"":     {0, 4, 7},
	"maj":  {0, 4, 7},
	"m":    {0, 3, 7},
	"min":  {0, 3, 7},
	"dim":  {0, 3, 6},
	"aug":  {0, 4, 8},
	"sus2": {0, 2, 7},
	"sus4": {0, 5, 7},
	"7":    {0, 4, 7, 10},
	"dom7": {0, 4, 7, 10},
	"maj7": {0, 4, 7, 11},
	"m7":   {0, 3, 7, 10},
	"min7": {0, 3, 7, 10},
}

var pitchClass = map[string]int{
	"c": 0, "c#": 1, "db": 1, "d": 2, "d#": 3, "eb": 3, "e": 4,
	"f": 5, "f#": 6, "gb": 6, "g": 7, "g#": 8, "ab": 8, "a": 9,
	"a#": 10, "bb": 10, "b": 11,
}

// ParseNotation parses a chord symbol like "Cmaj7", "F#m", "Bb" into a
// MIDI interval set anchored at octave 4 (root note 60 + pitch class),
// matching the original engine's root+quality-suffix parser.
func ParseNotation(symbol string) ([]int, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("empty chord notation")
	}

	rootLen := 1
	if len(symbol) > 1 && (symbol[1] == '#' || symbol[1] == 'b') {
		rootLen = 2
	}
	if rootLen > len(symbol) {
		rootLen = len(symbol)
	}
	rootName := strings.ToLower(symbol[:rootLen])
	pc, ok := pitchClass[rootName]
	if !ok {
		// retry with a 1-char root in case the note has no accidental
		// but the quality suffix happens to start with a letter that
		// looked like an accidental marker.
		rootLen = 1
		rootName = strings.ToLower(symbol[:rootLen])
		pc, ok = pitchClass[rootName]
		if !ok {
			return nil, fmt.Errorf("unrecognized chord root in %q", symbol)
		}
	}

	quality := strings.ToLower(symbol[rootLen:])
	intervals, ok := qualityIntervals[quality]
	if !ok {
		return nil, fmt.Errorf("unrecognized chord quality %q in %q", quality, symbol)
	}

	root := 60 + pc
	notes := make([]int, len(intervals))
	for i, iv := range intervals {
		notes[i] = root + iv
	}
	return notes, nil
}

// NoteNamesToMIDI resolves an array of note names (as produced by a
// `chord([...])` arrow-call argument) into MIDI numbers, anchored the
// same way ParseNotation anchors a bare root: octave defaults to 4
// unless an explicit octave digit follows the pitch class.
func NoteNamesToMIDI(names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		midi, err := noteNameToMIDI(n)
		if err != nil {
			return nil, err
		}
		out = append(out, midi)
	}
	return out, nil
}

func noteNameToMIDI(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty note name")
	}
	rootLen := 1
	if len(name) > 1 && (name[1] == '#' || name[1] == 'b') {
		rootLen = 2
	}
	pcName := strings.ToLower(name[:rootLen])
	pc, ok := pitchClass[pcName]
	if !ok {
		return 0, fmt.Errorf("unrecognized note name %q", name)
	}
	octave := 4
	if rootLen < len(name) {
		o, err := strconv.Atoi(name[rootLen:])
		if err != nil {
			return 0, fmt.Errorf("unrecognized octave in %q", name)
		}
		octave = o
	}
	return (octave+1)*12 + pc, nil
}
