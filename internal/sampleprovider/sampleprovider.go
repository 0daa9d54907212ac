// Package sampleprovider implements the sample provider
// boundary: decoding referenced audio files into PCM, and resolving
// `devalang://` bank trigger URIs against a bank manifest on disk.
//
// WAV duration probing is adapted from a getbpm.Length-style PCM
// byte-math routine with a decoder.Duration() fallback for non-PCM
// formats; bank trigger path resolution follows the original engine's
// insert.rs fallback order exactly.
package sampleprovider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-audio/wav"

	"github.com/devalang/core/internal/routing"
)

// Provider is the boundary interface the engine depends on: given a resolved
// path or trigger URI, return decoded PCM. Implementations external to
// this package (network fetchers, in-memory test fixtures) may satisfy
// this directly; Filesystem is the shipped default.
type Provider interface {
	Load(ref string) (routing.SampleBuffer, error)
}

// Filesystem resolves plain paths and `devalang://` bank URIs against
// a project root and a set of loaded bank manifests.
type Filesystem struct {
	ProjectRoot string
	Banks       map[string]*BankManifest // keyed by "<publisher>.<name>"
}

func NewFilesystem(projectRoot string) *Filesystem {
	return &Filesystem{ProjectRoot: projectRoot, Banks: make(map[string]*BankManifest)}
}

// BankManifest is bank.toml's decoded shape.
type BankManifest struct {
	Name      string    `toml:"name"`
	Publisher string    `toml:"publisher"`
	AudioPath string    `toml:"audio_path"`
	Triggers  []Trigger `toml:"triggers"`
	Dir       string    `toml:"-"` // set after load, not part of the file
}

// Trigger is one bank.toml `[[triggers]]` entry: a named sample and the
// path (relative to audio_path, relative to the manifest, or absolute)
// that backs it.
type Trigger struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// LoadBankManifest reads and registers a bank.toml from dir.
func (f *Filesystem) LoadBankManifest(dir string) (*BankManifest, error) {
	path := filepath.Join(dir, "bank.toml")
	var m BankManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if m.AudioPath == "" {
		m.AudioPath = "audio/"
	}
	m.Dir = dir
	key := m.Publisher + "." + m.Name
	f.Banks[key] = &m
	return &m, nil
}

// Load resolves ref (a plain filesystem path, optionally `file://`-
// prefixed, or a `devalang://bank/<publisher>.<name>/<trigger>` URI)
// and decodes it.
func (f *Filesystem) Load(ref string) (routing.SampleBuffer, error) {
	path, err := f.ResolvePath(ref)
	if err != nil {
		return routing.SampleBuffer{}, err
	}
	return DecodeWAV(path)
}

// ResolvePath implements the bank trigger fallback order pinned from
// the original engine's insert.rs: exact audio_dir/entity path, then
// audio_dir/entity+".wav" if entity has no extension, then a legacy
// path directly under the manifest directory (no audio/ subdir) with
// ".wav" appended, then the legacy path as-is if entity already had an
// extension, finally falling back to the original (possibly missing)
// candidate.
func (f *Filesystem) ResolvePath(ref string) (string, error) {
	if !strings.HasPrefix(ref, "devalang://") {
		ref = strings.TrimPrefix(ref, "file://")
		if filepath.IsAbs(ref) {
			return ref, nil
		}
		return filepath.Join(f.ProjectRoot, ref), nil
	}

	rest := strings.TrimPrefix(ref, "devalang://")
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed devalang:// uri %q", ref)
	}
	_, bankKey, trigger := parts[0], parts[1], parts[2]

	bank, ok := f.Banks[bankKey]
	if !ok {
		return "", fmt.Errorf("bank %q not loaded", bankKey)
	}

	if declared, ok := declaredTriggerPath(bank, trigger); ok {
		return resolveDeclaredPath(bank, declared), nil
	}

	audioDir := filepath.Join(bank.Dir, bank.AudioPath)
	hasExt := filepath.Ext(trigger) != ""

	candidate := filepath.Join(audioDir, trigger)
	if fileExists(candidate) {
		return candidate, nil
	}
	if !hasExt {
		withExt := candidate + ".wav"
		if fileExists(withExt) {
			return withExt, nil
		}
	}
	legacy := filepath.Join(bank.Dir, trigger)
	if hasExt {
		if fileExists(legacy) {
			return legacy, nil
		}
	} else {
		legacyWav := legacy + ".wav"
		if fileExists(legacyWav) {
			return legacyWav, nil
		}
	}
	return candidate, nil
}

// declaredTriggerPath looks up name among bank's manifest-declared
// triggers, returning its raw (unresolved) path.
func declaredTriggerPath(bank *BankManifest, name string) (string, bool) {
	for _, t := range bank.Triggers {
		if t.Name == name {
			return t.Path, true
		}
	}
	return "", false
}

// resolveDeclaredPath implements the manifest path-bias rules: absolute
// paths are used as-is; "./"-prefixed paths bias toward audio_path;
// other relative paths resolve against audio_path first, then the
// manifest directory.
func resolveDeclaredPath(bank *BankManifest, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") {
		return filepath.Join(bank.Dir, bank.AudioPath, strings.TrimPrefix(path, "./"))
	}
	underAudio := filepath.Join(bank.Dir, bank.AudioPath, path)
	if fileExists(underAudio) {
		return underAudio
	}
	return filepath.Join(bank.Dir, path)
}

// ResolveBankTriggers returns a trigger-name -> devalang:// URI map for
// every trigger declared in the named bank, used by a Bank statement to
// populate its alias binding.
func (f *Filesystem) ResolveBankTriggers(bankKey string) (map[string]string, error) {
	bank, ok := f.Banks[bankKey]
	if !ok {
		return nil, fmt.Errorf("bank %q not loaded", bankKey)
	}
	out := make(map[string]string, len(bank.Triggers))
	for _, t := range bank.Triggers {
		out[t.Name] = "devalang://bank/" + bankKey + "/" + t.Name
	}
	return out, nil
}

func subdirForType(objType string) string {
	switch objType {
	case "bank":
		return "banks"
	case "plugin":
		return "plugins"
	case "preset":
		return "presets"
	case "template":
		return "templates"
	default:
		return objType
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DecodeWAV decodes a WAV file into a routing.SampleBuffer of float32
// PCM, using go-audio/wav's PCM buffer decode.
func DecodeWAV(path string) (routing.SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return routing.SampleBuffer{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return routing.SampleBuffer{}, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return routing.SampleBuffer{}, fmt.Errorf("decode PCM %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels == 0 {
		channels = 1
	}
	floats := make([]float32, len(buf.Data))
	maxVal := float64(int(1) << uint(buf.SourceBitDepth-1))
	if buf.SourceBitDepth == 0 {
		maxVal = 32768
	}
	for i, s := range buf.Data {
		floats[i] = float32(float64(s) / maxVal)
	}

	return routing.SampleBuffer{
		Data:       floats,
		Frames:     len(buf.Data) / channels,
		Channels:   channels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// NaturalDuration returns a sample file's length from its WAV header,
// adapted from a getbpm.Length-style PCM byte-math routine. The
// collector does not call it: its Auto-duration resolution derives a
// sample's length from the buffer Load decodes.
func NaturalDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("invalid WAV file: %s", path)
	}
	d.ReadInfo()

	const wavFormatPCM = 1
	const wavFormatExtensible = 65534
	if int(d.WavAudioFormat) != wavFormatPCM && int(d.WavAudioFormat) != wavFormatExtensible {
		return d.Duration()
	}

	if d.SampleRate == 0 {
		return 0, fmt.Errorf("invalid sample rate: 0")
	}
	bytesPerSample := int64(d.BitDepth) / 8
	if bytesPerSample <= 0 {
		return 0, fmt.Errorf("invalid bit depth: %d", d.BitDepth)
	}
	chans := int64(d.NumChans)
	if chans <= 0 {
		return 0, fmt.Errorf("invalid channel count: %d", d.NumChans)
	}
	if !d.WasPCMAccessed() && d.PCMChunk == nil {
		if err := d.FwdToPCM(); err != nil {
			return 0, fmt.Errorf("locate PCM: %w", err)
		}
	}
	totalBytes := d.PCMLen()
	if totalBytes <= 0 {
		return 0, fmt.Errorf("no PCM data")
	}
	frameSize := bytesPerSample * chans
	totalFrames := totalBytes / frameSize
	seconds := float64(totalFrames) / float64(d.SampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
