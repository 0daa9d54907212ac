package sampleprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBankToml(t *testing.T, dir string) {
	t.Helper()
	content := "name = \"drums\"\npublisher = \"devaloop\"\naudio_path = \"audio/\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.toml"), []byte(content), 0o644))
}

func TestResolvePathPlain(t *testing.T) {
	fs := NewFilesystem("/project")
	path, err := fs.ResolvePath("kick.wav")
	require.NoError(t, err)
	assert.Equal(t, "/project/kick.wav", path)
}

func TestResolvePathBankExactMatch(t *testing.T) {
	dir := t.TempDir()
	audioDir := filepath.Join(dir, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "kick.wav"), []byte("x"), 0o644))
	writeBankToml(t, dir)

	fs := NewFilesystem(dir)
	_, err := fs.LoadBankManifest(dir)
	require.NoError(t, err)

	path, err := fs.ResolvePath("devalang://bank/devaloop.drums/kick.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(audioDir, "kick.wav"), path)
}

func TestResolvePathBankAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	audioDir := filepath.Join(dir, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "snare.wav"), []byte("x"), 0o644))
	writeBankToml(t, dir)

	fs := NewFilesystem(dir)
	_, err := fs.LoadBankManifest(dir)
	require.NoError(t, err)

	path, err := fs.ResolvePath("devalang://bank/devaloop.drums/snare")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(audioDir, "snare.wav"), path)
}

func TestResolvePathFallsBackToLegacyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "audio"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hat.wav"), []byte("x"), 0o644))
	writeBankToml(t, dir)

	fs := NewFilesystem(dir)
	_, err := fs.LoadBankManifest(dir)
	require.NoError(t, err)

	path, err := fs.ResolvePath("devalang://bank/devaloop.drums/hat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hat.wav"), path)
}

func TestResolvePathUnknownBank(t *testing.T) {
	fs := NewFilesystem("/project")
	_, err := fs.ResolvePath("devalang://bank/nope.nope/x")
	assert.Error(t, err)
}

func TestResolvePathUsesDeclaredTriggerPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "audio", "808"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audio", "808", "kick.wav"), []byte("x"), 0o644))
	content := "name = \"drums\"\npublisher = \"devaloop\"\naudio_path = \"audio/\"\n" +
		"[[triggers]]\nname = \"kick\"\npath = \"808/kick.wav\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.toml"), []byte(content), 0o644))

	fs := NewFilesystem(dir)
	_, err := fs.LoadBankManifest(dir)
	require.NoError(t, err)

	path, err := fs.ResolvePath("devalang://bank/devaloop.drums/kick")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audio", "808", "kick.wav"), path)
}

func TestResolveBankTriggersListsDeclaredNames(t *testing.T) {
	dir := t.TempDir()
	content := "name = \"drums\"\npublisher = \"devaloop\"\naudio_path = \"audio/\"\n" +
		"[[triggers]]\nname = \"kick\"\npath = \"kick.wav\"\n" +
		"[[triggers]]\nname = \"snare\"\npath = \"snare.wav\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.toml"), []byte(content), 0o644))

	fs := NewFilesystem(dir)
	_, err := fs.LoadBankManifest(dir)
	require.NoError(t, err)

	triggers, err := fs.ResolveBankTriggers("devaloop.drums")
	require.NoError(t, err)
	assert.Equal(t, "devalang://bank/devaloop.drums/kick", triggers["kick"])
	assert.Equal(t, "devalang://bank/devaloop.drums/snare", triggers["snare"])
}
