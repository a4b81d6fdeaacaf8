package nodeconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func witSpec(dir string) Spec {
	return Spec{
		Alias:     "wit",
		HTTPPort:  5646,
		ConfigDir: filepath.Join(dir, "config"),
		BaseDir:   filepath.Join(dir, "base"),
		Passcode:  "0ACDEyMzQ1Njc4OWdoaWp",
	}
}

func TestArgs(t *testing.T) {
	s := witSpec("/work")

	assert.Equal(t, []string{
		"witness", "start",
		"--name", "wit",
		"--alias", "wit",
		"--http", "5646",
		"--config-dir", "/work/config",
		"--config-file", "wit",
		"--base", "/work/base",
		"--passcode", "0ACDEyMzQ1Njc4OWdoaWp",
	}, s.Args())
}

func TestArgsWithoutPasscode(t *testing.T) {
	s := Spec{Alias: "wan", Name: "wan-ks", HTTPPort: 5642, ConfigDir: "/c", BaseDir: "/b", ConfigFile: "pool"}

	args := s.Args()
	assert.NotContains(t, args, "--passcode")
	assert.Equal(t, "wan-ks", args[3])
	assert.Equal(t, "pool", args[11])
	assert.Equal(t, "/c/keri/cf/main/pool.json", s.Path())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, witSpec("/w").Validate())
	assert.Error(t, Spec{HTTPPort: 1, ConfigDir: "/c"}.Validate())
	assert.Error(t, Spec{Alias: "x", HTTPPort: 0, ConfigDir: "/c"}.Validate())
	assert.Error(t, Spec{Alias: "x", HTTPPort: 70000, ConfigDir: "/c"}.Validate())
	assert.Error(t, Spec{Alias: "x", HTTPPort: 5642}.Validate())
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := witSpec(t.TempDir())
	now := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.FixedZone("CET", 3600))

	path, err := Write(s, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.ConfigDir, "keri", "cf", "main", "wit.json"), path)

	f, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "wit", f.Alias)
	assert.Equal(t, []string{"http://127.0.0.1:5646"}, f.Node.CURLs)
	assert.Equal(t, "2024-03-01T11:30:45.123456+00:00", f.DT)
	assert.Equal(t, f.DT, f.Node.DT)
	assert.Empty(t, f.IURLs)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)
	assert.Contains(t, raw, "wit")
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"dt\""), "got %s", data)
}

func TestWriteRejectsInvalidSpec(t *testing.T) {
	_, err := Write(Spec{Alias: "wit"}, time.Now())
	assert.Error(t, err)
}

func TestUnmarshalRejectsAmbiguousFiles(t *testing.T) {
	var f File
	assert.Error(t, json.Unmarshal([]byte(`{"dt":"x","iurls":[]}`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"a":{"curls":[]},"b":{"curls":[]}}`), &f))
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
