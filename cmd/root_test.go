package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	harnesstesting "kliharness/internal/testing"
)

// execute runs the root command with args and returns what it wrote to stdout.
// Flag variables are reset since cobra keeps them between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	rootDir, configFile = "", ""
	logLevel, logFormat = "error", "text"
	witnessTags, testTags = nil, nil
	testScenario, testScenarioPath, testReportPath = "", "", ""
	testOutput = harnesstesting.OutputText
	testFailFast, testVerbose, testDebug = false, false, false
	probePort, probeTimeout = 0, 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSetVersion(t *testing.T) {
	// Test setting version
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	// Test root command properties
	if rootCmd.Use != "kliharness" {
		t.Errorf("Expected Use to be 'kliharness', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if !strings.Contains(rootCmd.Long, "with_witness_pool") {
		t.Error("Expected Long description to list the witness profiles")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestVersionTemplate(t *testing.T) {
	// Create a new command to test version template
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	// Set the same version template as in Execute()
	testCmd.SetVersionTemplate(`{{printf "kliharness version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	if got, want := buf.String(), "kliharness version 1.0.0\n"; got != want {
		t.Errorf("Expected version output %q, got %q", want, got)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("0.4.0")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "kliharness version 0.4.0\n", out)
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, expected := range []string{"version", "test", "witness", "probe", "clean", "config"} {
		if !found[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestConfigShow(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "config", "show", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "root: "+root)
	assert.Contains(t, out, "kli: kli")
	assert.Contains(t, out, "tag: with_witness_pool")
	assert.Contains(t, out, "sentinel: DO_NOT_DELETE")
}

func TestConfigShowProjectLayer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".kliharness"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".kliharness", "config.yaml"), []byte("kli: /opt/keripy/bin/kli\n"), 0644))

	out, err := execute(t, "config", "show", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "kli: /opt/keripy/bin/kli")
}

func TestConfigShowInvalid(t *testing.T) {
	root := t.TempDir()
	explicit := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("readiness:\n  policy: maybe\n"), 0644))

	_, err := execute(t, "config", "show", "--root", root, "--config", explicit)
	assert.ErrorContains(t, err, `unknown readiness policy "maybe"`)
}

func TestWitnessPlan(t *testing.T) {
	root := t.TempDir()

	out, err := execute(t, "witness", "plan", "--root", root, "--tag", "with_witness_pool")
	require.NoError(t, err)

	assert.Contains(t, out, "wan http://127.0.0.1:5642 (probed)")
	assert.Contains(t, out, "wes http://127.0.0.1:5644 (probed)")
	assert.Contains(t, out, "kli witness start --name wil --alias wil --http 5643")
	assert.NotContains(t, out, "wit ")
}

func TestWitnessPlanAllProfiles(t *testing.T) {
	out, err := execute(t, "witness", "plan", "--root", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "wit http://127.0.0.1:5646\n")
	assert.Contains(t, out, "--passcode 0ACDEyMzQ1Njc4OWdoaWp")
	assert.Contains(t, out, "wan http://127.0.0.1:5642 (probed)")
}

func TestWitnessUpRequiresTag(t *testing.T) {
	_, err := execute(t, "witness", "up", "--root", t.TempDir())
	assert.ErrorContains(t, err, "at least one --tag is required")
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "keri", "db", "wan"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "DO_NOT_DELETE"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "keri", "db", "wan", "data.mdb"), []byte("x"), 0644))

	out, err := execute(t, "clean", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, "Purged "+base+"\n", out)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DO_NOT_DELETE", entries[0].Name())
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oobi", r.URL.Path)
		_, _ = w.Write([]byte(`{"v":"KERI10JSON0000fd_","t":"icp","i":"BBwan"}-VAi-CABBBwan`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	out, err := execute(t, "probe", "--root", t.TempDir(), "--port", strconv.Itoa(port), "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, `{"v":"KERI10JSON0000fd_","t":"icp","i":"BBwan"}`+"\n", out)
}

func TestTestCommandWithoutScenarios(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scenarios"), 0755))

	out, err := execute(t, "test", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "No test scenarios found")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	scenario := `name: local
steps:
  - name: greet
    command: [sh, -c, "echo hello from {root}"]
    expected:
      contains: ["hello from"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.yaml"), []byte(scenario), 0644))

	out, err := execute(t, "test", "--root", root, "--output", "quiet")
	require.NoError(t, err)
	assert.Equal(t, "✅ All 1 tests passed\n", out)

	failing := strings.Replace(scenario, `["hello from"]`, `["goodbye"]`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.yaml"), []byte(failing), 0644))

	_, err = execute(t, "test", "--root", root, "--output", "quiet")
	assert.EqualError(t, err, "1 of 1 scenarios failed")
}
