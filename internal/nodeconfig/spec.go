// Package nodeconfig describes a witness node launch and its on-disk JSON config.
package nodeconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Spec is everything needed to configure and launch one witness. It is built once
// per node and scenario and not changed after the process starts.
type Spec struct {
	Alias    string
	Name     string
	HTTPPort int
	// ConfigDir is the --config-dir root; the file lives under keri/cf/main.
	ConfigDir string
	// ConfigFile is the config file name without extension. Defaults to Alias.
	ConfigFile string
	BaseDir    string
	Passcode   string
}

// KeystoreName returns Name, falling back to Alias.
func (s Spec) KeystoreName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Alias
}

// ConfigFileName returns ConfigFile, falling back to Alias.
func (s Spec) ConfigFileName() string {
	if s.ConfigFile != "" {
		return s.ConfigFile
	}
	return s.Alias
}

// Path returns the location of the node's config file.
func (s Spec) Path() string {
	return filepath.Join(s.ConfigDir, "keri", "cf", "main", s.ConfigFileName()+".json")
}

// URL is the controller URL the node listens on.
func (s Spec) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.HTTPPort)
}

// Args returns the arguments following the kli binary.
func (s Spec) Args() []string {
	args := []string{
		"witness", "start",
		"--name", s.KeystoreName(),
		"--alias", s.Alias,
		"--http", strconv.Itoa(s.HTTPPort),
		"--config-dir", s.ConfigDir,
		"--config-file", s.ConfigFileName(),
		"--base", s.BaseDir,
	}
	if s.Passcode != "" {
		args = append(args, "--passcode", s.Passcode)
	}
	return args
}

// Validate checks the fields Args and Path depend on.
func (s Spec) Validate() error {
	if s.Alias == "" {
		return fmt.Errorf("node alias is required")
	}
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return fmt.Errorf("node %s: http port %d out of range", s.Alias, s.HTTPPort)
	}
	if s.ConfigDir == "" {
		return fmt.Errorf("node %s: config dir is required", s.Alias)
	}
	return nil
}
