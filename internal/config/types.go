package config

import (
	"path/filepath"
	"time"
)

// HarnessConfig is the top-level configuration structure for kliharness.
type HarnessConfig struct {
	// Root is the working area. config, base and data live directly under it.
	Root string `yaml:"root,omitempty"`
	// Kli is the witness binary, looked up on PATH when not absolute.
	Kli         string            `yaml:"kli,omitempty"`
	Tick        time.Duration     `yaml:"tick,omitempty"`
	Readiness   ReadinessConfig   `yaml:"readiness"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Termination TerminationConfig `yaml:"termination"`
	// Profiles map scenario tags to the nodes they need, in activation order.
	Profiles []Profile `yaml:"profiles,omitempty"`
}

// ReadinessPolicy decides what a probe that never answered does to Start.
type ReadinessPolicy string

const (
	// PolicyFail aborts Start with a readiness timeout.
	PolicyFail ReadinessPolicy = "fail"
	// PolicyIgnore logs the timeout and carries on with the next node.
	PolicyIgnore ReadinessPolicy = "ignore"
)

// ReadinessConfig bounds the GET /oobi probe.
type ReadinessConfig struct {
	Timeout       time.Duration   `yaml:"timeout,omitempty"`
	Policy        ReadinessPolicy `yaml:"policy,omitempty"`
	RetryInterval time.Duration   `yaml:"retryInterval,omitempty"`
}

// CleanupConfig controls the purge of the base directory after a scenario.
type CleanupConfig struct {
	PreserveSentinel *bool  `yaml:"preserveSentinel,omitempty"`
	Sentinel         string `yaml:"sentinel,omitempty"`
}

// TerminationConfig controls how witnesses are stopped.
type TerminationConfig struct {
	// KillAfter escalates to SIGKILL when a witness ignores SIGTERM for this long.
	// Zero waits forever.
	KillAfter time.Duration `yaml:"killAfter,omitempty"`
}

// Profile is the set of nodes a scenario tag activates.
type Profile struct {
	Tag string `yaml:"tag"`
	// Probe gates each node on a GET /oobi answer before the next one starts.
	Probe bool             `yaml:"probe"`
	Nodes []NodeDefinition `yaml:"nodes"`
}

// NodeDefinition describes one witness.
type NodeDefinition struct {
	Alias      string `yaml:"alias"`
	Name       string `yaml:"name,omitempty"`
	Port       int    `yaml:"port"`
	Passcode   string `yaml:"passcode,omitempty"`
	ConfigFile string `yaml:"configFile,omitempty"`
}

// ConfigDir is passed to witnesses as --config-dir.
func (c HarnessConfig) ConfigDir() string {
	return filepath.Join(c.Root, "config")
}

// BaseDir is passed to witnesses as --base and purged after every scenario.
func (c HarnessConfig) BaseDir() string {
	return filepath.Join(c.Root, "base")
}

// DataDir holds scenario inputs such as schemas and salts.
func (c HarnessConfig) DataDir() string {
	return filepath.Join(c.Root, "data")
}

// PreserveSentinel reports whether cleanup keeps the sentinel file.
func (c HarnessConfig) PreserveSentinel() bool {
	return c.Cleanup.PreserveSentinel == nil || *c.Cleanup.PreserveSentinel
}

// Profile returns the profile activated by tag.
func (c HarnessConfig) Profile(tag string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.Tag == tag {
			return p, true
		}
	}
	return Profile{}, false
}

// Tags lists the configured profile tags in activation order.
func (c HarnessConfig) Tags() []string {
	tags := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		tags = append(tags, p.Tag)
	}
	return tags
}
