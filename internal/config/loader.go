package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kliharness/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/kliharness"
	projectConfigDir = ".kliharness"
	configFileName   = "config.yaml"
)

// LoadOptions selects the working area and an optional explicit config file.
type LoadOptions struct {
	// Root overrides the root found in config files. Empty means the current directory.
	Root string
	// ConfigPath is read last when set; it must exist.
	ConfigPath string
}

// LoadConfig loads the harness configuration by layering default, user, project and
// explicit settings.
func LoadConfig(opts LoadOptions) (HarnessConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	root, err := resolveRoot(opts.Root)
	if err != nil {
		return HarnessConfig{}, err
	}

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return HarnessConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project configuration under the root
	projectConfigPath := getProjectConfigPath(root)
	if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return HarnessConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	// 4. Explicit file
	if opts.ConfigPath != "" {
		explicit, err := loadConfigFromFile(opts.ConfigPath)
		if err != nil {
			return HarnessConfig{}, fmt.Errorf("error loading config from %s: %w", opts.ConfigPath, err)
		}
		config = mergeConfigs(config, explicit)
	}

	switch {
	case opts.Root != "" || config.Root == "":
		config.Root = root
	case !filepath.IsAbs(config.Root):
		config.Root = filepath.Join(root, config.Root)
	}

	return config, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := osGetwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return abs, nil
}

func overlayIfExists(base HarnessConfig, path string) (HarnessConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "Loaded config layer %s", path)
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func(root string) string {
	return filepath.Join(root, projectConfigDir, configFileName)
}

// loadConfigFromFile loads a HarnessConfig from a YAML file.
func loadConfigFromFile(filePath string) (HarnessConfig, error) {
	var config HarnessConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return HarnessConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return HarnessConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Set scalar fields win;
// profiles replace the base profile with the same tag and keep its position, new
// tags are appended.
func mergeConfigs(base, overlay HarnessConfig) HarnessConfig {
	merged := base

	if overlay.Root != "" {
		merged.Root = overlay.Root
	}
	if overlay.Kli != "" {
		merged.Kli = overlay.Kli
	}
	if overlay.Tick != 0 {
		merged.Tick = overlay.Tick
	}

	if overlay.Readiness.Timeout != 0 {
		merged.Readiness.Timeout = overlay.Readiness.Timeout
	}
	if overlay.Readiness.Policy != "" {
		merged.Readiness.Policy = overlay.Readiness.Policy
	}
	if overlay.Readiness.RetryInterval != 0 {
		merged.Readiness.RetryInterval = overlay.Readiness.RetryInterval
	}

	if overlay.Cleanup.PreserveSentinel != nil {
		v := *overlay.Cleanup.PreserveSentinel
		merged.Cleanup.PreserveSentinel = &v
	}
	if overlay.Cleanup.Sentinel != "" {
		merged.Cleanup.Sentinel = overlay.Cleanup.Sentinel
	}

	if overlay.Termination.KillAfter != 0 {
		merged.Termination.KillAfter = overlay.Termination.KillAfter
	}

	merged.Profiles = append([]Profile(nil), base.Profiles...)
	for _, p := range overlay.Profiles {
		replaced := false
		for i := range merged.Profiles {
			if merged.Profiles[i].Tag == p.Tag {
				merged.Profiles[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Profiles = append(merged.Profiles, p)
		}
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
