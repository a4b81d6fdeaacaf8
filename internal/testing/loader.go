package testing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kliharness/pkg/logging"
)

type scenarioLoader struct {
	debug bool
}

// NewTestScenarioLoader creates a loader reading YAML scenario files.
func NewTestScenarioLoader(debug bool) TestScenarioLoader {
	return &scenarioLoader{debug: debug}
}

// LoadScenarios loads every *.yaml and *.yml file under configPath, or configPath
// itself when it is a file. Scenarios are returned sorted by name.
func (l *scenarioLoader) LoadScenarios(configPath string) ([]TestScenario, error) {
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("scenario path %s: %w", configPath, err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(configPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isYAML(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", configPath, err)
		}
	} else {
		files = []string{configPath}
	}

	var scenarios []TestScenario
	seen := map[string]string{}
	for _, f := range files {
		s, err := loadScenarioFile(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", s.Name, prev, f)
		}
		seen[s.Name] = f
		if l.debug {
			logging.Debug("Loader", "Loaded scenario %s from %s", s.Name, f)
		}
		scenarios = append(scenarios, s)
	}

	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadScenarioFile(path string) (TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestScenario{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var s TestScenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return TestScenario{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := ValidateScenario(s); err != nil {
		return TestScenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ValidateScenario checks the structure of a scenario definition.
func ValidateScenario(s TestScenario) error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}
	var errs []error
	for i, st := range append(append([]TestStep(nil), s.Steps...), s.Cleanup...) {
		if err := validateStep(st); err != nil {
			errs = append(errs, fmt.Errorf("scenario %s step %d (%s): %w", s.Name, i+1, st.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateStep(st TestStep) error {
	kinds := 0
	if len(st.Command) > 0 {
		kinds++
	}
	if st.Probe != "" {
		kinds++
	}
	if st.Wait {
		kinds++
	}
	if kinds != 1 {
		return errors.New("exactly one of command, probe or wait is required")
	}
	if st.Background && len(st.Command) == 0 {
		return errors.New("background requires a command")
	}
	switch st.Expand {
	case ExpandNone, ExpandEach, ExpandPairs:
	default:
		return fmt.Errorf("unknown expand mode %q", st.Expand)
	}
	if st.Expand != ExpandNone && strings.TrimSpace(st.Participants) == "" {
		return fmt.Errorf("expand %s requires participants", st.Expand)
	}
	return nil
}

// FilterScenarios keeps scenarios matching the configured name and tags.
func (l *scenarioLoader) FilterScenarios(scenarios []TestScenario, config TestConfiguration) []TestScenario {
	var out []TestScenario
	for _, s := range scenarios {
		if config.Scenario != "" && s.Name != config.Scenario {
			continue
		}
		if len(config.Tags) > 0 && !hasAnyTag(s, config.Tags) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func hasAnyTag(s TestScenario, tags []string) bool {
	for _, want := range tags {
		for _, have := range s.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
