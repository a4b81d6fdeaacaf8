package config

import (
	"errors"
	"fmt"
)

// Validate reports every problem in the configuration at once.
func (c HarnessConfig) Validate() error {
	var errs []error

	if c.Kli == "" {
		errs = append(errs, errors.New("kli binary must be set"))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %v", c.Tick))
	}
	if c.Readiness.Timeout < 0 {
		errs = append(errs, fmt.Errorf("readiness timeout must not be negative, got %v", c.Readiness.Timeout))
	}
	switch c.Readiness.Policy {
	case PolicyFail, PolicyIgnore:
	default:
		errs = append(errs, fmt.Errorf("unknown readiness policy %q (want %q or %q)", c.Readiness.Policy, PolicyFail, PolicyIgnore))
	}
	if c.PreserveSentinel() && c.Cleanup.Sentinel == "" {
		errs = append(errs, errors.New("cleanup sentinel must be named when it is preserved"))
	}
	if c.Termination.KillAfter < 0 {
		errs = append(errs, fmt.Errorf("killAfter must not be negative, got %v", c.Termination.KillAfter))
	}

	tags := map[string]bool{}
	for _, p := range c.Profiles {
		if p.Tag == "" {
			errs = append(errs, errors.New("profile without tag"))
			continue
		}
		if tags[p.Tag] {
			errs = append(errs, fmt.Errorf("profile %s defined twice", p.Tag))
		}
		tags[p.Tag] = true
		errs = append(errs, p.validate()...)
	}

	return errors.Join(errs...)
}

func (p Profile) validate() []error {
	var errs []error
	aliases := map[string]bool{}
	ports := map[int]bool{}
	for _, n := range p.Nodes {
		if n.Alias == "" {
			errs = append(errs, fmt.Errorf("profile %s: node without alias", p.Tag))
			continue
		}
		if n.Port < 1 || n.Port > 65535 {
			errs = append(errs, fmt.Errorf("profile %s: node %s port %d out of range", p.Tag, n.Alias, n.Port))
		}
		if aliases[n.Alias] {
			errs = append(errs, fmt.Errorf("profile %s: duplicate alias %s", p.Tag, n.Alias))
		}
		if ports[n.Port] {
			errs = append(errs, fmt.Errorf("profile %s: duplicate port %d", p.Tag, n.Port))
		}
		aliases[n.Alias] = true
		ports[n.Port] = true
	}
	return errs
}
