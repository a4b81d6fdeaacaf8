package testing

import (
	"fmt"
	"regexp"
	"strings"

	"kliharness/internal/orchestrator"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)(?::([A-Za-z0-9_-]+))?\}`)

// resolver fills {key} and {prefix:<alias>} placeholders in step arguments.
// Unknown keys are left untouched so literal JSON arguments survive.
type resolver struct {
	vars     map[string]string
	registry *orchestrator.Registry
}

func newResolver(base map[string]string, extra map[string]string, reg *orchestrator.Registry) *resolver {
	vars := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		vars[k] = v
	}
	for k, v := range extra {
		vars[k] = v
	}
	return &resolver{vars: vars, registry: reg}
}

func (r *resolver) resolve(s string) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		key, arg := sub[1], sub[2]

		if key == "prefix" && arg != "" {
			prefix, err := r.prefix(arg)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return m
			}
			return prefix
		}
		if arg != "" {
			return m
		}
		if v, ok := r.vars[key]; ok {
			return v
		}
		return m
	})
	return out, firstErr
}

func (r *resolver) resolveAll(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		v, err := r.resolve(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, a, err)
		}
		out[i] = v
	}
	return out, nil
}

func (r *resolver) prefix(alias string) (string, error) {
	if r.registry == nil {
		return "", fmt.Errorf("%w: %s", orchestrator.ErrUnknownNode, alias)
	}
	node, err := r.registry.Lookup(alias)
	if err != nil {
		return "", err
	}
	if node.OOBI == nil || node.OOBI.Prefix == "" {
		return "", fmt.Errorf("node %s has no known prefix (was it probed?)", alias)
	}
	return node.OOBI.Prefix, nil
}

func containsText(text, expected string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(expected))
}
