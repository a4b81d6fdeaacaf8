package testing

import (
	"fmt"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// ParseParticipants splits text such as "Alice, Bob, and Charlie" into names.
// The word "and" is dropped in any case.
func ParseParticipants(text string) []string {
	var names []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if strings.EqualFold(w, "and") {
			continue
		}
		names = append(names, w)
	}
	return names
}

// invocation is one concrete run of a step after expansion.
type invocation struct {
	label string
	vars  map[string]string
}

// expand returns the invocations of step: one without participants or expansion,
// one per participant for "each", one per unordered pair for "pairs".
func expand(step TestStep) ([]invocation, error) {
	names := ParseParticipants(step.Participants)

	switch step.Expand {
	case ExpandNone:
		vars := map[string]string{}
		if len(names) > 0 {
			vars["participants"] = strings.Join(names, ",")
		}
		return []invocation{{vars: vars}}, nil

	case ExpandEach:
		out := make([]invocation, 0, len(names))
		for _, n := range names {
			out = append(out, invocation{label: n, vars: map[string]string{"name": n}})
		}
		return out, nil

	case ExpandPairs:
		var out []invocation
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				out = append(out, invocation{
					label: names[i] + "/" + names[j],
					vars:  map[string]string{"first": names[i], "second": names[j]},
				})
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown expand mode %q", step.Expand)
	}
}
