package testing

import (
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"kliharness/internal/readiness"
)

// validateExpectations checks output and err of a step against expected. It returns
// nil when every expectation holds, otherwise the first mismatch.
func validateExpectations(expected TestExpectation, output string, err error) error {
	if expected.ExpectSuccess() && err != nil {
		return fmt.Errorf("expected success but got error: %v", err)
	}
	if !expected.ExpectSuccess() && err == nil {
		return fmt.Errorf("expected failure but step succeeded")
	}

	if len(expected.ErrorContains) > 0 {
		if err == nil {
			return fmt.Errorf("expected error containing text but got no error")
		}
		for _, text := range expected.ErrorContains {
			if !containsText(err.Error(), text) {
				return fmt.Errorf("error %q does not contain %q", err.Error(), text)
			}
		}
	}

	for _, text := range expected.Contains {
		if !containsText(output, text) {
			return fmt.Errorf("output does not contain %q", text)
		}
	}
	for _, text := range expected.NotContains {
		if containsText(output, text) {
			return fmt.Errorf("output contains unexpected %q", text)
		}
	}

	if len(expected.JSONPath) > 0 {
		if err := checkJSONPaths(expected.JSONPath, output); err != nil {
			return err
		}
	}
	return nil
}

// checkJSONPaths evaluates every path against the JSON object held in output and
// compares the first match with the expected value.
func checkJSONPaths(paths map[string]interface{}, output string) error {
	data, err := readiness.ExtractJSON([]byte(output))
	if err != nil {
		return fmt.Errorf("json_path: %w", err)
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return fmt.Errorf("json_path: failed to parse output: %w", err)
	}

	for path, want := range paths {
		expr, err := jp.ParseString(path)
		if err != nil {
			return fmt.Errorf("json_path: invalid path %q: %w", path, err)
		}
		got := expr.Get(doc)
		if len(got) == 0 {
			return fmt.Errorf("json_path %s: no match", path)
		}
		if !sameValue(got[0], want) {
			return fmt.Errorf("json_path %s: got %v, want %v", path, got[0], want)
		}
	}
	return nil
}

// sameValue compares a parsed JSON value with a YAML value, treating all numbers
// as float64.
func sameValue(got, want interface{}) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		return gf == wf
	}
	if reflect.DeepEqual(got, want) {
		return true
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
