package readiness

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// ExtractJSON returns the object held in body, from its first '{' to its last '}'.
// Anything after the last brace, such as CESR attachments, is dropped.
func ExtractJSON(body []byte) ([]byte, error) {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return body[start : end+1], nil
}

// OOBI is the key event a witness serves on /oobi.
type OOBI struct {
	// Prefix is the identifier prefix, field "i".
	Prefix string
	Raw    map[string]any
}

// ParseOOBI extracts and decodes the key event in body.
func ParseOOBI(body []byte) (*OOBI, error) {
	data, err := ExtractJSON(body)
	if err != nil {
		return nil, err
	}
	return DecodeOOBI(data)
}

// DecodeOOBI decodes data, which must hold exactly one JSON object.
func DecodeOOBI(data []byte) (*OOBI, error) {
	// oj.Parse drops a member whose value is missing instead of failing.
	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse oobi: %w", ErrMalformed)
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oobi: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: oobi is a %T", ErrNoJSON, v)
	}

	o := &OOBI{Raw: raw}
	if prefix, ok := raw["i"].(string); ok {
		o.Prefix = prefix
	}
	return o, nil
}
