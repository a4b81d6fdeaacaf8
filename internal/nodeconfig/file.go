package nodeconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampFormat is the ISO-8601 layout keri writes, microseconds and offset included.
const TimestampFormat = "2006-01-02T15:04:05.000000-07:00"

// File is the witness config document:
//
//	{"dt": ..., "<alias>": {"dt": ..., "curls": [...]}, "iurls": []}
type File struct {
	DT    string
	Alias string
	Node  NodeSection
	IURLs []string
}

// NodeSection is the per-alias block of a config file.
type NodeSection struct {
	DT    string   `json:"dt"`
	CURLs []string `json:"curls"`
}

// NewFile builds the config document for spec, stamped with now in UTC.
func NewFile(spec Spec, now time.Time) File {
	dt := now.UTC().Format(TimestampFormat)
	return File{
		DT:    dt,
		Alias: spec.Alias,
		Node:  NodeSection{DT: dt, CURLs: []string{spec.URL()}},
		IURLs: []string{},
	}
}

// MarshalJSON writes the keys in the order keri uses.
func (f File) MarshalJSON() ([]byte, error) {
	iurls := f.IURLs
	if iurls == nil {
		iurls = []string{}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range []struct {
		key string
		val any
	}{
		{"dt", f.DT},
		{f.Alias, f.Node},
		{"iurls", iurls},
	} {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.val)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON expects exactly one key besides dt and iurls, the alias.
func (f *File) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out File
	for key, val := range raw {
		switch key {
		case "dt":
			if err := json.Unmarshal(val, &out.DT); err != nil {
				return fmt.Errorf("dt: %w", err)
			}
		case "iurls":
			if err := json.Unmarshal(val, &out.IURLs); err != nil {
				return fmt.Errorf("iurls: %w", err)
			}
		default:
			if out.Alias != "" {
				return fmt.Errorf("config file has more than one node section: %q and %q", out.Alias, key)
			}
			out.Alias = key
			if err := json.Unmarshal(val, &out.Node); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if out.Alias == "" {
		return fmt.Errorf("config file has no node section")
	}

	*f = out
	return nil
}

// Write creates the config file for spec, including missing parent directories,
// and returns its path.
func Write(spec Spec, now time.Time) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(NewFile(spec, now), "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode config for %s: %w", spec.Alias, err)
	}

	path := spec.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return path, nil
}

// Read parses the config file at path.
func Read(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return f, nil
}
