package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HarnessConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*HarnessConfig) {}},
		{name: "empty kli", mutate: func(c *HarnessConfig) { c.Kli = "" }, wantErr: "kli binary"},
		{name: "zero tick", mutate: func(c *HarnessConfig) { c.Tick = 0 }, wantErr: "tick must be positive"},
		{name: "bad policy", mutate: func(c *HarnessConfig) { c.Readiness.Policy = "retry" }, wantErr: "unknown readiness policy"},
		{name: "empty sentinel", mutate: func(c *HarnessConfig) { c.Cleanup.Sentinel = "" }, wantErr: "sentinel"},
		{name: "port out of range", mutate: func(c *HarnessConfig) {
			c.Profiles[0].Nodes[0].Port = 70000
		}, wantErr: "out of range"},
		{name: "duplicate alias", mutate: func(c *HarnessConfig) {
			c.Profiles[1].Nodes[2].Alias = "wan"
		}, wantErr: "duplicate alias wan"},
		{name: "duplicate port", mutate: func(c *HarnessConfig) {
			c.Profiles[1].Nodes[2].Port = 5642
		}, wantErr: "duplicate port 5642"},
		{name: "duplicate tag", mutate: func(c *HarnessConfig) {
			c.Profiles = append(c.Profiles, Profile{Tag: TagWitness})
		}, wantErr: "defined twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSentinelNotNeededWhenPurgingEverything(t *testing.T) {
	cfg := GetDefaultConfig()
	off := false
	cfg.Cleanup.PreserveSentinel = &off
	cfg.Cleanup.Sentinel = ""
	assert.NoError(t, cfg.Validate())
}
