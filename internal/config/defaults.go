package config

import (
	"time"

	"kliharness/internal/scheduler"
)

const (
	// TagWitness starts the single witness.
	TagWitness = "with_witness"
	// TagWitnessPool starts the three-witness pool.
	TagWitnessPool = "with_witness_pool"

	// DefaultSentinel names the file cleanup leaves in place.
	DefaultSentinel = "DO_NOT_DELETE"
	// DefaultPasscode unlocks the single witness keystore.
	DefaultPasscode = "0ACDEyMzQ1Njc4OWdoaWp"
)

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() HarnessConfig {
	preserve := true
	return HarnessConfig{
		Kli:  "kli",
		Tick: scheduler.DefaultTick,
		Readiness: ReadinessConfig{
			Timeout:       10 * time.Second,
			Policy:        PolicyFail,
			RetryInterval: 250 * time.Millisecond,
		},
		Cleanup: CleanupConfig{
			PreserveSentinel: &preserve,
			Sentinel:         DefaultSentinel,
		},
		Profiles: DefaultProfiles(),
	}
}

// DefaultProfiles returns the witness profiles the feature files rely on.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Tag: TagWitness,
			Nodes: []NodeDefinition{
				{Alias: "wit", Port: 5646, Passcode: DefaultPasscode},
			},
		},
		{
			Tag:   TagWitnessPool,
			Probe: true,
			Nodes: []NodeDefinition{
				{Alias: "wan", Port: 5642},
				{Alias: "wil", Port: 5643},
				{Alias: "wes", Port: 5644},
			},
		},
	}
}
