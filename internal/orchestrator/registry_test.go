package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kliharness/internal/nodeconfig"
	"kliharness/internal/readiness"
)

func TestRegistryMergeKeepsExistingFields(t *testing.T) {
	r := NewRegistry()
	spec := nodeconfig.Spec{Alias: "wan", HTTPPort: 5642}
	h := newFakeHandle("wan", 7, &eventLog{})

	r.Merge("wan", Node{Spec: spec, Handle: h})
	merged := r.Merge("wan", Node{OOBI: &readiness.OOBI{Prefix: "BXYZ"}})

	assert.Equal(t, spec, merged.Spec)
	assert.Same(t, h, merged.Handle)
	assert.Equal(t, "BXYZ", merged.OOBI.Prefix)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryMergeDoesNotTouchOtherKeys(t *testing.T) {
	r := NewRegistry()
	r.Merge("wan", Node{Spec: nodeconfig.Spec{Alias: "wan"}})
	r.Merge("wil", Node{Spec: nodeconfig.Spec{Alias: "wil"}})
	r.Merge("wan", Node{Spec: nodeconfig.Spec{Alias: "wan", HTTPPort: 1}})

	assert.Equal(t, []string{"wan", "wil"}, r.Names())
	wil, ok := r.Get("wil")
	require.True(t, ok)
	assert.Equal(t, "wil", wil.Spec.Alias)
}

func TestRegistryLookupUnknown(t *testing.T) {
	_, err := NewRegistry().Lookup("ghost")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Merge("wit", Node{})
	r.Reset()
	assert.Zero(t, r.Len())
	_, ok := r.Get("wit")
	assert.False(t, ok)
}
