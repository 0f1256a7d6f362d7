package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionInfo_String(t *testing.T) {
	info := newSelectionInfo()
	info.Considered, info.Usable = 12, 10
	info.reject(&UnsuitableReason{Kind: MissingRequiredFlag, Detail: "Stable"})
	info.reject(&UnsuitableReason{Kind: MissingRequiredFlag, Detail: "Guard"})
	info.reject(&UnsuitableReason{Kind: ExcludedByPath, Detail: "same family"})
	info.filter("reachable")

	assert.Equal(t,
		"rejected 1/10 as excluded by path; 2/10 as missing required flag; 1/10 as filtered by reachable",
		info.String())

	kind, count, ok := info.MostCommon()
	require.True(t, ok)
	assert.Equal(t, MissingRequiredFlag, kind)
	assert.Equal(t, 2, count)
	assert.Equal(t, &UnsuitableReason{Kind: MissingRequiredFlag, Detail: "Stable"}, info.mostCommonReason())
}

func TestSelectionInfo_Empty(t *testing.T) {
	info := newSelectionInfo()
	assert.Equal(t, "no usable relays among 0", info.String())

	info.Considered, info.Usable = 3, 3
	assert.Equal(t, "rejected none", info.String())

	_, _, ok := info.MostCommon()
	assert.False(t, ok)
	assert.Nil(t, info.mostCommonReason())
}

func TestSelectionInfo_TiesGoToEarlierCheck(t *testing.T) {
	info := newSelectionInfo()
	info.reject(&UnsuitableReason{Kind: RoleNotPermitted})
	info.reject(&UnsuitableReason{Kind: ExcludedByPath})

	kind, _, _ := info.MostCommon()
	assert.Equal(t, ExcludedByPath, kind)
}

func TestSelectionInfo_Relaxed(t *testing.T) {
	strict := newSelectionInfo()
	strict.Considered, strict.Usable = 2, 2
	strict.reject(&UnsuitableReason{Kind: ExitPolicyMismatch})
	strict.reject(&UnsuitableReason{Kind: ExitPolicyMismatch})

	info := newSelectionInfo()
	info.Considered, info.Usable, info.Accepted = 2, 2, 2
	info.Relaxed = true
	info.Strict = &strict

	assert.Equal(t, "at first rejected 2/2 as exit policy mismatch; after relaxing requirements rejected none", info.String())
}

func TestUnsuitableReason_String(t *testing.T) {
	assert.Equal(t, "role not permitted", UnsuitableReason{Kind: RoleNotPermitted}.String())
	assert.Equal(t, "missing required flag (Stable Guard)",
		UnsuitableReason{Kind: MissingRequiredFlag, Detail: "Stable Guard"}.String())
	assert.Equal(t, "unknown", ReasonKind(0).String())
}
