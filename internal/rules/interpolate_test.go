package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/storyforge/internal/entity"
)

func TestInterpolate_SubstitutesRoleNames(t *testing.T) {
	bindings := Bindings{"Writer": entity.New("Alice", "Person")}

	got, err := Interpolate("{Writer}'s Note", bindings)
	require.NoError(t, err)
	assert.Equal(t, "Alice's Note", got)
}

func TestInterpolate_EscapedBraces(t *testing.T) {
	got, err := Interpolate(`literal \{brace\} stays`, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "literal {brace} stays", got)
}

func TestInterpolate_UnboundRoleIsError(t *testing.T) {
	_, err := Interpolate("{Missing}", Bindings{})
	assert.Error(t, err)
}

func TestInterpolate_UnbalancedBraceIsError(t *testing.T) {
	_, err := Interpolate("{Writer", Bindings{"Writer": entity.New("Alice", "Person")})
	assert.Error(t, err)
}

func TestBraceReferences_OrderOfAppearance(t *testing.T) {
	refs, err := BraceReferences("<{A} gives {B} a gift>")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, refs)
}

func TestBraceReferences_UnbalancedIsError(t *testing.T) {
	_, err := BraceReferences("{A")
	assert.Error(t, err)

	_, err = BraceReferences("A}")
	assert.Error(t, err)
}

func TestUniquify_NoCollision(t *testing.T) {
	taken := map[string]bool{"Bob": true}
	assert.Equal(t, "Alice's Note", Uniquify("Alice's Note", taken))
}

func TestUniquify_FindsSmallestSuffix(t *testing.T) {
	taken := map[string]bool{
		"Alice's Note":     true,
		"Alice's Note (1)": true,
	}
	assert.Equal(t, "Alice's Note (2)", Uniquify("Alice's Note", taken))
}
