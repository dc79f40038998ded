package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/storyforge/internal/entity"
)

func TestAddGrounded_RejectsLeadingWildcard(t *testing.T) {
	wm := NewWorkingMemory()
	err := wm.AddGrounded("*alice is happy")
	assert.Error(t, err)
}

func TestAddGrounded_Idempotent(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("alice is happy"))
	require.NoError(t, wm.AddGrounded("alice is happy"))

	assert.Equal(t, 1, wm.Len())
}

func TestHasFact(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("alice is happy"))

	assert.True(t, wm.HasFact("alice is happy"))
	assert.False(t, wm.HasFact("bob is happy"))
}

func TestAdd_GroundsAndInserts(t *testing.T) {
	wm := NewWorkingMemory()
	bindings := Bindings{"A": entity.New("alice", "Person")}
	p := Predicate{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}

	require.NoError(t, wm.Add(p, bindings))
	assert.True(t, wm.HasFact("alice is happy"))
}

func TestAdd_UnboundOptionalRoleIsSilentNoOp(t *testing.T) {
	wm := NewWorkingMemory()
	p := Predicate{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}

	require.NoError(t, wm.Add(p, Bindings{}))
	assert.Equal(t, 0, wm.Len())
}

func TestDelete_RemovesExactFact(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("alice is happy"))

	bindings := Bindings{"A": entity.New("alice", "Person")}
	p := Predicate{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}

	require.NoError(t, wm.Delete(p, bindings))
	assert.False(t, wm.HasFact("alice is happy"))
}

func TestDelete_UnboundOptionalRoleIsSilentNoOp(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("alice is happy"))

	p := Predicate{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}
	require.NoError(t, wm.Delete(p, Bindings{}))

	assert.True(t, wm.HasFact("alice is happy"))
}

func TestFacts_SortedDeterministicOutput(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("bob is sad"))
	require.NoError(t, wm.AddGrounded("alice is happy"))

	assert.Equal(t, []string{"alice is happy", "bob is sad"}, wm.Facts())
}

func TestMatches_IndexedByFirstByte(t *testing.T) {
	wm := NewWorkingMemory()
	require.NoError(t, wm.AddGrounded("alice is happy"))
	require.NoError(t, wm.AddGrounded("bob is sad"))

	assert.True(t, wm.matches("alice is happy"))
	assert.False(t, wm.matches("alice is sad"))
}
