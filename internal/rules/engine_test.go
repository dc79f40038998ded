package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/storyforge/internal/entity"
)

func seedOpts(seed int64) EngineOptions {
	return EngineOptions{Seed: &seed}
}

func TestEngine_FiresTrivialRuleAndRecordsAction(t *testing.T) {
	rule := &Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
		Preconditions: []Condition{
			{Alternatives: []Predicate{{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}}},
		},
		Effects: []Effect{Predicate{Tokens: []Token{roleTok("A"), tok("is"), tok("cheered")}}},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}}
	e, err := NewEngine([]*Rule{rule}, domain, []string{"alice is happy"}, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(1))

	assert.True(t, e.ProducedAction("cheer"))
	require.Len(t, e.Actions(), 1)
	assert.Equal(t, "alice cheers", e.Actions()[0].String)
	assert.True(t, e.WorkingMemory().HasFact("alice is cheered"))
}

func TestEngine_NoSatisfiableRuleDoesNotFire(t *testing.T) {
	rule := &Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
		Preconditions: []Condition{
			{Alternatives: []Predicate{{Tokens: []Token{roleTok("A"), tok("is"), tok("happy")}}}},
		},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}}
	e, err := NewEngine([]*Rule{rule}, domain, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(3))
	assert.False(t, e.ProducedAction("cheer"))
	assert.Empty(t, e.Actions())
}

func TestEngine_MissingRequiredDomainTypeSkipsRule(t *testing.T) {
	rule := &Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
	}

	e, err := NewEngine([]*Rule{rule}, map[string][]entity.Entity{}, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(1))
	assert.False(t, e.ProducedAction("cheer"))
}

func TestEngine_EntityCreatingRoleSynthesizesAndUniquifiesEntities(t *testing.T) {
	rule := &Rule{
		ActionName:   "write_note",
		ActionString: "<{Writer} writes a note>",
		Probability:  1.0,
		Roles: []Role{
			{Name: "Writer", Type: "Person"},
			{Name: "Note", Type: "Prop", Recipe: "{Writer}'s Note"},
		},
		Effects: []Effect{Predicate{Tokens: []Token{roleTok("Writer"), tok("wrote"), roleTok("Note")}}},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}}
	e, err := NewEngine([]*Rule{rule}, domain, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(2))

	notes := e.domain["Prop"]
	require.Len(t, notes, 2)
	names := map[string]bool{notes[0].Name: true, notes[1].Name: true}
	assert.True(t, names["alice's Note"])
	assert.True(t, names["alice's Note (1)"])
}

func TestEngine_ResponseChainUsesFiringRuleProbability(t *testing.T) {
	confess := &Rule{
		ActionName:   "confess",
		ActionString: "<{A} confesses>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
		Responses: []ResponseAction{
			{ActionName: "gossip", Bindings: map[string]string{"Speaker": "A"}},
		},
	}
	gossip := &Rule{
		ActionName:       "gossip",
		ActionString:     "<{Speaker} gossips>",
		IsResponseAction: true,
		Probability:      0.0,
		Roles:            []Role{{Name: "Speaker", Type: "Person"}},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}}
	e, err := NewEngine([]*Rule{confess, gossip}, domain, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(1))

	assert.True(t, e.ProducedAction("confess"))
	assert.True(t, e.ProducedAction("gossip"), "response should fire against the firing rule's probability, not its own")
	require.Len(t, e.Actions(), 2)
	assert.Equal(t, "confess", e.Actions()[0].Name)
	assert.Equal(t, "gossip", e.Actions()[1].Name)
}

func TestEngine_ResponsePreconditionStillGatesFiring(t *testing.T) {
	confess := &Rule{
		ActionName:   "confess",
		ActionString: "<{A} confesses>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
		Responses: []ResponseAction{
			{ActionName: "gossip", Bindings: map[string]string{"Speaker": "A"}},
		},
	}
	gossip := &Rule{
		ActionName:       "gossip",
		ActionString:     "<{Speaker} gossips>",
		IsResponseAction: true,
		Probability:      1.0,
		Roles:            []Role{{Name: "Speaker", Type: "Person"}},
		Preconditions: []Condition{
			{Alternatives: []Predicate{{Tokens: []Token{roleTok("Speaker"), tok("is"), tok("chatty")}}}},
		},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}}
	e, err := NewEngine([]*Rule{confess, gossip}, domain, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(1))

	assert.True(t, e.ProducedAction("confess"))
	assert.False(t, e.ProducedAction("gossip"), "gossip's own precondition is not satisfied, so the response should not fire")
}

func TestEngine_ActionsInvolvingAndEntities(t *testing.T) {
	rule := &Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []Role{{Name: "A", Type: "Person"}},
	}

	domain := map[string][]entity.Entity{"Person": {entity.New("alice", "Person"), entity.New("bob", "Person")}}
	e, err := NewEngine([]*Rule{rule}, domain, nil, seedOpts(1))
	require.NoError(t, err)

	require.NoError(t, e.Execute(1))

	involving := e.ActionsInvolving("alice")
	assert.Len(t, involving, 1)

	assert.Empty(t, e.ActionsInvolving("nobody"))

	all := e.Entities()
	require.Len(t, all, 3, "the two Person entities plus the Action entity created by the firing")
	assert.Equal(t, "alice", all[0].Name)
	assert.Equal(t, "alice cheers", all[1].Name)
	assert.Equal(t, "bob", all[2].Name)
}

func TestEngine_RuleByActionName(t *testing.T) {
	rule := &Rule{ActionName: "cheer", ActionString: "<A cheers>"}
	e, err := NewEngine([]*Rule{rule}, nil, nil, EngineOptions{})
	require.NoError(t, err)

	got, ok := e.RuleByActionName("cheer")
	assert.True(t, ok)
	assert.Same(t, rule, got)

	_, ok = e.RuleByActionName("missing")
	assert.False(t, ok)
}

func TestEngine_SeedReturnsResolvedSeed(t *testing.T) {
	e, err := NewEngine(nil, nil, nil, seedOpts(9))
	require.NoError(t, err)

	assert.Equal(t, int64(9), e.Seed())
}

func TestTrimAuthorBrackets(t *testing.T) {
	assert.Equal(t, "alice waves", trimAuthorBrackets("<alice waves>"))
	assert.Equal(t, "alice waves", trimAuthorBrackets("alice waves"))
	assert.Equal(t, ">", trimAuthorBrackets(">"))
}
