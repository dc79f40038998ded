package repl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/storyforge/internal/entity"
	"github.com/dekarrin/storyforge/internal/grammar"
	"github.com/dekarrin/storyforge/internal/rules"
)

// newTestShell builds a Shell around a real rule engine and grammar engine
// but bypasses New (and its readline.Instance) so dispatch and the cmd*
// helpers can be exercised without a terminal attached.
func newTestShell(t *testing.T, out *bytes.Buffer) *Shell {
	t.Helper()
	rule := &rules.Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []rules.Role{{Name: "A", Type: "Person"}},
	}
	seed := int64(1)
	re, err := rules.NewEngine([]*rules.Rule{rule},
		map[string][]entity.Entity{"Person": {entity.New("alice", "Person")}},
		nil,
		rules.EngineOptions{Seed: &seed},
	)
	require.NoError(t, err)

	g := &grammar.Grammar{Symbols: map[string]*grammar.NonterminalSymbol{
		"cheer": {Name: "cheer", Rules: []grammar.ProductionRule{
			{Head: "cheer", Body: []grammar.Element{grammar.Terminal("Hooray!")}},
		}},
	}}
	ge := grammar.NewEngine(g, nil, grammar.EngineOptions{})

	return &Shell{Rules: re, Grammar: ge, out: out}
}

func TestDispatch_Help(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	require.NoError(t, s.dispatch("HELP", nil))
	assert.Contains(t, buf.String(), "STEP")
	assert.Contains(t, buf.String(), "QUIT")
}

func TestDispatch_UnknownCommandIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	err := s.dispatch("FROBNICATE", nil)
	assert.Error(t, err)
}

func TestCmdStep_FiresRuleAndReportsIt(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	require.NoError(t, s.cmdStep(nil))
	assert.Contains(t, buf.String(), "fired:")
	assert.Contains(t, buf.String(), "alice cheers")
}

func TestCmdStep_InvalidCountIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	err := s.cmdStep([]string{"not-a-number"})
	assert.Error(t, err)
}

func TestCmdStep_ReportsNoFiring(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)
	s.Rules.WorkingMemory() // sanity: engine exists

	// Build a fresh engine whose only rule needs a Ghost, a type with no
	// entities in the (empty) domain, so no role is bindable and STEP finds
	// nothing to fire.
	rule := &rules.Rule{
		ActionName:   "cheer",
		ActionString: "<{A} cheers>",
		Probability:  1.0,
		Roles:        []rules.Role{{Name: "A", Type: "Ghost"}},
	}
	seed := int64(1)
	re, err := rules.NewEngine([]*rules.Rule{rule}, nil, nil, rules.EngineOptions{Seed: &seed})
	require.NoError(t, err)
	s.Rules = re

	require.NoError(t, s.cmdStep(nil))
	assert.Contains(t, buf.String(), "no rule fired")
}

func TestCmdFacts_PrintsEachFact(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)
	require.NoError(t, s.Rules.WorkingMemory().AddGrounded("alice is happy"))

	s.cmdFacts()

	assert.Contains(t, buf.String(), "alice is happy")
}

func TestCmdEntities_PrintsNameTypeAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	s.cmdEntities()

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Person")
}

func TestCmdActions_PrintsFiredActionsInOrder(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)
	require.NoError(t, s.Rules.Execute(1))

	buf.Reset()
	s.cmdActions()

	assert.Contains(t, buf.String(), "0: alice cheers")
}

func TestCmdTrace_ReportsBindableWithBindings(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	require.NoError(t, s.cmdTrace([]string{"cheer"}))

	out := buf.String()
	assert.Contains(t, out, "bindable: true")
	assert.Contains(t, out, "A = alice")
}

func TestCmdTrace_WrongArgCountIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	err := s.cmdTrace(nil)
	assert.Error(t, err)

	err = s.cmdTrace([]string{"a", "b"})
	assert.Error(t, err)
}

func TestCmdTrace_UnknownActionReportsReason(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	require.NoError(t, s.cmdTrace([]string{"nonexistent"}))
	assert.Contains(t, buf.String(), "no such action")
}

func TestCmdGenerate_RendersTextForFiredAction(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)
	require.NoError(t, s.Rules.Execute(1))
	buf.Reset()

	require.NoError(t, s.cmdGenerate([]string{"cheer"}))

	assert.Contains(t, buf.String(), "Hooray!")
}

func TestCmdGenerate_NoGrammarEngineIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)
	s.Grammar = nil
	require.NoError(t, s.Rules.Execute(1))

	err := s.cmdGenerate([]string{"cheer"})
	assert.Error(t, err)
}

func TestCmdGenerate_ActionNotYetFiredIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	err := s.cmdGenerate([]string{"cheer"})
	assert.Error(t, err)
}

func TestCmdGenerate_WrongArgCountIsError(t *testing.T) {
	var buf bytes.Buffer
	s := newTestShell(t, &buf)

	err := s.cmdGenerate(nil)
	assert.Error(t, err)
}
