package storyforge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/storyforge/internal/document"
	"github.com/dekarrin/storyforge/internal/project"
)

func TestDriver_RunProducesExpectedActionsAndProse(t *testing.T) {
	manifest, err := project.Load("testdata/project/project.toml")
	require.NoError(t, err)

	var buf bytes.Buffer
	drv, err := New(manifest, WithDocument(document.NewConsoleDocument(&buf, 80)))
	require.NoError(t, err)

	require.NoError(t, drv.Run(manifest.MaxAttempts))

	actions := drv.Rules().Actions()
	require.Len(t, actions, 3, "Greet should fire, chain a response into Echo, and unblock WriteNote")
	assert.Equal(t, "Greet", actions[0].Name)
	assert.Equal(t, "Echo", actions[1].Name)
	assert.Equal(t, "WriteNote", actions[2].Name)

	assert.True(t, drv.Rules().ProducedAction("Greet"))
	assert.True(t, drv.Rules().ProducedAction("Echo"))
	assert.True(t, drv.Rules().ProducedAction("WriteNote"))

	note, ok := drv.Rules().EntityByName("alice's Note")
	require.True(t, ok, "WriteNote's entity-creating role should have minted a Prop named after its recipe")
	assert.Equal(t, "Prop", note.Type)

	facts := drv.Rules().WorkingMemory().Facts()
	assert.Contains(t, facts, "alice is happy")
	assert.Contains(t, facts, "alice has greeted")
	assert.Contains(t, facts, "alice has echoed")
	assert.Contains(t, facts, "alice's Note exists")

	out := buf.String()
	assert.Contains(t, out, "The Missing Heirloom")
	assert.Contains(t, out, "greets alice with a")
	assert.Contains(t, out, "smile.")
	assert.Contains(t, out, `alice echoes: "Hear, hear!"`)
	assert.Contains(t, out, `alice writes a note titled "alice's Note,"`)
	assert.Contains(t, out, "which reads:")
	assert.Contains(t, out, "Appendix: Facts")

	noteLines := []string{
		"the ink has run in the rain",
		"a date is circled twice, hard enough to tear the page",
		"only a single word, underlined three times",
	}
	// The note line is checked in the generated text rather than in buf:
	// the console document wraps at 80 columns, and the WriteNote paragraph
	// is longer than that, so a note line may be split across output lines.
	var noteText string
	for _, g := range drv.Generations() {
		if g.ActionName == "WriteNote" {
			noteText = g.Text
		}
	}
	foundLine := false
	for _, l := range noteLines {
		if strings.Contains(noteText, l) {
			foundLine = true
			break
		}
	}
	assert.True(t, foundLine, "generated note text should include one of the corpus's note lines")
}

func TestDriver_RunIsDeterministicForAFixedSeed(t *testing.T) {
	manifest, err := project.Load("testdata/project/project.toml")
	require.NoError(t, err)

	run := func() string {
		var buf bytes.Buffer
		drv, err := New(manifest, WithDocument(document.NewConsoleDocument(&buf, 80)))
		require.NoError(t, err)
		require.NoError(t, drv.Run(manifest.MaxAttempts))
		return buf.String()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "a manifest with a fixed seed should produce byte-identical output across runs")
}
