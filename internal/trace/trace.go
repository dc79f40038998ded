// Package trace records a diagnostic, rezi-encoded snapshot of one run:
// the seeds used, the sequence of fired actions and their bindings, and
// the grammar derivations chosen for each. It exists so a failing or
// surprising run can be captured to a file and compared byte-for-byte
// against a later run, without ever being read back in to resume a run —
// storyforge carries no persistence of engine state across invocations.
package trace

import (
	"fmt"
	"os"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/storyforge/internal/rules"
)

// FiredAction is one entry in a run's fired-action sequence.
type FiredAction struct {
	ActionName string
	Bindings   map[string]string
	IsResponse bool
}

// Generation is one grammar derivation performed for a fired action.
type Generation struct {
	ActionName  string
	StartSymbol string
	Text        string
}

// Trace is the full diagnostic record of one Driver run.
type Trace struct {
	RuleSeed    int64
	GrammarSeed int64
	Actions     []FiredAction
	Generations []Generation
	FinalFacts  []string
}

// FromActions builds the Actions portion of a Trace from the rule
// engine's recorded action sequence.
func FromActions(actions []rules.Action) []FiredAction {
	out := make([]FiredAction, 0, len(actions))
	for _, a := range actions {
		bindings := make(map[string]string, len(a.Bindings))
		for role, ent := range a.Bindings {
			bindings[role] = ent.Name
		}
		out = append(out, FiredAction{
			ActionName: a.Name,
			Bindings:   bindings,
		})
	}
	return out
}

// Encode rezi-encodes t to bytes.
func Encode(t *Trace) []byte {
	return rezi.EncBinary(t)
}

// Decode rezi-decodes data into a new Trace.
func Decode(data []byte) (*Trace, error) {
	t := &Trace{}
	n, err := rezi.DecBinary(data, t)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &ShortReadError{Consumed: n, Total: len(data)}
	}
	return t, nil
}

// WriteFile rezi-encodes t and writes it to path.
func WriteFile(path string, t *Trace) error {
	return os.WriteFile(path, Encode(t), 0644)
}

// ReadFile reads and rezi-decodes the trace at path.
func ReadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// ShortReadError reports that a rezi decode did not consume the entire
// buffer, which indicates trailing garbage or a version mismatch between
// the encoder and decoder.
type ShortReadError struct {
	Consumed int
	Total    int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("trace: rezi decode consumed only %d/%d bytes", e.Consumed, e.Total)
}
