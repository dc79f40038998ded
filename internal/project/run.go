package project

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dekarrin/storyforge/internal/entity"
	"github.com/dekarrin/storyforge/internal/rules"
)

// NewRunID generates a fresh run identifier, stamped into log lines and
// used as the default output filename when a manifest sets none.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// RunUntilAction repeatedly attempts engine until it has produced an
// action named actionName, or maxAttempts single-attempt calls have been
// made without doing so. It is the general form of the original's
// "while not rule_engine.produced_action(...): rule_engine.execute(n=1)"
// polling loop.
func RunUntilAction(engine *rules.Engine, actionName string, maxAttempts int) error {
	for i := 0; i < maxAttempts; i++ {
		if engine.ProducedAction(actionName) {
			return nil
		}
		if err := engine.Execute(1); err != nil {
			return err
		}
	}
	if engine.ProducedAction(actionName) {
		return nil
	}
	return fmt.Errorf("action %q was not produced within %d attempts", actionName, maxAttempts)
}

// EntityWithFact scans engine's domain for the first entity (in name order
// across all types, as returned by Engine.Entities) for which
// fmt.Sprintf(factTemplate, entity.Name) holds in working memory. This
// generalizes the original's "find the entity such that '{name} is the
// detective'-shaped fact holds" pattern used to locate the protagonist,
// murderer, and victim once the briefing action had fired.
func EntityWithFact(engine *rules.Engine, factTemplate string) (entity.Entity, bool) {
	wm := engine.WorkingMemory()
	for _, e := range engine.Entities() {
		fact := fmt.Sprintf(factTemplate, e.Name)
		if wm.HasFact(fact) {
			return e, true
		}
	}
	return entity.Entity{}, false
}
