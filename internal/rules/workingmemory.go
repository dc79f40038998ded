package rules

import (
	"sort"
	"strings"

	"github.com/dekarrin/storyforge/internal/sferrors"
)

// WorkingMemory is the indexed, mutable fact base the rule engine reads
// preconditions against and writes effects into. Facts are flat strings; the
// store is a set, indexed by first character for the common case of a
// plain (non-wildcard) probe.
type WorkingMemory struct {
	facts map[string]struct{}
	index map[byte]map[string]struct{}
}

// NewWorkingMemory returns an empty WorkingMemory.
func NewWorkingMemory() *WorkingMemory {
	return &WorkingMemory{
		facts: make(map[string]struct{}),
		index: make(map[byte]map[string]struct{}),
	}
}

// AddGrounded inserts fact directly, bypassing predicate grounding. It
// rejects facts beginning with '*': a leading wildcard is reserved syntax
// for a condition's regex probe and can never be a literal fact.
func (wm *WorkingMemory) AddGrounded(fact string) error {
	if strings.HasPrefix(fact, "*") {
		return sferrors.NewValidation("", 0, fact, "fact may not begin with '*'")
	}
	wm.insert(fact)
	return nil
}

func (wm *WorkingMemory) insert(fact string) {
	if _, ok := wm.facts[fact]; ok {
		return
	}
	wm.facts[fact] = struct{}{}
	bucket := wm.index[fact[0]]
	if bucket == nil {
		bucket = make(map[string]struct{})
		wm.index[fact[0]] = bucket
	}
	bucket[fact] = struct{}{}
}

func (wm *WorkingMemory) remove(fact string) {
	if _, ok := wm.facts[fact]; !ok {
		return
	}
	delete(wm.facts, fact)
	if bucket, ok := wm.index[fact[0]]; ok {
		delete(bucket, fact)
	}
}

// Add grounds p against bindings and inserts the resulting fact. If
// grounding references a role absent from bindings (an unbound optional
// role) or yields an empty string, Add is a no-op: this is the deliberate
// "missing optional role in an effect is not an error" semantics.
func (wm *WorkingMemory) Add(p Predicate, bindings Bindings) error {
	grounded, ok := Ground(p, bindings)
	if !ok || grounded == "" {
		return nil
	}
	return wm.AddGrounded(grounded)
}

// Delete grounds p against bindings and removes the exact matching fact if
// present. Like Add, an unbindable grounding is a silent no-op.
func (wm *WorkingMemory) Delete(p Predicate, bindings Bindings) error {
	grounded, ok := Ground(p, bindings)
	if !ok || grounded == "" {
		return nil
	}
	wm.remove(grounded)
	return nil
}

// HasFact reports whether literal is present in the store verbatim.
func (wm *WorkingMemory) HasFact(literal string) bool {
	_, ok := wm.facts[literal]
	return ok
}

// matches tests a grounded template against the store: a plain probe checks
// only the index bucket keyed by grounded's first character, while a
// grounding containing '*' is compiled into an anchored regular expression
// and checked against the full fact set.
func (wm *WorkingMemory) matches(grounded string) bool {
	if grounded == "" {
		return false
	}
	if !strings.Contains(grounded, "*") {
		bucket, ok := wm.index[grounded[0]]
		if !ok {
			return false
		}
		_, found := bucket[grounded]
		return found
	}

	re, err := compileWildcard(grounded)
	if err != nil {
		return false
	}
	for fact := range wm.facts {
		if re.MatchString(fact) {
			return true
		}
	}
	return false
}

// Facts returns every fact currently in the store, sorted, for deterministic
// diagnostic output (the appendix of facts a driver may emit).
func (wm *WorkingMemory) Facts() []string {
	out := make([]string, 0, len(wm.facts))
	for f := range wm.facts {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of facts currently held.
func (wm *WorkingMemory) Len() int {
	return len(wm.facts)
}
