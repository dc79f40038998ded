package rules

import (
	"regexp"
	"strings"

	"github.com/dekarrin/storyforge/internal/entity"
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// Bindings maps a rule's role names to the entities currently bound to them.
type Bindings map[string]entity.Entity

// Copy returns a shallow copy of b, safe to mutate independently.
func (b Bindings) Copy() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Token is one element of a Predicate's template: either a literal word
// (including the wildcard literal "*") or a reference to a role declared on
// the enclosing rule.
type Token struct {
	Literal string
	IsRole  bool
}

// Predicate is an ordered template of Tokens, optionally negated. Grounding
// a Predicate against Bindings yields a Fact string.
type Predicate struct {
	Tokens  []Token
	Negated bool
}

// Condition is a precondition: either a bare Predicate or a disjunction of
// them. Preconditions are always represented as an OrExpression, even when
// there is exactly one alternative, so evaluation has a single code path.
type Condition = OrExpression

// OrExpression is a disjunction over Predicates. Negated inverts the whole
// disjunction (de Morgan'd at evaluation time, not at each alternative).
type OrExpression struct {
	Alternatives []Predicate
	Negated      bool
}

// Effect is a rule effect, evaluated against working memory on firing: a
// Predicate (add or, if negated, delete) or a TernaryExpression.
type Effect interface {
	isEffect()
}

func (Predicate) isEffect() {}

// TernaryExpression is a conditional effect: IfTrue fires when Condition
// holds, otherwise IfFalse. Either branch may be nil (no-op).
type TernaryExpression struct {
	Condition Condition
	IfTrue    Effect
	IfFalse   Effect
}

func (TernaryExpression) isEffect() {}

// ReferencedRoleNames returns, in first-seen order, the distinct role names
// referenced anywhere in cond's alternatives.
func ReferencedRoleNames(cond Condition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, alt := range cond.Alternatives {
		for _, t := range alt.Tokens {
			if t.IsRole && !seen[t.Literal] {
				seen[t.Literal] = true
				out = append(out, t.Literal)
			}
		}
	}
	return out
}

// Ground concatenates p's tokens with single spaces, substituting each role
// reference with its bound entity's name. If a role reference is not
// present in bindings, ok is false and the grounding is skipped by the
// caller (the deliberate "missing optional role in an effect" no-op
// semantics).
func Ground(p Predicate, bindings Bindings) (grounded string, ok bool) {
	parts := make([]string, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		if !t.IsRole {
			parts = append(parts, t.Literal)
			continue
		}
		ent, found := bindings[t.Literal]
		if !found {
			return "", false
		}
		parts = append(parts, ent.Name)
	}
	return strings.Join(parts, " "), true
}

// HoldsPredicate grounds p and tests the grounded fact against wm, applying
// p.Negated to the result. If p references a role absent from bindings, an
// error is returned: by the time a precondition is evaluated, every role it
// references is expected to already be bound (required roles before the
// search, optional roles once step 4.4.1 has run).
func HoldsPredicate(wm *WorkingMemory, p Predicate, bindings Bindings) (bool, error) {
	grounded, ok := Ground(p, bindings)
	if !ok {
		return false, sferrors.NewProgrammer("precondition references an unbound role")
	}
	h := wm.matches(grounded)
	if p.Negated {
		h = !h
	}
	return h, nil
}

// Holds evaluates cond (a Condition/OrExpression) against wm: alternatives
// are tried in order and evaluation short-circuits on the first holding
// disjunct, and Negated inverts the final answer.
func Holds(wm *WorkingMemory, cond Condition, bindings Bindings) (bool, error) {
	any := false
	for _, alt := range cond.Alternatives {
		h, err := HoldsPredicate(wm, alt, bindings)
		if err != nil {
			return false, err
		}
		if h {
			any = true
			break
		}
	}
	if cond.Negated {
		return !any, nil
	}
	return any, nil
}

// compileWildcard compiles a grounded fact containing '*' into an
// anchored-at-start regular expression, the way the wildcard probe is
// described in §4.3: prepend '.' when the grounding begins with '*' so the
// leading wildcard has something to repeat.
func compileWildcard(grounded string) (*regexp.Regexp, error) {
	pattern := grounded
	if strings.HasPrefix(pattern, "*") {
		pattern = "." + pattern
	}
	return regexp.Compile("^" + pattern)
}
