// Package rules implements the forward-chaining rule engine: working
// memory, role-binding candidate search, probabilistic firing, and
// response-action chaining over a compiled rule set.
package rules

import (
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/dekarrin/storyforge/internal/entity"
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// EngineOptions configures a new Engine. The zero value is usable: rules
// fire in declaration order (no shuffling) and the RNG is seeded from
// wall-clock time.
type EngineOptions struct {
	// ShuffleRandomly, when true, shuffles the rule pool and each role's
	// candidate pool before every attempt, so authoring order does not bias
	// which rule fires first.
	ShuffleRandomly bool

	// Seed, when non-nil, seeds the engine's RNG deterministically.
	Seed *int64

	// Logger receives diagnostic trace lines when non-nil.
	Logger *log.Logger
}

// Engine is a forward-chaining rule engine: it owns a working memory, an
// appendable domain of entities by type, and the compiled rule set it
// searches each time Execute is asked for another attempt.
type Engine struct {
	rules        []*Rule
	ruleByAction map[string]*Rule
	domain       map[string][]entity.Entity
	entityByName map[string]entity.Entity
	wm           *WorkingMemory
	actions      []Action

	shuffleRandomly bool
	rng             *rand.Rand
	seed            int64
	logger          *log.Logger
}

// NewEngine builds an Engine from a compiled rule set, an initial domain
// (type -> entities), and a set of initial facts. Action names must be
// unique across rules; this is enforced by the compiler, not re-checked
// here.
func NewEngine(rules []*Rule, domain map[string][]entity.Entity, initialFacts []string, opts EngineOptions) (*Engine, error) {
	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	e := &Engine{
		rules:           rules,
		ruleByAction:    make(map[string]*Rule, len(rules)),
		domain:          make(map[string][]entity.Entity, len(domain)),
		entityByName:    make(map[string]entity.Entity),
		wm:              NewWorkingMemory(),
		shuffleRandomly: opts.ShuffleRandomly,
		rng:             rand.New(rand.NewSource(seed)),
		seed:            seed,
		logger:          opts.Logger,
	}

	for _, r := range rules {
		e.ruleByAction[r.ActionName] = r
	}
	for typ, entities := range domain {
		copied := make([]entity.Entity, len(entities))
		copy(copied, entities)
		e.domain[typ] = copied
		for _, ent := range entities {
			e.entityByName[ent.Name] = ent
		}
	}
	for _, f := range initialFacts {
		if err := e.wm.AddGrounded(f); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Seed returns the RNG seed the engine resolved at construction time
// (either the one explicitly passed via EngineOptions.Seed, or the
// wall-clock-derived one chosen in its absence), so callers building a
// diagnostic trace can record it.
func (e *Engine) Seed() int64 { return e.seed }

// WorkingMemory exposes the engine's fact store for diagnostic reads.
func (e *Engine) WorkingMemory() *WorkingMemory {
	return e.wm
}

// EntityByName looks up a known entity by name.
func (e *Engine) EntityByName(name string) (entity.Entity, bool) {
	ent, ok := e.entityByName[name]
	return ent, ok
}

// Entities returns every entity known to the engine, sorted by name.
func (e *Engine) Entities() []entity.Entity {
	out := make([]entity.Entity, 0, len(e.entityByName))
	for _, ent := range e.entityByName {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RuleByActionName looks up a compiled rule by its action name.
func (e *Engine) RuleByActionName(name string) (*Rule, bool) {
	r, ok := e.ruleByAction[name]
	return r, ok
}

// ProducedAction reports whether any fired Action so far has the given
// action name.
func (e *Engine) ProducedAction(name string) bool {
	for _, a := range e.actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// ActionsInvolving returns every fired Action whose bindings include the
// named entity, in firing order.
func (e *Engine) ActionsInvolving(entityName string) []Action {
	var out []Action
	for _, a := range e.actions {
		if a.InvolvesEntity(entityName) {
			out = append(out, a)
		}
	}
	return out
}

// Actions returns every Action fired so far, in firing order.
func (e *Engine) Actions() []Action {
	out := make([]Action, len(e.actions))
	copy(out, e.actions)
	return out
}

// Execute attempts up to n firings, one per attempt. An attempt takes one
// probability draw for the first rule whose required roles could be bound
// and whose remaining preconditions held, plus one more draw for each
// response action whose preconditions hold once a rule fires; an attempt
// that finds no satisfiable rule, or whose draw fails the rule's
// probability, simply ends without firing anything.
func (e *Engine) Execute(n int) error {
	for i := 0; i < n; i++ {
		if err := e.attempt(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) attempt() error {
	pool := make([]*Rule, len(e.rules))
	copy(pool, e.rules)
	if e.shuffleRandomly {
		e.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	pool = e.pruneRulesPool(pool)

	for _, rule := range pool {
		if rule.IsResponseAction {
			continue
		}
		if !e.domainHasRequiredTypes(rule) {
			continue
		}

		bindings, err := e.firstCandidateBinding(rule)
		if err != nil {
			return err
		}
		if bindings == nil {
			continue
		}

		if e.logger != nil {
			e.logger.Printf("attempt: candidate found for %s", rule.ActionName)
		}

		if e.rng.Float64() >= rule.Probability {
			return nil
		}

		bound, err := e.bindOptionalAndEntityRoles(rule, bindings)
		if err != nil {
			return err
		}
		return e.fireRule(rule, bound)
	}
	return nil
}

// pruneRulesPool drops any rule at least one of whose zero-role (constant)
// preconditions fails to hold in the current working memory.
func (e *Engine) pruneRulesPool(pool []*Rule) []*Rule {
	out := make([]*Rule, 0, len(pool))
	for _, rule := range pool {
		keep := true
		for _, cond := range rule.Preconditions {
			if len(ReferencedRoleNames(cond)) != 0 {
				continue
			}
			h, err := Holds(e.wm, cond, Bindings{})
			if err != nil || !h {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rule)
		}
	}
	return out
}

func (e *Engine) domainHasRequiredTypes(rule *Rule) bool {
	for _, role := range rule.Roles {
		if !role.Required() {
			continue
		}
		if len(e.domain[role.Type]) == 0 {
			return false
		}
	}
	return true
}

// ignorablePreconditions reports, per index into rule.Preconditions,
// whether that condition references exactly one role and that role is
// required: such conditions are already guaranteed by per-role candidate
// pruning (prunedPool) and need not be re-evaluated per binding tuple. Per
// the source this does not recurse into OR alternates: an OrExpression with
// more than one alternative is never marked ignorable even if every
// alternative happens to reference the same single role.
func ignorablePreconditions(rule *Rule) []bool {
	out := make([]bool, len(rule.Preconditions))
	for i, cond := range rule.Preconditions {
		if len(cond.Alternatives) != 1 {
			continue
		}
		refs := ReferencedRoleNames(cond)
		if len(refs) != 1 {
			continue
		}
		role, ok := rule.RoleByName(refs[0])
		if ok && role.Required() {
			out[i] = true
		}
	}
	return out
}

func referencesOptionalRole(cond Condition, rule *Rule) bool {
	for _, name := range ReferencedRoleNames(cond) {
		role, ok := rule.RoleByName(name)
		if ok && role.Optional {
			return true
		}
	}
	return false
}

func requiredNonSelfRoles(rule *Rule) []Role {
	var out []Role
	for _, r := range rule.Roles {
		if r.Required() {
			out = append(out, r)
		}
	}
	return out
}

// prunedPool filters the entities of role.Type down to those for whom every
// precondition that references only that role already holds, optionally
// shuffling the result.
func (e *Engine) prunedPool(role Role, rule *Rule) []entity.Entity {
	pool := e.domain[role.Type]

	var singleRoleConds []Condition
	for _, cond := range rule.Preconditions {
		refs := ReferencedRoleNames(cond)
		if len(refs) == 1 && refs[0] == role.Name {
			singleRoleConds = append(singleRoleConds, cond)
		}
	}

	out := make([]entity.Entity, 0, len(pool))
	for _, cand := range pool {
		bindings := Bindings{role.Name: cand}
		ok := true
		for _, cond := range singleRoleConds {
			h, err := Holds(e.wm, cond, bindings)
			if err != nil || !h {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, cand)
		}
	}

	if e.shuffleRandomly {
		e.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// firstCandidateBinding searches the Cartesian product of required roles'
// pruned candidate pools for the first tuple (rejecting any with a repeated
// entity across roles) satisfying every precondition not already guaranteed
// by pool pruning and not deferred because it references an optional role.
// It returns nil, nil if no such tuple exists.
func (e *Engine) firstCandidateBinding(rule *Rule) (Bindings, error) {
	requiredRoles := requiredNonSelfRoles(rule)
	ignore := ignorablePreconditions(rule)

	pools := make([][]entity.Entity, len(requiredRoles))
	for i, role := range requiredRoles {
		pools[i] = e.prunedPool(role, rule)
		if len(pools[i]) == 0 {
			return nil, nil
		}
	}

	var remaining []Condition
	for i, cond := range rule.Preconditions {
		if ignore[i] {
			continue
		}
		if referencesOptionalRole(cond, rule) {
			continue
		}
		remaining = append(remaining, cond)
	}

	var result Bindings
	var holdErr error

	var search func(idx int, acc Bindings) bool
	search = func(idx int, acc Bindings) bool {
		if idx == len(requiredRoles) {
			for _, cond := range remaining {
				h, err := Holds(e.wm, cond, acc)
				if err != nil {
					holdErr = err
					return false
				}
				if !h {
					return false
				}
			}
			result = acc.Copy()
			return true
		}
		role := requiredRoles[idx]
		for _, cand := range pools[idx] {
			if boundElsewhere(acc, cand.Name) {
				continue
			}
			acc[role.Name] = cand
			if search(idx+1, acc) {
				return true
			}
			if holdErr != nil {
				return false
			}
			delete(acc, role.Name)
		}
		return false
	}

	search(0, Bindings{})
	if holdErr != nil {
		return nil, holdErr
	}
	return result, nil
}

func boundElsewhere(acc Bindings, name string) bool {
	for _, ent := range acc {
		if ent.Name == name {
			return true
		}
	}
	return false
}

// bindOptionalAndEntityRoles implements §4.4.1: each non-required,
// non-self-reference, non-entity-creating role is bound by scanning its
// type's domain pool in order, skipping already-bound entities, and
// committing the first candidate for which every one of the rule's
// preconditions holds. Entity-creating roles are bound afterward, by
// interpolating their recipe against the bindings gathered so far and
// uniquifying the resulting name against every known entity.
func (e *Engine) bindOptionalAndEntityRoles(rule *Rule, bindings Bindings) (Bindings, error) {
	result := bindings.Copy()

	for _, role := range rule.Roles {
		if role.SelfReference() || role.Required() || role.EntityCreating() {
			continue
		}
		for _, cand := range e.domain[role.Type] {
			if boundElsewhere(result, cand.Name) {
				continue
			}
			trial := result.Copy()
			trial[role.Name] = cand
			allHold := true
			for _, cond := range rule.Preconditions {
				h, err := Holds(e.wm, cond, trial)
				if err != nil {
					return nil, err
				}
				if !h {
					allHold = false
					break
				}
			}
			if allHold {
				result = trial
				break
			}
		}
	}

	for _, role := range rule.Roles {
		if !role.EntityCreating() {
			continue
		}
		name, err := Interpolate(role.Recipe, result)
		if err != nil {
			return nil, err
		}
		taken := make(map[string]bool, len(e.entityByName))
		for n := range e.entityByName {
			taken[n] = true
		}
		name = Uniquify(name, taken)

		newEnt := entity.New(name, role.Type)
		e.domain[role.Type] = append(e.domain[role.Type], newEnt)
		e.entityByName[name] = newEnt
		result[role.Name] = newEnt
	}

	return result, nil
}

// fireRule is the shared firing transaction used both for a top-level
// attempt and for a recursively chained response action: compute the
// action display string, create and bind the Action entity to "This",
// record the Action, apply effects in declaration order, then attempt
// declared responses in declaration order.
func (e *Engine) fireRule(rule *Rule, bindings Bindings) error {
	raw, err := Interpolate(rule.ActionString, bindings)
	if err != nil {
		return err
	}
	actionStr := trimAuthorBrackets(raw)

	actionEnt := entity.New(actionStr, "Action")
	e.domain["Action"] = append(e.domain["Action"], actionEnt)
	e.entityByName[actionStr] = actionEnt

	fireBindings := bindings.Copy()
	fireBindings[SelfRoleName] = actionEnt

	e.actions = append(e.actions, Action{
		Name:     rule.ActionName,
		String:   actionStr,
		Bindings: fireBindings.Copy(),
	})

	for _, eff := range rule.Effects {
		if err := e.applyEffect(eff, fireBindings); err != nil {
			return err
		}
	}

	for _, resp := range rule.Responses {
		if err := e.attemptResponse(rule, resp, fireBindings); err != nil {
			return err
		}
	}

	return nil
}

// trimAuthorBrackets removes a single pair of literal angle brackets an
// author used to visually delimit an action display string in the rules
// file, once the template interpolation inside them has already run.
func trimAuthorBrackets(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

func (e *Engine) applyEffect(eff Effect, bindings Bindings) error {
	switch v := eff.(type) {
	case Predicate:
		if v.Negated {
			return e.wm.Delete(v, bindings)
		}
		return e.wm.Add(v, bindings)
	case TernaryExpression:
		h, err := Holds(e.wm, v.Condition, bindings)
		if err != nil {
			return err
		}
		branch := v.IfTrue
		if !h {
			branch = v.IfFalse
		}
		if branch == nil {
			return nil
		}
		return e.applyEffect(branch, bindings)
	default:
		return sferrors.NewProgrammer("unknown effect type %T", eff)
	}
}

// attemptResponse implements response-action chaining: bindings are
// composed by mapping the firing rule's source roles onto the target rule's
// role names, preconditions are evaluated, and the probability draw is
// taken against the firing rule's probability rather than the target
// rule's — reproducing the original's behavior exactly (see the open
// question on response-action probability).
func (e *Engine) attemptResponse(firingRule *Rule, resp ResponseAction, firingBindings Bindings) error {
	targetRule, ok := e.ruleByAction[resp.ActionName]
	if !ok {
		return sferrors.NewRuntime("response action %q: no such rule", resp.ActionName)
	}

	newBindings := Bindings{}
	for targetRole, sourceRole := range resp.Bindings {
		ent, ok := firingBindings[sourceRole]
		if !ok {
			continue
		}
		newBindings[targetRole] = ent
	}

	for _, cond := range targetRule.Preconditions {
		if referencesOptionalRole(cond, targetRule) {
			continue
		}
		h, err := Holds(e.wm, cond, newBindings)
		if err != nil {
			return err
		}
		if !h {
			return nil
		}
	}

	if e.rng.Float64() >= firingRule.Probability {
		return nil
	}

	bound, err := e.bindOptionalAndEntityRoles(targetRule, newBindings)
	if err != nil {
		return err
	}
	return e.fireRule(targetRule, bound)
}
