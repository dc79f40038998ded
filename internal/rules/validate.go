package rules

import (
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// Validate performs the rule compiler's cross-rule static checks: unique
// action names, balanced/resolvable action-string brace references, every
// role referenced in a precondition or effect is declared on its rule
// (invariant I1), and every response action's target exists with its
// required roles bound and its source roles declared on the firing rule.
func Validate(rules []*Rule) error {
	byName := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		if _, dup := byName[r.ActionName]; dup {
			return sferrors.NewValidation("", 0, r.ActionName, "duplicate action name %q", r.ActionName)
		}
		byName[r.ActionName] = r
	}

	for _, r := range rules {
		if err := validateActionString(r); err != nil {
			return err
		}
		if err := validateConditionRoles(r); err != nil {
			return err
		}
		if err := validateEffectRoles(r); err != nil {
			return err
		}
		if err := validateResponses(r, byName); err != nil {
			return err
		}
	}

	return nil
}

func validateActionString(r *Rule) error {
	refs, err := BraceReferences(r.ActionString)
	if err != nil {
		return sferrors.NewValidation("", 0, r.ActionString, "rule %q: %v", r.ActionName, err)
	}
	for _, ref := range refs {
		if _, ok := r.RoleByName(ref); !ok {
			return sferrors.NewValidation("", 0, r.ActionString, "rule %q: action string references undeclared role %q", r.ActionName, ref)
		}
	}
	return nil
}

func validateConditionRoles(r *Rule) error {
	for _, cond := range r.Preconditions {
		for _, name := range ReferencedRoleNames(cond) {
			if _, ok := r.RoleByName(name); !ok {
				return sferrors.NewValidation("", 0, "", "rule %q: precondition references undeclared role %q", r.ActionName, name)
			}
		}
	}
	return nil
}

func validateEffectRoles(r *Rule) error {
	for _, eff := range r.Effects {
		if err := validateEffectRoleRefs(r, eff); err != nil {
			return err
		}
	}
	return nil
}

func validateEffectRoleRefs(r *Rule, eff Effect) error {
	switch v := eff.(type) {
	case Predicate:
		for _, t := range v.Tokens {
			if t.IsRole {
				if _, ok := r.RoleByName(t.Literal); !ok {
					return sferrors.NewValidation("", 0, "", "rule %q: effect references undeclared role %q", r.ActionName, t.Literal)
				}
			}
		}
	case TernaryExpression:
		for _, name := range ReferencedRoleNames(v.Condition) {
			if _, ok := r.RoleByName(name); !ok {
				return sferrors.NewValidation("", 0, "", "rule %q: ternary condition references undeclared role %q", r.ActionName, name)
			}
		}
		if v.IfTrue != nil {
			if err := validateEffectRoleRefs(r, v.IfTrue); err != nil {
				return err
			}
		}
		if v.IfFalse != nil {
			if err := validateEffectRoleRefs(r, v.IfFalse); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateResponses(r *Rule, byName map[string]*Rule) error {
	for _, resp := range r.Responses {
		target, ok := byName[resp.ActionName]
		if !ok {
			return sferrors.NewValidation("", 0, "", "rule %q: response action targets unknown action %q", r.ActionName, resp.ActionName)
		}
		for _, role := range target.Roles {
			if !role.Required() {
				continue
			}
			if _, bound := resp.Bindings[role.Name]; !bound {
				return sferrors.NewValidation("", 0, "", "rule %q: response to %q leaves required role %q unbound", r.ActionName, resp.ActionName, role.Name)
			}
		}
		for targetRole, sourceRole := range resp.Bindings {
			if _, ok := target.RoleByName(targetRole); !ok {
				return sferrors.NewValidation("", 0, "", "rule %q: response to %q binds unknown target role %q", r.ActionName, resp.ActionName, targetRole)
			}
			if _, ok := r.RoleByName(sourceRole); !ok {
				return sferrors.NewValidation("", 0, "", "rule %q: response to %q references undeclared source role %q", r.ActionName, resp.ActionName, sourceRole)
			}
		}
	}
	return nil
}
