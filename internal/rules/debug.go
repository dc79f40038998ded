package rules

// TraceResult reports, for one rule, whether a satisfying candidate binding
// currently exists without actually firing anything. It is the dry-run
// counterpart to attempt(), used by interactive debugging tools.
type TraceResult struct {
	ActionName string
	Bindable   bool
	Bindings   Bindings
	Reason     string
}

// TraceRule evaluates whether the named rule could fire right now, without
// drawing a probability roll or mutating working memory, entities, or the
// action log.
func (e *Engine) TraceRule(actionName string) (TraceResult, error) {
	rule, ok := e.ruleByAction[actionName]
	if !ok {
		return TraceResult{ActionName: actionName, Reason: "no such action"}, nil
	}

	if !e.domainHasRequiredTypes(rule) {
		return TraceResult{ActionName: actionName, Reason: "a required role's type has no entities in the domain"}, nil
	}

	bindings, err := e.firstCandidateBinding(rule)
	if err != nil {
		return TraceResult{}, err
	}
	if bindings == nil {
		return TraceResult{ActionName: actionName, Reason: "no candidate binding satisfies preconditions"}, nil
	}

	return TraceResult{ActionName: actionName, Bindable: true, Bindings: bindings}, nil
}
