package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dekarrin/storyforge/internal/dsl"
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// roleLinePattern matches a role declaration. The recipe of an
// entity-creating role ("+Name=recipe:Type") is whatever text falls
// between the "=" and the final ":Type" — the recipe itself is free to
// contain "{Role}" interpolation tokens (e.g. "+Note={Writer}'s Note:Prop"),
// so it is captured greedily rather than delimited by its own bracket pair.
var roleLinePattern = regexp.MustCompile(`^([+?]?)([A-Za-z_][A-Za-z0-9_]*)(?:=(.*))?:([A-Za-z_][A-Za-z0-9_]*)$`)

var macroTokenPattern = regexp.MustCompile(`^\*:([A-Za-z_][A-Za-z0-9_]*)$`)

func isMacroToken(lit string) bool {
	return macroTokenPattern.MatchString(lit)
}

func macroTokenType(lit string) string {
	return macroTokenPattern.FindStringSubmatch(lit)[1]
}

// ParseRulesFile compiles a rules file's text (named fileName for error
// messages) into a slice of Rules. Rules are validated against each other
// (action-name uniqueness, response-action target resolution) once every
// block has been parsed; see Validate.
func ParseRulesFile(fileName, text string) ([]*Rule, error) {
	normalized := normalizeRuleSource(text)

	blocks := strings.Split(normalized, "$")
	if strings.TrimSpace(blocks[0]) != "" {
		return nil, sferrors.NewParse(fileName, 1, blocks[0], "content found before first '$' rule block")
	}
	blocks = blocks[1:]

	rules := make([]*Rule, 0, len(blocks))
	for _, block := range blocks {
		rule, err := parseRuleBlock(fileName, block)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := Validate(rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// normalizeRuleSource strips blank lines and comments, replaces tabs with
// spaces, and collapses runs of spaces within each remaining line, per the
// rule compiler's lexical preprocessing pass.
func normalizeRuleSource(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, l := range lines {
		l = strings.ReplaceAll(l, "\t", " ")
		l = dsl.TrimLine(l)
		if l == "" {
			continue
		}
		out = append(out, dsl.CollapseWhitespace(l))
	}
	return strings.Join(out, "\n")
}

func parseRuleBlock(fileName, block string) (*Rule, error) {
	var lines []string
	for _, l := range strings.Split(block, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil, sferrors.NewParse(fileName, 0, block, "rule block requires a header and an action display string")
	}

	rule := &Rule{Probability: 1.0}

	headerFields := strings.Fields(lines[0])
	rule.ActionName = headerFields[0]
	for _, f := range headerFields[1:] {
		switch f {
		case "(response)":
			rule.IsResponseAction = true
		case "debug":
			rule.Debug = true
		default:
			return nil, sferrors.NewParse(fileName, 0, lines[0], "unrecognized header flag %q", f)
		}
	}

	rule.ActionString = lines[1]

	sections := dsl.SplitSections(lines[2:])
	seenLabel := make(map[string]bool)
	var probLines, roleLines, preLines, effLines, respLines []string

	for _, sec := range sections {
		if sec.Label == "" {
			if len(sec.Lines) > 0 {
				return nil, sferrors.NewParse(fileName, 0, strings.Join(sec.Lines, "\n"), "content outside of a labeled section")
			}
			continue
		}
		if seenLabel[sec.Label] {
			return nil, sferrors.NewParse(fileName, 0, sec.Label+":", "duplicate section label %q", sec.Label)
		}
		seenLabel[sec.Label] = true

		switch sec.Label {
		case "prob":
			probLines = sec.Lines
		case "roles":
			roleLines = sec.Lines
		case "preconditions":
			preLines = sec.Lines
		case "effects":
			effLines = sec.Lines
		case "responses":
			respLines = sec.Lines
		default:
			return nil, sferrors.NewParse(fileName, 0, sec.Label+":", "unknown section label %q", sec.Label)
		}
	}

	if len(probLines) > 0 {
		joined := strings.TrimSpace(strings.Join(probLines, " "))
		p, err := strconv.ParseFloat(joined, 64)
		if err != nil {
			return nil, sferrors.NewParse(fileName, 0, joined, "invalid probability %q: %v", joined, err)
		}
		rule.Probability = p
	}

	roles, err := parseRoleLines(fileName, roleLines)
	if err != nil {
		return nil, err
	}
	rule.Roles = roles

	preconditions, err := parseConditionLines(fileName, preLines, roles)
	if err != nil {
		return nil, err
	}
	rule.Preconditions = preconditions

	effects, err := parseEffectLines(fileName, effLines, roles)
	if err != nil {
		return nil, err
	}
	rule.Effects = effects

	responses, err := parseResponseLines(fileName, respLines)
	if err != nil {
		return nil, err
	}
	rule.Responses = responses

	return rule, nil
}

func parseRoleLines(fileName string, lines []string) ([]Role, error) {
	var roles []Role
	seen := make(map[string]bool)
	for _, line := range lines {
		m := roleLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return nil, sferrors.NewParse(fileName, 0, line, "malformed role declaration %q", line)
		}
		prefix, name, recipe, typ := m[1], m[2], m[3], m[4]

		if name == SelfRoleName {
			return nil, sferrors.NewParse(fileName, 0, line, "role name %q is reserved", SelfRoleName)
		}
		if seen[name] {
			return nil, sferrors.NewParse(fileName, 0, line, "duplicate role %q", name)
		}
		seen[name] = true

		role := Role{Name: name, Type: typ}
		switch prefix {
		case "?":
			role.Optional = true
		case "+":
			if recipe == "" {
				return nil, sferrors.NewParse(fileName, 0, line, "entity-creating role %q requires a ={recipe}", name)
			}
			role.Recipe = recipe
		case "":
			if recipe != "" {
				return nil, sferrors.NewParse(fileName, 0, line, "role %q has a recipe but is missing the '+' prefix", name)
			}
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// parenGroup is one "(...)"-delimited segment of a condition or effect
// line, along with whether a "!" immediately preceded its opening paren.
type parenGroup struct {
	negated bool
	inner   string
}

func splitParenGroups(s string) []parenGroup {
	var groups []parenGroup
	depth := 0
	start := -1
	negated := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '!':
			if depth == 0 {
				negated = true
			}
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				groups = append(groups, parenGroup{negated: negated, inner: s[start+1 : i]})
				negated = false
				start = -1
			}
		}
	}
	return groups
}

func parsePredicateTokens(fileName, line, inner string) ([]Token, error) {
	fields := strings.Fields(inner)
	toks := make([]Token, 0, len(fields))
	for _, f := range fields {
		if isMacroToken(f) {
			toks = append(toks, Token{Literal: f})
			continue
		}
		isRole := f[0] >= 'A' && f[0] <= 'Z'
		toks = append(toks, Token{Literal: f, IsRole: isRole})
	}
	if len(toks) == 0 {
		return nil, sferrors.NewParse(fileName, 0, line, "empty predicate")
	}
	return toks, nil
}

func parseConditionLines(fileName string, lines []string, roles []Role) ([]Condition, error) {
	var conds []Condition
	for _, line := range lines {
		groups := splitParenGroups(line)
		if len(groups) == 0 {
			return nil, sferrors.NewParse(fileName, 0, line, "no predicate found in precondition line")
		}
		cond := Condition{Negated: groups[0].negated}
		for _, g := range groups {
			toks, err := parsePredicateTokens(fileName, line, g.inner)
			if err != nil {
				return nil, err
			}
			cond.Alternatives = append(cond.Alternatives, Predicate{Tokens: toks})
		}

		expanded, err := expandMacroCondition(cond, roles)
		if err != nil {
			return nil, sferrors.NewParse(fileName, 0, line, "%v", err)
		}
		conds = append(conds, expanded...)
	}
	return conds, nil
}

func parseEffectLines(fileName string, lines []string, roles []Role) ([]Effect, error) {
	var effects []Effect
	for _, line := range lines {
		groups := splitParenGroups(line)
		switch len(groups) {
		case 1:
			eff, err := buildEffectAtom(fileName, line, groups[0], roles)
			if err != nil {
				return nil, err
			}
			if eff != nil {
				effects = append(effects, eff)
			}
		case 3:
			condToks, err := parsePredicateTokens(fileName, line, groups[1].inner)
			if err != nil {
				return nil, err
			}
			cond := Condition{Negated: groups[1].negated, Alternatives: []Predicate{{Tokens: condToks}}}

			trueEff, err := buildEffectAtom(fileName, line, groups[0], roles)
			if err != nil {
				return nil, err
			}
			falseEff, err := buildEffectAtom(fileName, line, groups[2], roles)
			if err != nil {
				return nil, err
			}
			effects = append(effects, TernaryExpression{Condition: cond, IfTrue: trueEff, IfFalse: falseEff})
		default:
			return nil, sferrors.NewParse(fileName, 0, line, "effect line must be a single predicate or a (true)(cond)(false) ternary")
		}
	}
	return effects, nil
}

func buildEffectAtom(fileName, line string, g parenGroup, roles []Role) (Effect, error) {
	inner := strings.TrimSpace(g.inner)
	if inner == "" {
		return nil, nil
	}
	toks, err := parsePredicateTokens(fileName, line, inner)
	if err != nil {
		return nil, err
	}
	p := Predicate{Tokens: toks, Negated: g.negated}

	expanded, err := expandMacroPredicate(p, roles)
	if err != nil {
		return nil, sferrors.NewParse(fileName, 0, line, "%v", err)
	}
	if len(expanded) != 1 {
		return nil, sferrors.NewParse(fileName, 0, line, "macro role in an effect must expand to exactly one predicate")
	}
	return expanded[0], nil
}

func parseResponseLines(fileName string, lines []string) ([]ResponseAction, error) {
	var resp []ResponseAction
	for _, line := range lines {
		line = strings.TrimSpace(line)
		open := strings.IndexByte(line, '(')
		if open < 0 || !strings.HasSuffix(line, ")") {
			return nil, sferrors.NewParse(fileName, 0, line, "malformed response action %q", line)
		}
		actionName := strings.TrimSpace(line[:open])
		if actionName == "" {
			return nil, sferrors.NewParse(fileName, 0, line, "response action missing target name")
		}
		inner := line[open+1 : len(line)-1]
		bindings := make(map[string]string)
		if strings.TrimSpace(inner) != "" {
			for _, pair := range strings.Split(inner, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) != 2 {
					return nil, sferrors.NewParse(fileName, 0, line, "malformed response binding %q", pair)
				}
				bindings[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
		resp = append(resp, ResponseAction{ActionName: actionName, Bindings: bindings})
	}
	return resp, nil
}

// expandMacroCondition expands every "*:Type" macro slot appearing in
// cond's alternatives into the Cartesian product over that type's declared
// roles, yielding one concrete Condition per combination. A Condition with
// no macro slots expands to itself.
func expandMacroCondition(cond Condition, roles []Role) ([]Condition, error) {
	type slot struct {
		altIdx, tokIdx int
		typ            string
	}
	var slots []slot
	for ai, alt := range cond.Alternatives {
		for ti, t := range alt.Tokens {
			if !t.IsRole && isMacroToken(t.Literal) {
				slots = append(slots, slot{ai, ti, macroTokenType(t.Literal)})
			}
		}
	}
	if len(slots) == 0 {
		return []Condition{cond}, nil
	}

	candidateSets := make([][]string, len(slots))
	for i, s := range slots {
		for _, r := range roles {
			if r.Type == s.typ {
				candidateSets[i] = append(candidateSets[i], r.Name)
			}
		}
		if len(candidateSets[i]) == 0 {
			return nil, sferrors.NewValidation("", 0, "", "macro role \"*:%s\" matches no declared role", s.typ)
		}
	}

	var results []Condition
	choice := make([]string, len(slots))
	var rec func(i int)
	rec = func(i int) {
		if i == len(slots) {
			newAlts := make([]Predicate, len(cond.Alternatives))
			for ai, alt := range cond.Alternatives {
				newToks := make([]Token, len(alt.Tokens))
				copy(newToks, alt.Tokens)
				newAlts[ai] = Predicate{Tokens: newToks, Negated: alt.Negated}
			}
			for si, s := range slots {
				newAlts[s.altIdx].Tokens[s.tokIdx] = Token{Literal: choice[si], IsRole: true}
			}
			results = append(results, Condition{Negated: cond.Negated, Alternatives: newAlts})
			return
		}
		for _, name := range candidateSets[i] {
			choice[i] = name
			rec(i + 1)
		}
	}
	rec(0)
	return results, nil
}

func expandMacroPredicate(p Predicate, roles []Role) ([]Predicate, error) {
	cond := Condition{Alternatives: []Predicate{p}}
	expanded, err := expandMacroCondition(cond, roles)
	if err != nil {
		return nil, err
	}
	out := make([]Predicate, len(expanded))
	for i, c := range expanded {
		out[i] = c.Alternatives[0]
	}
	return out, nil
}
