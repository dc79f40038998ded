package rules

import (
	"fmt"
	"strings"

	"github.com/dekarrin/storyforge/internal/sferrors"
)

// Interpolate expands a display or recipe template by replacing every
// "{Role}" reference with the name of the entity bound to Role. A literal
// brace can be written escaped as "\{" or "\}". This is the safe
// replacement for the eval-style substitution the original implementation
// used: a single left-to-right scan, no expression evaluation.
func Interpolate(template string, bindings Bindings) (string, error) {
	var sb strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		switch {
		case c == '\\' && i+1 < len(template) && (template[i+1] == '{' || template[i+1] == '}'):
			sb.WriteByte(template[i+1])
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", sferrors.NewValidation("", 0, template, "unbalanced '{' in template")
			}
			roleName := template[i+1 : i+end]
			ent, ok := bindings[roleName]
			if !ok {
				return "", sferrors.NewValidation("", 0, template, "reference to unbound role %q", roleName)
			}
			sb.WriteString(ent.Name)
			i += end + 1
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

// BraceReferences returns, in order of appearance, the role names referenced
// via "{Role}" in template, honoring the same escaping Interpolate does.
// Used by the compiler to validate that every reference resolves and every
// brace balances before the rule is accepted.
func BraceReferences(template string) ([]string, error) {
	var refs []string
	i := 0
	for i < len(template) {
		c := template[i]
		switch {
		case c == '\\' && i+1 < len(template) && (template[i+1] == '{' || template[i+1] == '}'):
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unbalanced '{' in template %q", template)
			}
			refs = append(refs, template[i+1:i+end])
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("unbalanced '}' in template %q", template)
		default:
			i++
		}
	}
	return refs, nil
}

// Uniquify returns name if it is not already present in taken, otherwise
// name followed by the smallest " (k)" suffix (k >= 1) that is not.
func Uniquify(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s (%d)", name, k)
		if !taken[candidate] {
			return candidate
		}
	}
}
