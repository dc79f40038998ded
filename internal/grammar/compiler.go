package grammar

import (
	"strings"

	"github.com/dekarrin/storyforge/internal/dsl"
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// Grammar is the compiled result: every NonterminalSymbol referenced or
// declared anywhere in the source, keyed by name.
type Grammar struct {
	Symbols map[string]*NonterminalSymbol
}

func (g *Grammar) symbol(name string) *NonterminalSymbol {
	sym, ok := g.Symbols[name]
	if !ok {
		sym = &NonterminalSymbol{Name: name}
		g.Symbols[name] = sym
	}
	return sym
}

// CorpusLoader loads the non-empty, newline-separated lines of the named
// corpus file, relative to whatever fixed corpus directory the caller
// configures.
type CorpusLoader func(name string) ([]string, error)

// Compile parses a grammar file's text (named fileName for error messages)
// into a Grammar. load resolves "$filename" corpus-include alternates; pass
// nil if the source has none.
func Compile(fileName, text string, load CorpusLoader) (*Grammar, error) {
	g := &Grammar{Symbols: make(map[string]*NonterminalSymbol)}

	referenced := make(map[string]bool)

	for i, raw := range strings.Split(text, "\n") {
		line := dsl.TrimLine(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		head, bodyAlternates, err := splitRule(fileName, lineNo, raw, line)
		if err != nil {
			return nil, err
		}

		alternates, err := expandCorpusIncludes(fileName, lineNo, raw, bodyAlternates, load)
		if err != nil {
			return nil, err
		}

		sym := g.symbol(head)
		for _, alt := range alternates {
			if !dsl.BalancedBrackets(alt) {
				return nil, sferrors.NewParse(fileName, lineNo, raw, "unbalanced '<'/'>' in body %q", alt)
			}
			body, refs, err := scanBody(fileName, lineNo, raw, alt)
			if err != nil {
				return nil, err
			}
			for _, r := range refs {
				referenced[r] = true
				g.symbol(r)
			}
			sym.Rules = append(sym.Rules, ProductionRule{Head: head, Body: body, RawDefinition: alt})
		}
	}

	for name := range referenced {
		if len(g.Symbols[name].Rules) == 0 {
			return nil, sferrors.NewValidation(fileName, 0, "", "nonterminal %q is referenced but never declared", name)
		}
	}

	return g, nil
}

// splitRule splits a "head -> body1|body2|..." line into its head and raw
// body alternates.
func splitRule(fileName string, lineNo int, raw, line string) (head string, alternates []string, err error) {
	idx := strings.Index(line, "->")
	if idx < 0 {
		return "", nil, sferrors.NewParse(fileName, lineNo, raw, "grammar rule missing '->'")
	}
	head = strings.TrimSpace(line[:idx])
	bodyText := strings.TrimSpace(line[idx+2:])
	if head == "" || bodyText == "" {
		return "", nil, sferrors.NewParse(fileName, lineNo, raw, "grammar rule head and body must be non-empty")
	}
	for _, alt := range strings.Split(bodyText, "|") {
		alternates = append(alternates, strings.TrimSpace(alt))
	}
	return head, alternates, nil
}

func expandCorpusIncludes(fileName string, lineNo int, raw string, alternates []string, load CorpusLoader) ([]string, error) {
	var out []string
	for _, alt := range alternates {
		if !strings.HasPrefix(alt, "$") {
			out = append(out, alt)
			continue
		}
		if load == nil {
			return nil, sferrors.NewIO(nil, "%s:%d: corpus include %q but no corpus loader configured", fileName, lineNo, alt)
		}
		corpusName := alt[1:]
		lines, err := load(corpusName)
		if err != nil {
			return nil, sferrors.NewIO(err, "loading corpus %q", corpusName)
		}
		for _, l := range lines {
			l = strings.TrimSpace(l)
			if l != "" {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// scanBody scans a body alternate character by character, producing a
// sequence of literal-text runs, symbol references, variable references,
// and write-state directives. It returns every symbol name referenced (by
// either form of reference) so the caller can ensure each is eventually
// declared.
func scanBody(fileName string, lineNo int, raw, body string) ([]Element, []string, error) {
	var elements []Element
	var refs []string

	var literal strings.Builder
	flushLiteral := func() {
		if literal.Len() > 0 {
			elements = append(elements, Terminal(literal.String()))
			literal.Reset()
		}
	}

	i := 0
	for i < len(body) {
		c := body[i]
		if c != '<' {
			literal.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(body[i:], '>')
		if end < 0 {
			return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "unterminated '<' in %q", body)
		}
		inner := strings.TrimSpace(body[i+1 : i+end])
		i += end + 1
		flushLiteral()

		switch {
		case strings.HasPrefix(inner, "@"):
			varName := strings.TrimSpace(inner[1:])
			elements = append(elements, VariableRef{Name: varName})
		case strings.Contains(inner, "@"):
			at := strings.IndexByte(inner, '@')
			symName := strings.TrimSpace(inner[:at])
			varName := strings.TrimSpace(inner[at+1:])
			if symName == "" || varName == "" {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "malformed write-state directive %q", inner)
			}
			elements = append(elements, WriteDirective{Symbol: symName, Var: varName})
			refs = append(refs, symName)
		default:
			if inner == "" {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "empty '<>' reference")
			}
			elements = append(elements, SymbolRef{Name: inner})
			refs = append(refs, inner)
		}
	}
	flushLiteral()

	return elements, refs, nil
}
