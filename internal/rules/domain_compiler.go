package rules

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dekarrin/storyforge/internal/dsl"
	"github.com/dekarrin/storyforge/internal/entity"
	"github.com/dekarrin/storyforge/internal/sferrors"
)

// DomainFile is the result of compiling a domain file: every declared
// entity grouped by type, plus the initial facts parsed from the fact
// block.
type DomainFile struct {
	EntitiesByType map[string][]entity.Entity
	InitialFacts   []string
}

var bracketRefPattern = regexp.MustCompile(`<([^<>]*)>`)

// ParseDomainFile compiles a domain file's text (named fileName for error
// messages) into a DomainFile.
//
// The file has two required, order-sensitive blocks: <BEGIN
// ENTITIES>...<END ENTITIES> declaring entities and their attributes, and
// <BEGIN FACTS>...<END FACTS> declaring initial working-memory facts that
// may reference those entities via "<Name>".
func ParseDomainFile(fileName, text string) (DomainFile, error) {
	lines := strings.Split(text, "\n")

	entStart, entEnd, err := findBlock(fileName, lines, "ENTITIES")
	if err != nil {
		return DomainFile{}, err
	}
	factStart, factEnd, err := findBlock(fileName, lines, "FACTS")
	if err != nil {
		return DomainFile{}, err
	}

	entities, order, err := parseEntityBlock(fileName, lines[entStart+1:entEnd])
	if err != nil {
		return DomainFile{}, err
	}

	byType := make(map[string][]entity.Entity)
	byName := make(map[string]entity.Entity, len(order))
	for _, name := range order {
		e := entities[name]
		byType[e.Type] = append(byType[e.Type], e)
		byName[name] = e
	}

	facts, err := parseFactBlock(fileName, lines[factStart+1:factEnd], byName)
	if err != nil {
		return DomainFile{}, err
	}

	return DomainFile{EntitiesByType: byType, InitialFacts: facts}, nil
}

// findBlock locates a <BEGIN name>...<END name> pair and returns the line
// indexes of the begin and end markers.
func findBlock(fileName string, lines []string, name string) (begin, end int, err error) {
	begin, end = -1, -1
	for i, raw := range lines {
		line := dsl.TrimLine(raw)
		if line == "" {
			continue
		}
		keyword, blockName, ok := dsl.BlockDelimiter(line)
		if !ok || blockName != name {
			continue
		}
		switch keyword {
		case "BEGIN":
			if begin != -1 {
				return 0, 0, sferrors.NewParse(fileName, i+1, raw, "duplicate <BEGIN %s>", name)
			}
			begin = i
		case "END":
			if begin == -1 {
				return 0, 0, sferrors.NewParse(fileName, i+1, raw, "<END %s> with no matching <BEGIN %s>", name, name)
			}
			if end != -1 {
				return 0, 0, sferrors.NewParse(fileName, i+1, raw, "duplicate <END %s>", name)
			}
			end = i
		}
	}
	if begin == -1 {
		return 0, 0, sferrors.NewParse(fileName, 0, "", "missing <BEGIN %s> marker", name)
	}
	if end == -1 {
		return 0, 0, sferrors.NewParse(fileName, 0, "", "missing <END %s> marker", name)
	}
	if end < begin {
		return 0, 0, sferrors.NewParse(fileName, begin+1, lines[begin], "<END %s> precedes <BEGIN %s>", name, name)
	}
	return begin, end, nil
}

func parseEntityBlock(fileName string, lines []string) (map[string]entity.Entity, []string, error) {
	entities := make(map[string]entity.Entity)
	var order []string

	for i, raw := range lines {
		line := dsl.TrimLine(raw)
		if line == "" {
			continue
		}

		lineNo := i + 1

		if idx := strings.Index(line, ":"); idx >= 0 && !strings.Contains(line[:idx], ".") {
			name := strings.TrimSpace(line[:idx])
			typ := strings.TrimSpace(line[idx+1:])
			if name == "" || typ == "" {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "entity definition requires non-empty name and type")
			}
			if _, exists := entities[name]; exists {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "duplicate entity name %q", name)
			}
			entities[name] = entity.New(name, typ)
			order = append(order, name)
			continue
		}

		if idx := strings.Index(line, "="); idx >= 0 && strings.Contains(line[:idx], ".") {
			lhs := strings.TrimSpace(line[:idx])
			val := strings.TrimSpace(line[idx+1:])
			dot := strings.Index(lhs, ".")
			name := strings.TrimSpace(lhs[:dot])
			attr := strings.TrimSpace(lhs[dot+1:])
			ent, ok := entities[name]
			if !ok {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "attribute for undeclared entity %q", name)
			}
			if attr == "" {
				return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "attribute name may not be empty")
			}
			ent.Attributes[attr] = val
			entities[name] = ent
			continue
		}

		return nil, nil, sferrors.NewParse(fileName, lineNo, raw, "unrecognized entity block line")
	}

	return entities, order, nil
}

func parseFactBlock(fileName string, lines []string, byName map[string]entity.Entity) ([]string, error) {
	seen := make(map[string]bool)
	var facts []string

	for i, raw := range lines {
		line := dsl.TrimLine(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		if !dsl.BalancedBrackets(line) {
			return nil, sferrors.NewParse(fileName, lineNo, raw, "unbalanced brackets in fact")
		}

		resolved, err := resolveBracketRefs(fileName, lineNo, raw, line, byName)
		if err != nil {
			return nil, err
		}

		if err := rejectCapitalOutsideBrackets(fileName, lineNo, raw, line); err != nil {
			return nil, err
		}

		if seen[resolved] {
			return nil, sferrors.NewParse(fileName, lineNo, raw, "duplicate fact %q", resolved)
		}
		seen[resolved] = true
		facts = append(facts, resolved)
	}

	return facts, nil
}

func resolveBracketRefs(fileName string, lineNo int, raw, line string, byName map[string]entity.Entity) (string, error) {
	var outErr error
	resolved := bracketRefPattern.ReplaceAllStringFunc(line, func(m string) string {
		name := bracketRefPattern.FindStringSubmatch(m)[1]
		ent, ok := byName[name]
		if !ok {
			outErr = sferrors.NewParse(fileName, lineNo, raw, "unknown entity reference %q", name)
			return m
		}
		return ent.Name
	})
	if outErr != nil {
		return "", outErr
	}
	return resolved, nil
}

// rejectCapitalOutsideBrackets enforces that capital-initial words outside
// of "<...>" references are rejected: those are role references, which
// have no meaning in a ground fact.
func rejectCapitalOutsideBrackets(fileName string, lineNo int, raw, line string) error {
	outsideBracket := bracketRefPattern.ReplaceAllString(line, " ")
	for _, word := range strings.Fields(outsideBracket) {
		r := []rune(word)[0]
		if unicode.IsUpper(r) {
			return sferrors.NewParse(fileName, lineNo, raw, "capital-initial word %q outside of a bracketed reference is reserved for role syntax", word)
		}
	}
	return nil
}
