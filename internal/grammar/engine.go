package grammar

import (
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dekarrin/storyforge/internal/sferrors"
)

// EngineOptions configures a new Engine.
type EngineOptions struct {
	// Seed, when non-nil, seeds the engine's RNG deterministically. The
	// grammar engine's RNG is independent of the rule engine's, so that
	// rule-engine draws never perturb grammar derivation.
	Seed *int64

	// Debug, when true, makes Generate print each derivation step (the
	// pending element chosen and what it was rewritten to) to Logger, the
	// Go equivalent of the original's generate(debug=True).
	Debug bool

	// Logger receives diagnostic trace lines when non-nil.
	Logger *log.Logger
}

// Engine derives prose from a compiled Grammar, threading a mutable
// variable-name -> string state map through write-state directives.
type Engine struct {
	grammar *Grammar
	state   map[string]string
	rng     *rand.Rand
	seed    int64
	debug   bool
	logger  *log.Logger
}

// NewEngine builds an Engine over g with the given initial state. Every
// value in initialState must be a string; the caller is responsible for
// this since Go's type system already enforces it at the call site (the
// source language's equivalent ProgrammerError, for an initial state that
// is not a string map, accordingly cannot occur here).
func NewEngine(g *Grammar, initialState map[string]string, opts EngineOptions) *Engine {
	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	state := make(map[string]string, len(initialState))
	for k, v := range initialState {
		state[k] = v
	}
	return &Engine{
		grammar: g,
		state:   state,
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
		debug:   opts.Debug,
		logger:  opts.Logger,
	}
}

// Seed returns the RNG seed the engine resolved at construction time
// (either the one explicitly passed via EngineOptions.Seed, or the
// wall-clock-derived one chosen in its absence), so callers building a
// diagnostic trace can record it.
func (e *Engine) Seed() int64 { return e.seed }

// SetState binds name to value in engine state.
func (e *Engine) SetState(name, value string) {
	e.state[name] = value
}

// ClearState empties engine state.
func (e *Engine) ClearState() {
	e.state = make(map[string]string)
}

// ExportState returns a copy of engine state.
func (e *Engine) ExportState() map[string]string {
	out := make(map[string]string, len(e.state))
	for k, v := range e.state {
		out[k] = v
	}
	return out
}

// InspectState renders engine state as diagnostic "name=value" lines.
func (e *Engine) InspectState() string {
	var sb strings.Builder
	for k, v := range e.state {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Generate expands startSymbol into a surface-form string: repeatedly
// finding the leftmost element still needing rewriting (a symbol
// reference, a variable reference, a write-state directive, or an end
// marker) and rewriting it in place, until only terminal text (and
// already-consumed markers) remain. If outfilePath is non-empty, the
// rendered text is also written there.
func (e *Engine) Generate(startSymbol, outfilePath string) (string, error) {
	sym, ok := e.grammar.Symbols[startSymbol]
	if !ok || len(sym.Rules) == 0 {
		return "", sferrors.NewRuntime("generate: undefined nonterminal %q", startSymbol)
	}

	derivation := []Element{SymbolRef{Name: startSymbol}}
	e.trace("generate %q: starting derivation", startSymbol)

	for {
		idx := firstPending(derivation)
		if idx < 0 {
			break
		}

		switch el := derivation[idx].(type) {
		case SymbolRef:
			body, err := e.chooseBody(el.Name)
			if err != nil {
				return "", err
			}
			e.trace("generate %q: expanding <%s>", startSymbol, el.Name)
			derivation = splice(derivation, idx, idx+1, body)

		case VariableRef:
			val, ok := e.state[el.Name]
			if !ok {
				return "", sferrors.NewRuntime("generate: undefined state variable %q", el.Name)
			}
			e.trace("generate %q: substituting <@%s> = %q", startSymbol, el.Name, val)
			derivation = splice(derivation, idx, idx+1, []Element{Terminal(val)})

		case WriteDirective:
			body, err := e.chooseBody(el.Symbol)
			if err != nil {
				return "", err
			}
			e.trace("generate %q: expanding <%s @%s>", startSymbol, el.Symbol, el.Var)
			spliced := make([]Element, 0, len(body)+2)
			spliced = append(spliced, writeBegin{Var: el.Var})
			spliced = append(spliced, body...)
			spliced = append(spliced, writeEnd{Var: el.Var})
			derivation = splice(derivation, idx, idx+1, spliced)

		case writeEnd:
			beginIdx := findMatchingBegin(derivation, idx, el.Var)
			if beginIdx < 0 {
				return "", sferrors.NewRuntime("generate: write-state end marker for %q has no matching begin", el.Var)
			}
			var captured strings.Builder
			for i := beginIdx + 1; i < idx; i++ {
				if t, ok := derivation[i].(Terminal); ok {
					captured.WriteString(string(t))
				}
			}
			e.state[el.Var] = captured.String()
			e.trace("generate %q: captured @%s = %q", startSymbol, el.Var, e.state[el.Var])
			derivation[beginIdx] = Terminal("")
			derivation[idx] = Terminal("")
		}
	}

	text := renderSurface(derivation)
	e.trace("generate %q: done: %q", startSymbol, text)

	if outfilePath != "" {
		if err := os.WriteFile(outfilePath, []byte(text), 0o644); err != nil {
			return "", sferrors.NewIO(err, "writing generated output to %q", outfilePath)
		}
	}

	return text, nil
}

// trace writes a derivation-step line to Logger when Debug is enabled, the
// step-by-step print grammar/engine.py's generate(debug=True) produces.
func (e *Engine) trace(format string, a ...interface{}) {
	if e.debug && e.logger != nil {
		e.logger.Printf(format, a...)
	}
}

func (e *Engine) chooseBody(symbolName string) ([]Element, error) {
	sym, ok := e.grammar.Symbols[symbolName]
	if !ok || len(sym.Rules) == 0 {
		return nil, sferrors.NewRuntime("generate: undefined nonterminal %q", symbolName)
	}
	rule := sym.Rules[e.rng.Intn(len(sym.Rules))]
	body := make([]Element, len(rule.Body))
	copy(body, rule.Body)
	return body, nil
}

// firstPending returns the index of the first element in derivation that
// still needs processing: a SymbolRef, VariableRef, WriteDirective, or
// writeEnd. A writeBegin is always inert and skipped; it is consumed only
// as a side effect of processing its matching writeEnd.
func firstPending(derivation []Element) int {
	for i, el := range derivation {
		switch el.(type) {
		case SymbolRef, VariableRef, WriteDirective, writeEnd:
			return i
		}
	}
	return -1
}

func findMatchingBegin(derivation []Element, endIdx int, v string) int {
	for i := endIdx - 1; i >= 0; i-- {
		if b, ok := derivation[i].(writeBegin); ok && b.Var == v {
			return i
		}
	}
	return -1
}

func splice(derivation []Element, start, end int, replacement []Element) []Element {
	out := make([]Element, 0, len(derivation)-(end-start)+len(replacement))
	out = append(out, derivation[:start]...)
	out = append(out, replacement...)
	out = append(out, derivation[end:]...)
	return out
}

// renderSurface concatenates every Terminal in derivation in order,
// skipping every other element kind (by construction, only writeBegin and
// writeEnd markers that have been blanked to empty terminals remain
// alongside real terminals once Generate returns).
func renderSurface(derivation []Element) string {
	var sb strings.Builder
	for _, el := range derivation {
		if t, ok := el.(Terminal); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
