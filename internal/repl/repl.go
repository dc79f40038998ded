// Package repl implements an interactive debug shell over a running rule
// engine and grammar engine: an author can step the rule engine one
// attempt at a time, inspect working memory and entities, trace why a
// particular action did or didn't fire, and generate prose for an action
// on demand, all without waiting for a full run to finish.
package repl

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dekarrin/storyforge/internal/grammar"
	"github.com/dekarrin/storyforge/internal/rules"
)

// Shell is an interactive debug session over a rule engine and, optionally,
// a grammar engine (generation commands are unavailable without one).
type Shell struct {
	Rules   *rules.Engine
	Grammar *grammar.Engine

	rl  *readline.Instance
	out io.Writer
}

// New creates a Shell reading from a readline-backed stdin session.
// The returned Shell must have Close called on it before disposal.
func New(rulesEngine *rules.Engine, grammarEngine *grammar.Engine) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sf> ",
		HistoryLimit:    500,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}
	return &Shell{
		Rules:   rulesEngine,
		Grammar: grammarEngine,
		rl:      rl,
		out:     rl.Stdout(),
	}, nil
}

// Close releases the shell's readline resources.
func (s *Shell) Close() error {
	return s.rl.Close()
}

// Run reads and dispatches commands until QUIT is entered or input reaches
// EOF.
func (s *Shell) Run() error {
	fmt.Fprintln(s.out, "storyforge debug shell — HELP for commands, QUIT to exit")
	for {
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		verb := strings.ToUpper(fields[0])
		args := fields[1:]

		if verb == "QUIT" || verb == "EXIT" {
			return nil
		}

		if err := s.dispatch(verb, args); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) dispatch(verb string, args []string) error {
	switch verb {
	case "HELP":
		s.printHelp()
	case "STEP":
		return s.cmdStep(args)
	case "FACTS":
		s.cmdFacts()
	case "ENTITIES":
		s.cmdEntities()
	case "ACTIONS":
		s.cmdActions()
	case "TRACE":
		return s.cmdTrace(args)
	case "GENERATE":
		return s.cmdGenerate(args)
	default:
		return fmt.Errorf("unknown command %q; try HELP", verb)
	}
	return nil
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "STEP [n]         - execute n rule-engine attempts (default 1)")
	fmt.Fprintln(s.out, "FACTS            - list every fact in working memory")
	fmt.Fprintln(s.out, "ENTITIES         - list every known entity")
	fmt.Fprintln(s.out, "ACTIONS          - list every action fired so far")
	fmt.Fprintln(s.out, "TRACE <action>   - explain why an action can or can't fire right now")
	fmt.Fprintln(s.out, "GENERATE <action> - generate prose for the most recent firing of an action")
	fmt.Fprintln(s.out, "QUIT             - exit the shell")
}

func (s *Shell) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("STEP takes an integer attempt count, got %q", args[0])
		}
		n = parsed
	}
	before := len(s.Rules.Actions())
	if err := s.Rules.Execute(n); err != nil {
		return err
	}
	after := s.Rules.Actions()
	for _, a := range after[before:] {
		fmt.Fprintf(s.out, "fired: %s\n", a.String)
	}
	if len(after) == before {
		fmt.Fprintln(s.out, "(no rule fired)")
	}
	return nil
}

func (s *Shell) cmdFacts() {
	for _, f := range s.Rules.WorkingMemory().Facts() {
		fmt.Fprintln(s.out, f)
	}
}

func (s *Shell) cmdEntities() {
	ents := s.Rules.Entities()
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name < ents[j].Name })
	for _, e := range ents {
		fmt.Fprintf(s.out, "%s (%s)\n", e.Name, e.Type)
		for _, attr := range e.AttrNames() {
			fmt.Fprintf(s.out, "    %s = %s\n", attr, e.Attributes[attr])
		}
	}
}

func (s *Shell) cmdActions() {
	for i, a := range s.Rules.Actions() {
		fmt.Fprintf(s.out, "%d: %s\n", i, a.String)
	}
}

func (s *Shell) cmdTrace(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("TRACE takes exactly one action name")
	}
	result, err := s.Rules.TraceRule(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "bindable: %v\n", result.Bindable)
	if result.Reason != "" {
		fmt.Fprintf(s.out, "reason: %s\n", result.Reason)
	}
	for role, ent := range result.Bindings {
		fmt.Fprintf(s.out, "  %s = %s\n", role, ent.Name)
	}
	return nil
}

func (s *Shell) cmdGenerate(args []string) error {
	if s.Grammar == nil {
		return fmt.Errorf("no grammar engine attached to this shell")
	}
	if len(args) != 1 {
		return fmt.Errorf("GENERATE takes exactly one action name")
	}
	actionName := args[0]

	var bindings rules.Bindings
	found := false
	for _, a := range s.Rules.Actions() {
		if a.Name == actionName {
			bindings = a.Bindings
			found = true
		}
	}
	if !found {
		return fmt.Errorf("action %q has not fired yet", actionName)
	}

	for role, ent := range bindings {
		ent.AddToGrammarState(s.Grammar, role)
	}

	text, err := s.Grammar.Generate(actionName, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}
