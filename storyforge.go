// Package storyforge contains a driver for compiling a domain, a rule
// set, and a grammar, running the rule engine to completion, and
// generating a document's worth of prose from the actions it fires.
package storyforge

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/dekarrin/storyforge/internal/document"
	"github.com/dekarrin/storyforge/internal/grammar"
	"github.com/dekarrin/storyforge/internal/project"
	"github.com/dekarrin/storyforge/internal/rules"
	"github.com/dekarrin/storyforge/internal/trace"
)

const consoleOutputWidth = 80

// Driver contains the things needed to compile and run a storyforge
// project and emit its document, mirroring how a game engine bundles a
// world, an input source, and an output sink for a single session.
type Driver struct {
	manifest project.Manifest

	rulesEngine   *rules.Engine
	grammarEngine *grammar.Engine
	doc           document.Document

	runID       uuid.UUID
	generations []trace.Generation
}

// config accumulates Option settings before New constructs a Driver, since
// some of them (the engines' Logger/Debug) must be in hand before the rule
// and grammar engines are built, not after.
type config struct {
	doc    document.Document
	logger *log.Logger
	debug  bool
}

// Option configures a Driver at construction time.
type Option func(*config)

// WithDocument overrides the document sink a Driver builds into. The
// default is a ConsoleDocument writing to stdout.
func WithDocument(d document.Document) Option {
	return func(c *config) { c.doc = d }
}

// WithLogger gives the rule engine and the grammar engine a destination for
// their step-tracing diagnostics. It has no effect unless paired with
// WithDebug(true), mirroring the source's verbosity switch.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithDebug turns on step-tracing diagnostics for the rule engine and the
// grammar engine, the Go equivalent of the original's config.VERBOSITY
// prints and grammar/engine.py's generate(debug=True).
func WithDebug(debug bool) Option {
	return func(c *config) { c.debug = debug }
}

// New compiles the domain, rules, and grammar files named by manifest and
// returns a Driver ready to Run. The rule engine and grammar engine are
// constructed here but not yet executed.
func New(manifest project.Manifest, opts ...Option) (*Driver, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	domainText, err := os.ReadFile(manifest.DomainPath())
	if err != nil {
		return nil, fmt.Errorf("reading domain file: %w", err)
	}
	domainFile, err := rules.ParseDomainFile(manifest.DomainPath(), string(domainText))
	if err != nil {
		return nil, err
	}

	rulesText, err := os.ReadFile(manifest.RulesPath())
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	ruleSet, err := rules.ParseRulesFile(manifest.RulesPath(), string(rulesText))
	if err != nil {
		return nil, err
	}
	if err := rules.Validate(ruleSet); err != nil {
		return nil, err
	}

	grammarText, err := os.ReadFile(manifest.GrammarPath())
	if err != nil {
		return nil, fmt.Errorf("reading grammar file: %w", err)
	}
	g, err := grammar.Compile(manifest.GrammarPath(), string(grammarText), manifest.ReadCorpusLines)
	if err != nil {
		return nil, err
	}

	var ruleSeed, grammarSeed *int64
	if manifest.Seed != nil {
		rs := *manifest.Seed
		gs := *manifest.Seed + 1
		ruleSeed, grammarSeed = &rs, &gs
	}

	var logger *log.Logger
	if cfg.debug {
		logger = cfg.logger
	}

	rulesEngine, err := rules.NewEngine(ruleSet, domainFile.EntitiesByType, domainFile.InitialFacts, rules.EngineOptions{
		ShuffleRandomly: manifest.ShuffleRandomly,
		Seed:            ruleSeed,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	grammarEngine := grammar.NewEngine(g, nil, grammar.EngineOptions{
		Seed:   grammarSeed,
		Debug:  cfg.debug,
		Logger: cfg.logger,
	})

	doc := cfg.doc
	if doc == nil {
		doc = document.NewConsoleDocument(os.Stdout, consoleOutputWidth)
	}

	drv := &Driver{
		manifest:      manifest,
		rulesEngine:   rulesEngine,
		grammarEngine: grammarEngine,
		doc:           doc,
		runID:         project.NewRunID(),
	}
	return drv, nil
}

// Rules returns the Driver's rule engine, for callers that want to drive
// it interactively (the REPL, the inspection server) instead of calling
// Run.
func (d *Driver) Rules() *rules.Engine { return d.rulesEngine }

// Grammar returns the Driver's grammar engine.
func (d *Driver) Grammar() *grammar.Engine { return d.grammarEngine }

// RunID returns the identifier stamped on this Driver's run, used in log
// lines and default output filenames.
func (d *Driver) RunID() string { return d.runID.String() }

// Generations returns the grammar derivation performed for each fired
// action during the most recent Run, in firing order. It is nil until Run
// has completed at least once.
func (d *Driver) Generations() []trace.Generation { return d.generations }

// Run executes the rule engine for up to maxAttempts attempts, generates
// prose for every fired action by pushing its bindings into grammar
// engine state and generating the grammar nonterminal matching the
// action's name, and writes the result — plus a sorted fact appendix — to
// the Driver's document. It returns once the rule engine run loop
// completes; storyforge has no per-turn interactive loop of its own.
func (d *Driver) Run(maxAttempts int) error {
	if err := d.rulesEngine.Execute(maxAttempts); err != nil {
		return fmt.Errorf("running rule engine: %w", err)
	}

	outPath := d.manifest.ResolvedOutputPath(d.runID)
	if err := d.doc.Open(outPath, 8.5, 11, document.Margins{Top: 1, Bottom: 1, Left: 1, Right: 1}, document.Style{
		FontName: "Courier", FontSize: 12,
	}); err != nil {
		return fmt.Errorf("opening document: %w", err)
	}

	title := d.manifest.Title
	if title == "" {
		title = "Untitled"
	}
	if err := d.doc.InsertTitlePage(title); err != nil {
		return fmt.Errorf("writing title page: %w", err)
	}

	for _, action := range d.rulesEngine.Actions() {
		for role, ent := range action.Bindings {
			ent.AddToGrammarState(d.grammarEngine, role)
		}

		text, err := d.grammarEngine.Generate(action.Name, "")
		if err != nil {
			return fmt.Errorf("generating prose for action %q: %w", action.Name, err)
		}
		d.generations = append(d.generations, trace.Generation{
			ActionName:  action.Name,
			StartSymbol: action.Name,
			Text:        text,
		})

		d.doc.SetStyle(document.Style{Alignment: document.AlignLeft})
		d.doc.InsertPageBreak()
		d.doc.InsertSpace(1.0)
		if err := d.doc.WriteParagraph(text); err != nil {
			return fmt.Errorf("writing generated prose: %w", err)
		}
	}

	d.doc.InsertPageBreak()
	d.doc.SetStyle(document.Style{Alignment: document.AlignLeft, FontName: "Courier-Oblique", FontSize: 10})
	if err := d.doc.WriteParagraph("Appendix: Facts"); err != nil {
		return fmt.Errorf("writing fact appendix header: %w", err)
	}
	d.doc.InsertSpace(1.0)

	facts := d.rulesEngine.WorkingMemory().Facts()
	sort.Strings(facts)
	for _, fact := range facts {
		if err := d.doc.WriteParagraph("  " + fact); err != nil {
			return fmt.Errorf("writing fact %q: %w", fact, err)
		}
	}

	return d.doc.Build(true)
}
