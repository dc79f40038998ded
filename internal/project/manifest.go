// Package project loads the TOML manifest that points a Driver at a
// domain file, a rules file, a grammar file, and the corpus directory the
// grammar's "$filename" includes resolve against, and supplies the
// run-until-action / entity-by-fact helpers that the original
// mystery-book generator used to pick out its protagonist, murderer, and
// victim once the rule engine had run long enough to create them.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/dekarrin/storyforge/internal/dsl"
)

// Manifest is the on-disk project description: a author points storyforge
// at one of these instead of passing every compiler input as a flag.
type Manifest struct {
	// Title and Author are used for the document's title page.
	Title  string `toml:"title"`
	Author string `toml:"author"`

	// DomainFile, RulesFile, and GrammarFile are paths relative to the
	// manifest's own directory.
	DomainFile  string `toml:"domain_file"`
	RulesFile   string `toml:"rules_file"`
	GrammarFile string `toml:"grammar_file"`

	// CorpusDir resolves a grammar's "$filename" corpus includes; relative
	// to the manifest's directory. Optional — a grammar with no corpus
	// includes does not need it.
	CorpusDir string `toml:"corpus_dir"`

	// StartSymbol is read from the manifest but not consulted by the
	// Driver: each fired action is always generated from the grammar
	// nonterminal named after the action, and an action with no such
	// nonterminal makes the run fail rather than fall back to StartSymbol.
	StartSymbol string `toml:"start_symbol"`

	// Seed, when non-nil, is used for both the rule engine's and the
	// grammar engine's RNGs, producing a deterministic run. The two
	// engines still seed independently (each derives its own seed from
	// this value) so that their draw sequences don't interleave.
	Seed *int64 `toml:"seed"`

	// ShuffleRandomly controls whether the rule engine's candidate pool is
	// shuffled before each attempt.
	ShuffleRandomly bool `toml:"shuffle_randomly"`

	// MaxAttempts caps how many attempts the rule engine's run loop may
	// make in total across the whole run, as a safety net against a rule
	// set that never satisfies enough preconditions to terminate.
	MaxAttempts int `toml:"max_attempts"`

	// OutputPath is where the generated document is written. Relative to
	// the manifest's directory if not absolute.
	OutputPath string `toml:"output_path"`

	// dir is the manifest file's own directory, used to resolve every
	// other path field. Not part of the TOML; set by Load.
	dir string `toml:"-"`
}

// Load reads and parses the manifest at path, resolving every relative
// path field against path's own directory.
func Load(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, fmt.Errorf("loading project manifest %q: %w", path, err)
	}
	m.dir = filepath.Dir(path)

	if m.DomainFile == "" {
		return Manifest{}, fmt.Errorf("project manifest %q: domain_file is required", path)
	}
	if m.RulesFile == "" {
		return Manifest{}, fmt.Errorf("project manifest %q: rules_file is required", path)
	}
	if m.GrammarFile == "" {
		return Manifest{}, fmt.Errorf("project manifest %q: grammar_file is required", path)
	}
	if m.MaxAttempts <= 0 {
		m.MaxAttempts = 10000
	}
	return m, nil
}

// DomainPath, RulesPath, GrammarPath, and CorpusPath resolve their
// respective manifest fields against the manifest's directory.
func (m Manifest) DomainPath() string  { return m.resolve(m.DomainFile) }
func (m Manifest) RulesPath() string   { return m.resolve(m.RulesFile) }
func (m Manifest) GrammarPath() string { return m.resolve(m.GrammarFile) }

func (m Manifest) CorpusPath(name string) string {
	if m.CorpusDir == "" {
		return m.resolve(name)
	}
	return filepath.Join(m.resolve(m.CorpusDir), name)
}

// ResolvedOutputPath resolves OutputPath against the manifest's directory,
// falling back to a run-ID-stamped default filename in that same directory
// when OutputPath is empty, mirroring the original's
// "generated_books/c3_murder_book_{timestamp}.pdf" naming.
func (m Manifest) ResolvedOutputPath(runID uuid.UUID) string {
	if m.OutputPath != "" {
		return m.resolve(m.OutputPath)
	}
	return m.resolve(fmt.Sprintf("generated_%s.txt", runID))
}

func (m Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

// ReadCorpusLines implements grammar.CorpusLoader against the manifest's
// corpus directory: it loads name's lines as newline-separated entries,
// discarding blank lines.
func (m Manifest) ReadCorpusLines(name string) ([]string, error) {
	data, err := os.ReadFile(m.CorpusPath(name))
	if err != nil {
		return nil, err
	}
	return dsl.SplitNonEmptyLines(string(data)), nil
}
