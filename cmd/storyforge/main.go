/*
Storyforge compiles a domain file, a rule file, and a grammar file into a
document's worth of generated prose.

It reads a project manifest describing where those three files live (and,
optionally, a fixed random seed and an output path), runs the rule engine
to completion, generates prose for every action it fires, and writes the
result to a console document. For interactive debugging, --repl drops into
a shell for stepping the rule engine by hand, and --inspect starts a
read-only HTTP server exposing the same state as JSON.

Usage:

	storyforge [flags] PROJECT_FILE

The flags are:

	-v, --version
		Give the current version of storyforge and then exit.

	-a, --max-attempts N
		Override the manifest's max_attempts.

	-s, --seed N
		Override the manifest's seed.

	-d, --debug
		Print step-tracing diagnostics from the rule engine and the
		grammar engine to stderr as the run proceeds.

	-r, --repl
		Drop into an interactive debug shell instead of running to
		completion.

	-i, --inspect ADDR
		Start a read-only HTTP introspection server on ADDR after the run
		completes, serving until interrupted.

	-t, --trace FILE
		Write a rezi-encoded diagnostic trace of the run to FILE.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/dekarrin/storyforge"
	"github.com/dekarrin/storyforge/internal/inspect"
	"github.com/dekarrin/storyforge/internal/project"
	"github.com/dekarrin/storyforge/internal/repl"
	"github.com/dekarrin/storyforge/internal/trace"
	"github.com/dekarrin/storyforge/internal/version"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitRunError indicates an unsuccessful execution during the run
	// itself (compile error, rule engine error, document error).
	ExitRunError

	// ExitUsageError indicates bad or missing command-line arguments.
	ExitUsageError
)

var (
	returnCode   = ExitSuccess
	flagVersion  = pflag.BoolP("version", "v", false, "Gives the version info")
	maxAttempts  = pflag.IntP("max-attempts", "a", 0, "Override the manifest's max_attempts")
	seedOverride = pflag.Int64P("seed", "s", 0, "Override the manifest's seed")
	debugFlag    = pflag.BoolP("debug", "d", false, "Print step-tracing diagnostics from the rule and grammar engines to stderr")
	useRepl      = pflag.BoolP("repl", "r", false, "Drop into an interactive debug shell instead of running to completion")
	inspectAddr  = pflag.StringP("inspect", "i", "", "Start a read-only HTTP introspection server on ADDR after the run")
	traceFile    = pflag.StringP("trace", "t", "", "Write a rezi-encoded diagnostic trace of the run to FILE")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: exactly one PROJECT_FILE argument is required")
		returnCode = ExitUsageError
		return
	}

	manifest, err := project.Load(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitUsageError
		return
	}
	if *maxAttempts > 0 {
		manifest.MaxAttempts = *maxAttempts
	}
	if pflag.Lookup("seed").Changed {
		s := *seedOverride
		manifest.Seed = &s
	}

	var logger *log.Logger
	if *debugFlag {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	drv, err := storyforge.New(manifest, storyforge.WithDebug(*debugFlag), storyforge.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
		return
	}

	if *useRepl {
		shell, err := repl.New(drv.Rules(), drv.Grammar())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitRunError
			return
		}
		defer shell.Close()
		if err := shell.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitRunError
		}
		return
	}

	fmt.Printf("storyforge run %s\n", drv.RunID())

	if err := drv.Run(manifest.MaxAttempts); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
		return
	}

	if *traceFile != "" {
		t := &trace.Trace{
			RuleSeed:    drv.Rules().Seed(),
			GrammarSeed: drv.Grammar().Seed(),
			Actions:     trace.FromActions(drv.Rules().Actions()),
			Generations: drv.Generations(),
		}
		t.FinalFacts = drv.Rules().WorkingMemory().Facts()
		if err := trace.WriteFile(*traceFile, t); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: writing trace: %s\n", err.Error())
			returnCode = ExitRunError
			return
		}
	}

	if *inspectAddr != "" {
		srv := &inspect.Server{Rules: drv.Rules(), Grammar: drv.Grammar()}
		fmt.Printf("serving introspection on %s\n", *inspectAddr)
		if err := http.ListenAndServe(*inspectAddr, srv.Router()); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitRunError
			return
		}
	}
}
