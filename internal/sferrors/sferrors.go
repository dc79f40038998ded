// Package sferrors defines the error taxonomy used throughout storyforge.
// Every error that can reach an author (as opposed to a programming mistake
// caught by a panic) is one of the five kinds defined here, each carrying
// both a technical Error() string and an author-facing message suitable for
// printing to a console without a stack trace.
package sferrors

import "fmt"

// Kind distinguishes the five error categories storyforge can produce.
type Kind int

const (
	// Parse indicates malformed DSL source: unbalanced brackets, an
	// unrecognized section label, a role syntax that doesn't match any
	// known form.
	Parse Kind = iota

	// Validation indicates DSL source that parses but fails a
	// cross-reference or uniqueness check: a rule refers to a role it
	// does not declare, an action name is reused, a response action
	// binds a role its target rule does not have.
	Validation

	// Runtime indicates a problem discovered while running the rule or
	// grammar engine: a nonterminal with no rules, an undefined state
	// variable, a response action naming a rule that does not exist.
	Runtime

	// IO indicates a failure to read or write a file or stream.
	IO

	// Programmer indicates a violation of an invariant that should be
	// impossible to reach through the DSLs alone, and therefore points
	// at a bug in storyforge itself rather than in authored content.
	Programmer
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse error"
	case Validation:
		return "validation error"
	case Runtime:
		return "runtime error"
	case IO:
		return "I/O error"
	case Programmer:
		return "internal error"
	default:
		return "error"
	}
}

// sfError is the concrete type behind every error this package constructs.
type sfError struct {
	kind   Kind
	msg    string
	source string // offending source line, if any
	file   string
	line   int
	wrap   error
}

func (e *sfError) Error() string {
	if e.file != "" && e.line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.file, e.line, e.kind, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// AuthorMessage returns the message meant to be shown to the person who
// wrote the offending DSL source, including the quoted source line when one
// is known.
func (e *sfError) AuthorMessage() string {
	if e.source == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s\n    %s", e.Error(), e.source)
}

func (e *sfError) Unwrap() error {
	return e.wrap
}

// Kind returns the category of the error.
func (e *sfError) Kind() Kind {
	return e.kind
}

func new_(kind Kind, file string, line int, source, format string, a ...interface{}) error {
	return &sfError{
		kind:   kind,
		msg:    fmt.Sprintf(format, a...),
		source: source,
		file:   file,
		line:   line,
	}
}

// NewParse builds a Parse error pointing at the given file, 1-indexed line
// number, and the literal source text of that line.
func NewParse(file string, line int, source, format string, a ...interface{}) error {
	return new_(Parse, file, line, source, format, a...)
}

// NewValidation builds a Validation error pointing at the given file and
// line; source may be empty if the error spans more than one line.
func NewValidation(file string, line int, source, format string, a ...interface{}) error {
	return new_(Validation, file, line, source, format, a...)
}

// NewRuntime builds a Runtime error with no particular source location.
func NewRuntime(format string, a ...interface{}) error {
	return new_(Runtime, "", 0, "", format, a...)
}

// NewIO wraps an underlying I/O error (such as one from os.ReadFile) with an
// author-facing message.
func NewIO(wrapped error, format string, a ...interface{}) error {
	e := new_(IO, "", 0, "", format, a...).(*sfError)
	e.wrap = wrapped
	return e
}

// NewProgrammer builds a Programmer error, used for invariant violations
// that authored DSL content should never be able to trigger.
func NewProgrammer(format string, a ...interface{}) error {
	return new_(Programmer, "", 0, "", format, a...)
}

// AuthorMessage returns the author-facing message for any error. If err was
// not produced by this package, its Error() string is returned unchanged.
func AuthorMessage(err error) string {
	if sfe, ok := err.(*sfError); ok {
		return sfe.AuthorMessage()
	}
	return err.Error()
}

// KindOf reports the Kind of err and whether err was produced by this
// package at all.
func KindOf(err error) (Kind, bool) {
	sfe, ok := err.(*sfError)
	if !ok {
		return 0, false
	}
	return sfe.kind, true
}
