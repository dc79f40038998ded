// Package grammar implements the context-free grammar engine: a compiler
// (C6) that turns a grammar file plus corpus includes into a graph of
// NonterminalSymbols, and a derivation engine (C7) that expands a start
// symbol into prose while threading write-state directives through a
// mutable state map.
package grammar

// Element is one piece of a ProductionRule's body, or of an in-progress
// derivation. It is a tagged sum of five kinds: literal terminal text, a
// symbol reference, a state-variable reference, a write-state directive, and
// the begin/end markers a write-state directive's expansion brackets with.
type Element interface {
	isElement()
}

// Terminal is literal text contributed directly to the surface form.
type Terminal string

func (Terminal) isElement() {}

// SymbolRef references a NonterminalSymbol by name: "<Name>".
type SymbolRef struct {
	Name string
}

func (SymbolRef) isElement() {}

// VariableRef reads a value out of engine state: "<@var>".
type VariableRef struct {
	Name string
}

func (VariableRef) isElement() {}

// WriteDirective rewrites Symbol and captures the terminal result of that
// rewrite into state under Var: "<Name @var>".
type WriteDirective struct {
	Symbol string
	Var    string
}

func (WriteDirective) isElement() {}

// writeBegin and writeEnd are the bracketing markers a WriteDirective
// expands into. They are never produced by the compiler; only the
// derivation loop introduces them, and it also consumes them, so no surface
// rendering ever has to special-case a marker that survived to the end.
type writeBegin struct {
	Var string
}

func (writeBegin) isElement() {}

type writeEnd struct {
	Var string
}

func (writeEnd) isElement() {}

// NonterminalSymbol is a named grammar symbol with one or more production
// rules; generation chooses uniformly among them.
type NonterminalSymbol struct {
	Name  string
	Rules []ProductionRule
}

// ProductionRule is one alternate body for a NonterminalSymbol.
type ProductionRule struct {
	Head          string
	Body          []Element
	RawDefinition string
}
