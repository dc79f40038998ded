// Package entity defines the Entity value type shared by the domain
// compiler, the rule engine's working memory, and the grammar engine's write
// state.
package entity

import "sort"

// Entity is a named thing of a declared type, carrying zero or more
// string-valued attributes. Entities are created either by the domain file
// (fixed cast members known before any rule fires) or by an entity-creation
// role during rule firing (characters, props, or locations invented on
// demand).
type Entity struct {
	Name       string
	Type       string
	Attributes map[string]string
}

// New builds an Entity with an initialized, empty Attributes map.
func New(name, typ string) Entity {
	return Entity{
		Name:       name,
		Type:       typ,
		Attributes: make(map[string]string),
	}
}

// AttrNames returns the entity's attribute names in sorted order, for
// deterministic iteration (diagnostics, trace export).
func (e Entity) AttrNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GrammarState is the subset of the grammar engine's write-state surface
// that AddToGrammarState needs: a place to stash a string value under a
// variable name. internal/grammar's Engine implements this.
type GrammarState interface {
	SetState(name, value string)
}

// AddToGrammarState binds e into the grammar engine's state under
// variableName, and additionally binds variableName+"."+attr for every
// attribute e carries, so that a grammar corpus can refer to
// "<@Detective>" for the entity's name and "<@Detective.title>" for one of
// its attributes.
func (e Entity) AddToGrammarState(state GrammarState, variableName string) {
	state.SetState(variableName, e.Name)
	for attr, val := range e.Attributes {
		state.SetState(variableName+"."+attr, val)
	}
}
