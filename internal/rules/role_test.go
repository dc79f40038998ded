package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Required(t *testing.T) {
	assert.True(t, Role{Name: "A", Type: "Person"}.Required())
	assert.False(t, Role{Name: "A", Type: "Person", Optional: true}.Required())
	assert.False(t, Role{Name: "This", Type: "Action"}.Required())
	assert.False(t, Role{Name: "Note", Type: "Prop", Recipe: "{Writer}'s Note"}.Required())
}

func TestRole_SelfReference(t *testing.T) {
	assert.True(t, Role{Name: SelfRoleName, Type: "Action"}.SelfReference())
	assert.False(t, Role{Name: "A", Type: "Person"}.SelfReference())
}

func TestRole_EntityCreating(t *testing.T) {
	assert.True(t, Role{Name: "Note", Type: "Prop", Recipe: "{Writer}'s Note"}.EntityCreating())
	assert.False(t, Role{Name: "A", Type: "Person"}.EntityCreating())
}

func TestByName_FindsImplicitThis(t *testing.T) {
	role, ok := ByName(nil, SelfRoleName)
	assert.True(t, ok)
	assert.Equal(t, "Action", role.Type)
}

func TestByName_FindsDeclaredRole(t *testing.T) {
	roles := []Role{{Name: "A", Type: "Person"}, {Name: "B", Type: "Person"}}

	role, ok := ByName(roles, "B")
	assert.True(t, ok)
	assert.Equal(t, "Person", role.Type)

	_, ok = ByName(roles, "C")
	assert.False(t, ok)
}
