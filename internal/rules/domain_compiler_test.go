package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDomain = `
<BEGIN ENTITIES>
alice : Person
bob : Person
alice.title = Detective
<END ENTITIES>

<BEGIN FACTS>
<alice> is happy
<bob> knows <alice>
<END FACTS>
`

func TestParseDomainFile_EntitiesAndFacts(t *testing.T) {
	df, err := ParseDomainFile("domain.txt", sampleDomain)
	require.NoError(t, err)

	require.Len(t, df.EntitiesByType["Person"], 2)
	assert.Equal(t, "Detective", df.EntitiesByType["Person"][0].Attributes["title"])

	assert.Contains(t, df.InitialFacts, "alice is happy")
	assert.Contains(t, df.InitialFacts, "bob knows alice")
}

func TestParseDomainFile_MissingBeginMarker(t *testing.T) {
	_, err := ParseDomainFile("domain.txt", "<END ENTITIES>\n<BEGIN FACTS>\n<END FACTS>")
	assert.Error(t, err)
}

func TestParseDomainFile_DuplicateEntityName(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
alice : Person
<END ENTITIES>
<BEGIN FACTS>
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}

func TestParseDomainFile_AttributeForUndeclaredEntity(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
bob.title = Detective
<END ENTITIES>
<BEGIN FACTS>
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}

func TestParseDomainFile_UnknownBracketReference(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
<END ENTITIES>
<BEGIN FACTS>
<nobody> is happy
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}

func TestParseDomainFile_UnbalancedBracketsInFact(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
<END ENTITIES>
<BEGIN FACTS>
<alice is happy
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}

func TestParseDomainFile_CapitalWordOutsideBracketsRejected(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
<END ENTITIES>
<BEGIN FACTS>
<alice> Likes cake
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}

func TestParseDomainFile_DuplicateFact(t *testing.T) {
	src := `
<BEGIN ENTITIES>
alice : Person
<END ENTITIES>
<BEGIN FACTS>
<alice> is happy
<alice> is happy
<END FACTS>
`
	_, err := ParseDomainFile("domain.txt", src)
	assert.Error(t, err)
}
