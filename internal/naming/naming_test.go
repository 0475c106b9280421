package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jav-tidy/javtidy/internal/sidecar"
)

func TestExpandSubstitutesKnownVariables(t *testing.T) {
	r := sidecar.Record{ID: "IPX-001", Year: 2024, Studio: "IP"}
	got := Expand("$actor$/$id$", r, "A")
	assert.Equal(t, "A/IPX-001", got)
}

func TestExpandMissingVariableSubstitutesUnknown(t *testing.T) {
	r := sidecar.Record{ID: "IPX-001"}
	got := Expand("$studio$/$id$", r, "A")
	assert.Equal(t, "Unknown/IPX-001", got)
}

func TestExpandStripsIllegalPathCharacters(t *testing.T) {
	r := sidecar.Record{ID: "IPX-001", Title: `Bad:"Title"`}
	got := Expand("$title$", r, "A")
	assert.Equal(t, "BadTitle", got)
}

func TestPrimaryActorDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", PrimaryActor(sidecar.Record{}))
	assert.Equal(t, "A", PrimaryActor(sidecar.Record{Actors: []sidecar.Actor{{Name: "A"}, {Name: "B"}}}))
}

func TestMergedActorsJoinsWithAmpersand(t *testing.T) {
	r := sidecar.Record{Actors: []sidecar.Actor{{Name: "A"}, {Name: "B"}}}
	assert.Equal(t, "A & B", MergedActors(r))
}
