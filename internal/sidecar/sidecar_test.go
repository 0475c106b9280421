package sidecar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIncludesRequiredFieldsAndUniqueID(t *testing.T) {
	r := Record{
		ID:    "IPX-001",
		Title: "Sample",
		Year:  2024,
		Actors: []Actor{
			{Name: "A", Role: "Herself"},
		},
	}
	out, err := Render(r)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "<movie>")
	assert.Contains(t, s, "<title>Sample</title>")
	assert.Contains(t, s, `<uniqueid type="catalog">IPX-001</uniqueid>`)
	assert.Contains(t, s, "<name>A</name>")
}

func TestRenderOmitsAbsentOptionalFields(t *testing.T) {
	r := Record{ID: "CAWD-456", Title: "NoExtras"}
	out, err := Render(r)
	require.NoError(t, err)
	s := string(out)

	assert.False(t, strings.Contains(s, "<studio>"))
	assert.False(t, strings.Contains(s, "<director>"))
	assert.False(t, strings.Contains(s, "<genre>"))
}

func TestRenderRejectsMissingRequiredField(t *testing.T) {
	_, err := Render(Record{Title: "NoID"})
	require.Error(t, err)

	_, err = Render(Record{ID: "IPX-001"})
	require.Error(t, err)
}
