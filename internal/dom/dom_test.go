package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><body>
<div class="item"><a href="/a">First</a></div>
<div class="item"><a href="/b">Second</a></div>
<div class="item"><a href="/c">Third</a></div>
</body></html>`

func parseSample(t *testing.T) *Document {
	t.Helper()
	d, err := Parse("https://example.test/list", strings.NewReader(sampleHTML))
	require.NoError(t, err)
	return d
}

func TestSelectDocumentOrder(t *testing.T) {
	d := parseSample(t)
	sel, err := CompileSelector(".item a")
	require.NoError(t, err)

	set := d.Root().Select(sel)
	require.Equal(t, 3, set.Len())

	var hrefs []string
	for _, c := range set.Cursors() {
		hrefs = append(hrefs, c.Attr("href"))
	}
	assert.Equal(t, []string{"/a", "/b", "/c"}, hrefs)
}

func TestEmptySelectorMatch(t *testing.T) {
	d := parseSample(t)
	sel, err := CompileSelector(".nope")
	require.NoError(t, err)

	set := d.Root().Select(sel)
	assert.Equal(t, 0, set.Len())
	assert.True(t, set.First().Empty())
	assert.Equal(t, "", set.First().Val())
}

func TestAttrAbsentYieldsEmptyString(t *testing.T) {
	d := parseSample(t)
	sel, err := CompileSelector(".item")
	require.NoError(t, err)
	first := d.Root().Select(sel).First()
	assert.Equal(t, "", first.Attr("data-missing"))
}

func TestPrevAndParentNavigation(t *testing.T) {
	d := parseSample(t)
	sel, err := CompileSelector(".item")
	require.NoError(t, err)
	items := d.Root().Select(sel)
	require.Equal(t, 3, items.Len())

	second := items.At(1)
	first := second.Prev(1)
	require.False(t, first.Empty())
	assert.Equal(t, "First", strings.TrimSpace(first.Val()))

	third := items.At(2)
	backToFirst := third.Prev(2)
	require.False(t, backToFirst.Empty())
	assert.Equal(t, "First", strings.TrimSpace(backToFirst.Val()))

	assert.True(t, first.Prev(1).Empty())

	body := first.Parent(1)
	require.False(t, body.Empty())
	assert.Equal(t, 3, body.Select(sel).Len())
}

func TestNthSiblingIndex(t *testing.T) {
	d := parseSample(t)
	sel, err := CompileSelector("body")
	require.NoError(t, err)
	body := d.Root().Select(sel).First()
	require.False(t, body.Empty())

	nthSel, err := CompileSelector(".item")
	require.NoError(t, err)
	item := body.Select(nthSel).First()
	third := item.Nth(2)
	require.False(t, third.Empty())
	assert.Equal(t, "Third", strings.TrimSpace(third.Val()))
}
