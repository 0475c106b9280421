package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jav-tidy/javtidy/internal/dom"
	"github.com/jav-tidy/javtidy/internal/script"
)

const sampleHTML = `
<html><body>
<div class="item" data-id="1"><a href="/watch/1">First</a></div>
<div class="item" data-id="2"><a href="watch/2">Second</a></div>
<div class="item" data-id="3"><a>Third</a></div>
</body></html>`

func parseSample(t *testing.T) dom.Cursor {
	t.Helper()
	d, err := dom.Parse("https://example.test/list", strings.NewReader(sampleHTML))
	require.NoError(t, err)
	return d.Root()
}

func run(t *testing.T, src string, env Environment) Result {
	t.Helper()
	p, err := script.Parse(src)
	require.NoError(t, err)
	root := parseSample(t)
	res, err := Evaluate(p, root, env)
	require.NoError(t, err)
	return res
}

func TestEvaluateScalarFromSingleMatch(t *testing.T) {
	res := run(t, `select("div.item[data-id=\"1\"]").val()`, NewEnvironment(nil))
	assert.False(t, res.IsList)
	assert.Equal(t, "First", res.Scalar)
}

func TestEvaluateListFromMultiMatch(t *testing.T) {
	res := run(t, `select("div.item").val()`, NewEnvironment(nil))
	assert.True(t, res.IsList)
	assert.Equal(t, []string{"First", "Second", "Third"}, res.List)
}

func TestEvaluateEmptySelectorYieldsScalarEmptyString(t *testing.T) {
	res := run(t, `select("div.nope").val()`, NewEnvironment(nil))
	assert.False(t, res.IsList, "an empty selector match must stay scalar, not become an empty list")
	assert.Equal(t, "", res.Scalar)
}

func TestEvaluateAbsentAttrYieldsEmptyString(t *testing.T) {
	res := run(t, `select("div.item[data-id=\"3\"]").attr("href")`, NewEnvironment(nil))
	assert.Equal(t, "", res.Scalar)
}

func TestEvaluateInsertWithPlaceholderBase(t *testing.T) {
	env := NewEnvironment(map[string][]string{"base_url": {"https://example.test/"}})
	res := run(t, `select("div.item[data-id=\"1\"]").attr("href").insert(0,${base_url})`, env)
	assert.Equal(t, "https://example.test//watch/1", res.Scalar)

	res2 := run(t, `select("div.item[data-id=\"2\"]").attr("href").insert(0,${base_url})`, env)
	assert.Equal(t, "https://example.test/watch/2", res2.Scalar)
}

func TestEvaluateSubstringOutOfBoundsYieldsEmptyString(t *testing.T) {
	res := run(t, `select("div.item[data-id=\"1\"]").val().substring(5,3)`, NewEnvironment(nil))
	assert.Equal(t, "", res.Scalar)
}

func TestEvaluateSplitForcesList(t *testing.T) {
	res := run(t, `select("div.item[data-id=\"1\"]").val().split("i")`, NewEnvironment(nil))
	assert.True(t, res.IsList, "split must mark its result as a list even with a single resulting piece")
}

func TestEvaluateConditionReopensSelector(t *testing.T) {
	res := run(t, `select("div.item").val().equals("Second").select("a").attr("href")`, NewEnvironment(nil))
	assert.Equal(t, "watch/2", res.Scalar)
}

func TestEvaluateConditionFailureNullifiesScalar(t *testing.T) {
	res := run(t, `select("div.item[data-id=\"1\"]").val().equals("nope")`, NewEnvironment(nil))
	assert.False(t, res.IsList)
	assert.Equal(t, "", res.Scalar)
}

func TestEvaluateUnboundPlaceholderIsError(t *testing.T) {
	p, err := script.Parse(`val().append(${missing})`)
	require.NoError(t, err)
	root := parseSample(t)
	_, err = Evaluate(p, root, NewEnvironment(nil))
	require.Error(t, err)
}
