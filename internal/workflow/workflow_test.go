package workflow

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jav-tidy/javtidy/internal/retry"
	"github.com/jav-tidy/javtidy/internal/template"
)

const listingHTML = `<html><body>
<div class="item"><a class="title" href="/detail/1">First</a></div>
<div class="item"><a class="title" href="/detail/2">Second</a></div>
</body></html>`

const detailHTML = `<html><body><h1 class="title">Detail Title</h1></body></html>`

func fakeFetcher(pages map[string]string) Fetcher {
	return func(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
		body, ok := pages[url]
		if !ok {
			return nil, 404, fmt.Errorf("not found: %s", url)
		}
		return []byte(body), 200, nil
	}
}

func writeTemplateFile(t *testing.T, yamlBody string) *template.Template {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/tpl.yaml"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	tpl, err := template.Load(path)
	require.NoError(t, err)
	return tpl
}

func TestRunMergesMultiMatchValuesAsList(t *testing.T) {
	tpl := writeTemplateFile(t, `
entrypoint: "https://example.test/list"
nodes:
  main:
    script: select("div.item")
    children:
      title:
        script: select("a.title").val()
`)
	pages := map[string]string{"https://example.test/list": listingHTML}
	runner := NewRunner(fakeFetcher(pages), 5)

	bindings, err := runner.Run(context.Background(), tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, bindings["main.title"])
}

func TestRunFollowsRequestAndBindsNestedValue(t *testing.T) {
	tpl := writeTemplateFile(t, `
entrypoint: "https://example.test/list"
nodes:
  main:
    script: select("div.item")
    children:
      detail_url:
        script: select("a.title").attr("href").prepend("https://example.test")
        request: true
        children:
          detail_title:
            script: select("h1.title").val()
`)
	pages := map[string]string{
		"https://example.test/list":           listingHTML,
		"https://example.test/detail/1":       detailHTML,
		"https://example.test/detail/2":       detailHTML,
	}
	runner := NewRunner(fakeFetcher(pages), 5)

	bindings, err := runner.Run(context.Background(), tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Detail Title", "Detail Title"}, bindings["main.detail_url.detail_title"])
}

func TestRunRequestFailureIsSoftMiss(t *testing.T) {
	tpl := writeTemplateFile(t, `
entrypoint: "https://example.test/list"
nodes:
  main:
    script: select("div.item")
    children:
      detail_url:
        script: select("a.title").attr("href").prepend("https://example.test")
        request: true
        children:
          detail_title:
            script: select("h1.title").val()
`)
	pages := map[string]string{"https://example.test/list": listingHTML}
	runner := NewRunner(fakeFetcher(pages), 5, WithRetryConfig(retry.Config{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Factor: 1}))

	bindings, err := runner.Run(context.Background(), tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/detail/1", "/detail/2"}, trimPrefixAll(bindings["main.detail_url"], "https://example.test"))
	_, ok := bindings["main.detail_url.detail_title"]
	assert.False(t, ok)
}

func TestRunEntrypointFetchFailureIsHardError(t *testing.T) {
	tpl := writeTemplateFile(t, `
entrypoint: "https://example.test/missing"
nodes:
  main: "val()"
`)
	runner := NewRunner(fakeFetcher(map[string]string{}), 5, WithRetryConfig(retry.Config{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Factor: 1}))

	_, err := runner.Run(context.Background(), tpl, nil)
	require.Error(t, err)
}

func trimPrefixAll(values []string, prefix string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v[len(prefix):]
	}
	return out
}
