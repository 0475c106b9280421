package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/template"
	"github.com/jav-tidy/javtidy/internal/translate"
	"github.com/jav-tidy/javtidy/internal/workflow"
)

const testListingHTML = `<html><body>
<div class="item">
  <span class="id">IPX-001</span>
  <span class="title">Sample Title</span>
  <span class="year">2024</span>
  <span class="actor">A</span>
</div>
</body></html>`

func fakeFetcher(body string) workflow.Fetcher {
	return func(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
		return []byte(body), 200, nil
	}
}

func writeTemplateFile(t *testing.T, dir, yamlBody string) *template.Template {
	t.Helper()
	path := filepath.Join(dir, "tpl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	tpl, err := template.Load(path)
	require.NoError(t, err)
	return tpl
}

func newDriver(t *testing.T, tpl *template.Template, outDir string) *Driver {
	return &Driver{
		Config: config.Config{
			OutputDir: outDir,
			Naming: config.NamingConfig{
				Template:           "$actor$/$id$",
				MultiActorStrategy: "first_only",
			},
			LockTimeoutSeconds: 300,
			IgnoredIDPattern:   []string{"_1080p"},
		},
		Templates: []*template.Template{tpl},
		Runner:    workflow.NewRunner(fakeFetcher(testListingHTML), 5),
	}
}

func TestRunCommitsVideoAndSidecar(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	source := filepath.Join(inDir, "IPX-001_1080p.mp4")
	require.NoError(t, os.WriteFile(source, []byte("video-bytes"), 0o644))

	tpl := writeTemplateFile(t, inDir, `
entrypoint: "https://example.test/${id}"
nodes:
  main:
    script: select("div.item")
    children:
      id:
        script: select("span.id").val()
      title:
        script: select("span.title").val()
      year:
        script: select("span.year").val()
      actors:
        script: select("span.actor")
        children:
          name:
            script: val()
`)

	d := newDriver(t, tpl, outDir)
	outcome := d.Run(context.Background(), source)

	require.NoError(t, outcome.Err)
	assert.Equal(t, Done, outcome.State)

	destVideo := filepath.Join(outDir, "A", outcome.Record.ID+".mp4")
	_, statErr := os.Stat(destVideo)
	assert.NoError(t, statErr)

	_, srcErr := os.Stat(source)
	assert.True(t, os.IsNotExist(srcErr))
}

func TestRunTranslatesPlotWhenTranslatorConfigured(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	source := filepath.Join(inDir, "IPX-001_1080p.mp4")
	require.NoError(t, os.WriteFile(source, []byte("video-bytes"), 0o644))

	html := `<html><body>
<div class="item">
  <span class="id">IPX-001</span>
  <span class="title">Sample Title</span>
  <span class="year">2024</span>
  <span class="actor">A</span>
  <span class="plot">Prose en une autre langue</span>
</div>
</body></html>`

	tpl := writeTemplateFile(t, inDir, `
entrypoint: "https://example.test/${id}"
nodes:
  main:
    script: select("div.item")
    children:
      id:
        script: select("span.id").val()
      title:
        script: select("span.title").val()
      year:
        script: select("span.year").val()
      plot:
        script: select("span.plot").val()
      actors:
        script: select("span.actor")
        children:
          name:
            script: val()
`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "test", "object": "chat.completion", "created": 1, "model": "gpt-test",
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": "translated plot"}},
			},
		})
	}))
	defer server.Close()

	d := &Driver{
		Config: config.Config{
			OutputDir:          outDir,
			Naming:             config.NamingConfig{Template: "$actor$/$id$", MultiActorStrategy: "first_only"},
			LockTimeoutSeconds: 300,
			IgnoredIDPattern:   []string{"_1080p"},
		},
		Templates:  []*template.Template{tpl},
		Runner:     workflow.NewRunner(fakeFetcher(html), 5),
		Translator: translate.NewWithBaseURL("key", server.URL+"/v1", "gpt-test", "English"),
	}

	outcome := d.Run(context.Background(), source)

	require.NoError(t, outcome.Err)
	assert.Equal(t, Done, outcome.State)
	assert.True(t, outcome.Record.PlotTranslated)
	assert.Equal(t, "translated plot", outcome.Record.Plot)
}

func TestRunSkipsUnrecognizableFilename(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	source := filepath.Join(inDir, "not-a-catalog-id.mp4")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	tpl := writeTemplateFile(t, inDir, `
entrypoint: "https://example.test"
nodes:
  main: "val()"
`)
	d := newDriver(t, tpl, outDir)
	outcome := d.Run(context.Background(), source)

	assert.Equal(t, Skipped, outcome.State)
	assert.Error(t, outcome.Err)
}
