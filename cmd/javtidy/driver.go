package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/journal"
	"github.com/jav-tidy/javtidy/internal/pipeline"
	"github.com/jav-tidy/javtidy/internal/template"
	"github.com/jav-tidy/javtidy/internal/translate"
	"github.com/jav-tidy/javtidy/internal/workflow"
)

const userAgent = "javtidy/1.0"

// buildDriver assembles a pipeline.Driver from a loaded config: the
// priority-ordered template set (resolved against a "templates"
// directory sitting beside the config file), a colly-backed workflow
// runner, a local-or-Postgres journal, and a plain net/http image
// fetcher for staged cover art.
func buildDriver(cfg config.Config, configDir string) (*pipeline.Driver, error) {
	templatesDir := filepath.Join(configDir, "templates")
	templates, err := template.LoadPriorityOrdered(templatesDir, cfg.TemplatePriority)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	fetcher := workflow.NewCollyFetcher(userAgent, 30*time.Second)
	runner := workflow.NewRunner(fetcher, cfg.MaximumFetchCount)

	j, err := journal.Open(cfg.Journal.Path, cfg.Journal.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	translator, err := translate.New(cfg.Translate)
	if err != nil {
		return nil, fmt.Errorf("configuring translator: %w", err)
	}

	return &pipeline.Driver{
		Config:     cfg,
		Templates:  templates,
		Runner:     runner,
		ImageFetch: fetchImage,
		Journal:    j,
		Translator: translator,
		Deadline:   time.Duration(cfg.LockTimeoutSeconds) * time.Second,
	}, nil
}

// fetchImage retrieves cover art over plain HTTP — unlike the workflow
// runner's document fetches, a single image download needs no HTML
// parsing or colly callback wiring, so it stays on net/http directly.
func fetchImage(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching image %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image %s: http %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
