// Package pipeline drives one file through the per-file state machine
// described in spec §4.7: queued, locking, parsing, scraping,
// validating, staging, committing, done, plus the skipped/failed
// terminals.
//
// Grounded on utils/codebaseindex/manager.go's Generate(): a fixed
// numbered sequence of steps, each wrapping its own error and returning
// immediately on failure, with progress logged between steps. The
// driver below follows the same shape but stops at whichever named
// state the file's outcome actually reaches, instead of always running
// every step.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/journal"
	"github.com/jav-tidy/javtidy/internal/lockfile"
	"github.com/jav-tidy/javtidy/internal/naming"
	"github.com/jav-tidy/javtidy/internal/nameparse"
	"github.com/jav-tidy/javtidy/internal/record"
	"github.com/jav-tidy/javtidy/internal/sidecar"
	"github.com/jav-tidy/javtidy/internal/template"
	"github.com/jav-tidy/javtidy/internal/translate"
	"github.com/jav-tidy/javtidy/internal/txn"
	"github.com/jav-tidy/javtidy/internal/workflow"
)

// State names one node of the driver's state machine (spec §4.7).
type State string

const (
	Queued     State = "queued"
	Locking    State = "locking"
	Parsing    State = "parsing"
	Scraping   State = "scraping"
	Validating State = "validating"
	Staging    State = "staging"
	Committing State = "committing"
	Done       State = "done"
	Skipped    State = "skipped"
	Failed     State = "failed"
)

// Outcome is the result of running one file through the driver to a
// terminal state.
type Outcome struct {
	State  State
	Record sidecar.Record
	Err    error
}

// Driver holds the collaborators one worker needs to run files through
// the state machine. A Driver is not safe for concurrent Run calls
// against the *same* source path (the lock file already prevents
// that); concurrent calls against different paths are fine.
type Driver struct {
	Config     config.Config
	Templates  []*template.Template
	Runner     *workflow.Runner
	ImageFetch txn.ImageFetcher
	Journal    *journal.Journal
	Translator *translate.Translator
	Deadline   time.Duration
}

// Run drives source through every state in order, stopping at the
// first terminal it reaches.
func (d *Driver) Run(ctx context.Context, source string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.deadline())
	defer cancel()

	state := Locking
	log.Printf("pipeline: %s: %s", source, state)

	lock, err := lockfile.Acquire(source, d.lockTimeout())
	if err != nil {
		if err == lockfile.ErrContended {
			return Outcome{State: Skipped, Err: err}
		}
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: locking %s: %w", source, err)}
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			log.Printf("pipeline: %s: release lock: %v", source, relErr)
		}
	}()

	state = Parsing
	log.Printf("pipeline: %s: %s", source, state)
	catalogID, err := nameparse.Extract(source, d.Config.IgnoredIDPattern)
	if err != nil {
		return Outcome{State: Skipped, Err: err}
	}

	witness, err := lockfile.Capture(source)
	if err != nil {
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: capturing integrity witness for %s: %w", source, err)}
	}

	state = Scraping
	log.Printf("pipeline: %s: %s catalog=%s", source, state, catalogID)
	bindings, sourceTemplate, err := d.scrape(ctx, catalogID)
	if err != nil {
		return Outcome{State: Failed, Err: err}
	}
	if bindings == nil {
		return Outcome{State: Skipped, Err: fmt.Errorf("pipeline: no template produced a record for %s", catalogID)}
	}

	if verifyErr := witness.Verify(); verifyErr != nil {
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: %s changed during scraping: %w", source, verifyErr)}
	}

	state = Validating
	log.Printf("pipeline: %s: %s", source, state)
	rec := record.Build(bindings, sourceTemplate)
	if err := rec.Validate(); err != nil {
		return Outcome{State: Skipped, Err: err}
	}
	d.translatePlot(ctx, &rec)

	state = Staging
	log.Printf("pipeline: %s: %s", source, state)
	tx, destVideo, err := d.stage(source, rec)
	if err != nil {
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: staging %s: %w", source, err)}
	}

	state = Committing
	log.Printf("pipeline: %s: %s", source, state)
	runID := journal.NewRunID()
	if d.Journal != nil {
		_ = d.Journal.Record(journal.Entry{RunID: runID, WorkItemID: catalogID, Op: "commit_begin", Detail: source, Timestamp: time.Now()})
	}
	if err := tx.Commit(); err != nil {
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: committing %s: %w", source, err)}
	}
	if fi, statErr := os.Stat(destVideo); statErr != nil || fi.Size() != witness.Size {
		return Outcome{State: Failed, Err: fmt.Errorf("pipeline: post-commit check failed for %s", destVideo)}
	}
	if d.Journal != nil {
		_ = d.Journal.Record(journal.Entry{RunID: runID, WorkItemID: catalogID, Op: "commit_done", Detail: destVideo, Timestamp: time.Now()})
	}

	return Outcome{State: Done, Record: rec}
}

// scrape attempts every configured template in priority order,
// stopping at the first one that yields a complete record (spec §4.5).
func (d *Driver) scrape(ctx context.Context, catalogID string) (workflow.Bindings, string, error) {
	for _, tpl := range d.Templates {
		bindings, err := d.Runner.Run(ctx, tpl, map[string][]string{"id": {catalogID}})
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", fmt.Errorf("pipeline: running template %s: %w", tpl.Name, err)
			}
			// A run error (e.g. the entrypoint still failing after its
			// retries) is a miss for this template; try the next one.
			log.Printf("pipeline: %s: template %s: %v", catalogID, tpl.Name, err)
			continue
		}
		rec := record.Build(bindings, tpl.Name)
		if rec.Validate() == nil {
			return bindings, tpl.Name, nil
		}
	}
	return nil, "", nil
}

// stage builds the staging transaction described in spec §4.7: sidecar
// write, video move, subtitle move/link, intermediate directories, and
// the multi-actor policy's extra links.
func (d *Driver) stage(source string, rec sidecar.Record) (*txn.Transaction, string, error) {
	tx := txn.New()

	primaryActor := naming.PrimaryActor(rec)
	actorForPath := primaryActor
	if d.Config.Naming.MultiActorStrategy == string(naming.Merge) {
		actorForPath = naming.MergedActors(rec)
	}

	relBase := naming.Expand(d.Config.Naming.Template, rec, actorForPath)
	destBase := filepath.Join(d.Config.OutputDir, relBase)
	destDir := filepath.Dir(destBase)
	destVideo := destBase + filepath.Ext(source)
	destSidecar := destBase + ".nfo"

	tx.AddCreateDir(destDir)

	sidecarData, err := sidecar.Render(rec)
	if err != nil {
		return nil, "", fmt.Errorf("rendering sidecar: %w", err)
	}
	tx.AddWriteFile(destSidecar, sidecarData)

	tx.AddMoveFile(source, destVideo)

	if d.Config.Subtitle.Migrate {
		for _, ext := range d.Config.Subtitle.Extensions {
			subSrc := stripExt(source) + ext
			if _, statErr := os.Stat(subSrc); statErr != nil {
				continue
			}
			tx.AddMoveFile(subSrc, stripExt(destVideo)+ext)
		}
	}

	if d.ImageFetch != nil {
		tx.StageImage(d.ImageFetch, rec.CoverURL, destBase+"-poster.jpg")
	}

	d.stageAdditionalActors(tx, rec, destVideo, primaryActor)

	return tx, destVideo, nil
}

// stageAdditionalActors wires the multi-actor policy (spec §4.9): every
// actor after the first gets a symlink, hardlink, or nothing, pointing
// at the primary actor's committed video, under that actor's own
// directory.
func (d *Driver) stageAdditionalActors(tx *txn.Transaction, rec sidecar.Record, destVideo, primaryActor string) {
	strategy := d.Config.Naming.MultiActorStrategy
	if strategy != string(naming.Symlink) && strategy != string(naming.Hardlink) {
		return
	}
	if len(rec.Actors) < 2 {
		return
	}

	kind := txn.LinkSymlink
	if strategy == string(naming.Hardlink) {
		kind = txn.LinkHardlink
	}

	for _, actor := range rec.Actors[1:] {
		if actor.Name == primaryActor {
			continue
		}
		rel := naming.Expand(d.Config.Naming.Template, rec, actor.Name)
		linkPath := filepath.Join(d.Config.OutputDir, rel) + filepath.Ext(destVideo)
		tx.AddCreateDir(filepath.Dir(linkPath))
		tx.AddLink(destVideo, linkPath, kind)
	}
}

// translatePlot replaces rec.Plot with its translation when a
// Translator is configured, marking PlotTranslated. Failure is logged
// and otherwise ignored — plot translation is cosmetic enrichment, not
// a record requirement (SPEC_FULL §4.9.2).
func (d *Driver) translatePlot(ctx context.Context, rec *sidecar.Record) {
	if d.Translator == nil || rec.Plot == "" {
		return
	}
	translated, err := d.Translator.Translate(ctx, rec.Plot)
	if err != nil {
		log.Printf("pipeline: translating plot for %s: %v", rec.ID, err)
		return
	}
	rec.Plot = translated
	rec.PlotTranslated = true
}

func stripExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

func (d *Driver) lockTimeout() time.Duration {
	if d.Config.LockTimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(d.Config.LockTimeoutSeconds) * time.Second
}

func (d *Driver) deadline() time.Duration {
	if d.Deadline <= 0 {
		return d.lockTimeout()
	}
	return d.Deadline
}
