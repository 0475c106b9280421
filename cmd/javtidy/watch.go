package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/dirscan"
	"github.com/jav-tidy/javtidy/internal/pipeline"
	"github.com/jav-tidy/javtidy/internal/queue"
	"github.com/jav-tidy/javtidy/internal/tui"
	"github.com/jav-tidy/javtidy/internal/watcher"
)

var uiFlag bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch input_dir continuously, scraping and reorganizing new files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configDir, err := loadConfig()
		if err != nil {
			return err
		}
		driver, err := buildDriver(cfg, configDir)
		if err != nil {
			return err
		}
		defer driver.Journal.Close()

		if err := runStartupRecovery(cfg); err != nil {
			return err
		}

		var rows chan tui.RowUpdate
		if uiFlag {
			rows = make(chan tui.RowUpdate, 64)
			go func() {
				if err := tui.Run(rows); err != nil {
					log.Printf("watch: dashboard exited: %v", err)
				}
			}()
		}

		pool := queue.NewPool(driver, cfg.ThreadLimit, 256, func(item queue.Item, outcome pipeline.Outcome) {
			logOutcome(item.SourcePath, outcome)
			if rows != nil {
				rows <- tui.RowUpdate{SourcePath: item.SourcePath, State: outcome.State, Err: outcome.Err}
			}
		})
		defer pool.Close()

		sweepExisting(cfg, pool)

		ignoreFile := filepath.Join(cfg.InputDir, ".javtidyignore")
		w, err := watcher.New(cfg.InputDir, cfg.MigrateFiles, ignoreFile, 300*time.Millisecond)
		if err != nil {
			return fmt.Errorf("watch: starting watcher: %w", err)
		}
		defer w.Close()

		startupLog("watching %s", cfg.InputDir)
		for ev := range w.Events() {
			if rows != nil {
				rows <- tui.RowUpdate{SourcePath: ev.Path, State: pipeline.Queued}
			}
			pool.Submit(queue.Item{SourcePath: ev.Path})
		}
		return nil
	},
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Sweep input_dir once, scrape/reorganize what it finds, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configDir, err := loadConfig()
		if err != nil {
			return err
		}
		driver, err := buildDriver(cfg, configDir)
		if err != nil {
			return err
		}
		defer driver.Journal.Close()

		if err := runStartupRecovery(cfg); err != nil {
			return err
		}

		pool := queue.NewPool(driver, cfg.ThreadLimit, 256, func(item queue.Item, outcome pipeline.Outcome) {
			logOutcome(item.SourcePath, outcome)
		})

		sweepExisting(cfg, pool)
		pool.Close()
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&uiFlag, "ui", false, "render a live per-file status dashboard")
}

func sweepExisting(cfg config.Config, pool *queue.Pool) {
	paths, err := dirscan.Scan(cfg.InputDir, dirscan.DefaultOptions(cfg.MigrateFiles))
	if err != nil {
		log.Printf("sweep: scanning %s: %v", cfg.InputDir, err)
		return
	}
	startupLog("sweeping %s: %d file(s) found", cfg.InputDir, len(paths))
	for _, p := range paths {
		pool.Submit(queue.Item{SourcePath: p})
	}
}

func logOutcome(source string, outcome pipeline.Outcome) {
	if outcome.Err != nil {
		log.Printf("%-9s %s: %v", outcome.State, source, outcome.Err)
		return
	}
	log.Printf("%-9s %s", outcome.State, source)
}

func loadConfig() (config.Config, string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, filepath.Dir(configPath), nil
}
