// Package config loads javtidy's single YAML configuration file into a
// flat, tagged struct, following the same style as a typical server
// config block: plain fields, yaml tags, unknown keys logged and
// ignored rather than rejected.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of recognized top-level options (spec §6).
type Config struct {
	InputDir          string          `yaml:"input_dir"`
	OutputDir         string          `yaml:"output_dir"`
	MigrateFiles      []string        `yaml:"migrate_files"`
	IgnoredIDPattern  []string        `yaml:"ignored_id_pattern"`
	TemplatePriority  []string        `yaml:"template_priority"`
	ThreadLimit       int             `yaml:"thread_limit"`
	MaximumFetchCount int             `yaml:"maximum_fetch_count"`
	LockTimeoutSeconds int            `yaml:"lock_timeout_seconds"`
	Naming            NamingConfig    `yaml:"naming"`
	Subtitle          SubtitleConfig  `yaml:"subtitle"`
	Journal           JournalConfig   `yaml:"journal"`
	Translate         TranslateConfig `yaml:"translate"`
}

// NamingConfig controls output path construction (spec §6).
type NamingConfig struct {
	Template          string `yaml:"template"`
	MultiActorStrategy string `yaml:"multi_actor_strategy"`
}

// SubtitleConfig controls whether/how subtitle files travel with their
// video during staging.
type SubtitleConfig struct {
	Migrate    bool     `yaml:"migrate"`
	Extensions []string `yaml:"extensions"`
}

// JournalConfig configures the crash-recovery journal (SPEC_FULL §4.9).
type JournalConfig struct {
	Path         string `yaml:"path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
}

// TranslateConfig configures the optional plot-translation enrichment
// (SPEC_FULL §4.9.2).
type TranslateConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	TargetLang string `yaml:"target_language"`
}

// Defaults mirrors the defaults named throughout spec.md: a four-worker
// pool, a five-minute lock timeout, local-disk journal.
func Defaults() Config {
	return Config{
		ThreadLimit:        4,
		MaximumFetchCount:  3,
		LockTimeoutSeconds: 300,
		Naming: NamingConfig{
			Template:           "$actor$/$id$",
			MultiActorStrategy: "first_only",
		},
		Journal: JournalConfig{
			Path: ".javtidy-journal",
		},
	}
}

// Load reads and parses the YAML file at path over Defaults(). Unknown
// top-level keys are logged as warnings, never rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := checkUnknownKeys(data); err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.InputDir == "" {
		return Config{}, fmt.Errorf("config: input_dir is required")
	}
	if cfg.OutputDir == "" {
		return Config{}, fmt.Errorf("config: output_dir is required")
	}

	return cfg, nil
}

var recognizedKeys = map[string]bool{
	"input_dir": true, "output_dir": true, "migrate_files": true,
	"ignored_id_pattern": true, "template_priority": true,
	"thread_limit": true, "maximum_fetch_count": true,
	"lock_timeout_seconds": true, "naming": true, "subtitle": true,
	"journal": true, "translate": true,
}

// checkUnknownKeys logs, but never fails on, top-level keys this
// version of javtidy doesn't recognize — a config written for a newer
// release should still run.
func checkUnknownKeys(data []byte) error {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse: %w", err)
	}
	for key := range raw {
		if !recognizedKeys[key] {
			log.Printf("config: ignoring unrecognized option %q", key)
		}
	}
	return nil
}
