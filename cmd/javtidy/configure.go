package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/jav-tidy/javtidy/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write a starting config.yaml",
	Long: `Prompts for the handful of required settings and writes them to
--config (default config.yaml), following config.Defaults() for
everything left blank.`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	cfg := config.Defaults()

	log.Print("Input directory (videos to watch): ")
	cfg.InputDir = readLine(reader)

	log.Print("Output directory (reorganized library): ")
	cfg.OutputDir = readLine(reader)

	log.Printf("Worker thread limit (default %d): ", cfg.ThreadLimit)
	if v := readLine(reader); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("configure: invalid thread_limit: %w", err)
		}
		cfg.ThreadLimit = n
	}

	log.Printf("Naming template (default %q): ", cfg.Naming.Template)
	if v := readLine(reader); v != "" {
		cfg.Naming.Template = v
	}

	log.Print("Multi-actor strategy [first_only/merge/symlink/hardlink] (default first_only): ")
	if v := readLine(reader); v != "" {
		cfg.Naming.MultiActorStrategy = v
	}

	log.Print("Template filenames in priority order, comma-separated: ")
	if v := readLine(reader); v != "" {
		for _, name := range strings.Split(v, ",") {
			cfg.TemplatePriority = append(cfg.TemplatePriority, strings.TrimSpace(name))
		}
	}

	log.Print("Enable plot translation via an OpenAI-compatible model? (y/n): ")
	if strings.EqualFold(readLine(reader), "y") {
		cfg.Translate.Enabled = true
		cfg.Translate.APIKey = readSecretLine("Translation API key: ", reader)
		log.Print("Target language (default English): ")
		if v := readLine(reader); v != "" {
			cfg.Translate.TargetLang = v
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("configure: marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("configure: writing %s: %w", configPath, err)
	}

	log.Printf("✅ wrote %s", configPath)
	return nil
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// readSecretLine prompts for a value without echoing it to the
// terminal, falling back to a plain read when stdin isn't a terminal
// (piped config generation in scripts/CI).
func readSecretLine(prompt string, reader *bufio.Reader) string {
	log.Print(prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(reader)
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return readLine(reader)
	}
	return strings.TrimSpace(string(b))
}
