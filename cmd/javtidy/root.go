package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "javtidy",
	Short: "Watches a video library and publishes Kodi-compatible sidecar metadata",
	Long: `javtidy watches a directory of video files, identifies each by its
catalog ID, scrapes metadata from one or more configured web sources
using declarative templates, and publishes a Kodi-compatible sidecar
plus a reorganized file layout.

Getting started:
  1. javtidy configure      Write a starting config.yaml
  2. javtidy run-once       Sweep input_dir once and exit
  3. javtidy watch          Watch input_dir continuously`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(0)
		if verbose {
			log.Printf("[DEBUG] config path: %s", configPath)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config.yaml")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(configureCmd)
}

// Execute runs the root command, silencing cobra's own usage/error
// output so a failing RunE just prints its error to stderr once.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startupLog(format string, args ...interface{}) {
	log.Printf("[%s] "+format, append([]interface{}{time.Now().Format(time.RFC3339)}, args...)...)
}
