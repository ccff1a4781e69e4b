// Package main provides the recruitreach command line: the HTTP API launcher
// and a one-shot drafting command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-reach/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recruitreach",
	Short: "Draft and send job application outreach",
	Long: `RecruitReach reads a job description, researches the hiring company and drafts
a personalized email or cover letter from your resume. Emails can be sent over
SMTP with the resume attached.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to the TOML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
