// Package main provides the entry point for the hiring pipeline API server and
// its operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hiring_pipeline",
	Short: "Hiring pipeline HTTP API server",
	Long:  "Hiring pipeline maps HR recruiters to admins, assigns candidates to HR and runs oracle-assisted interviews via REST API.",
}

// configPath is shared by every command that bootstraps the application.
var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file overlaid on the environment")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
