package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "gate",
	Short: "Two-factor access gate controller",
	Long: `Gate drives a physical access terminal: it reads a QR token from the
camera, verifies it with the access-control backend, captures the holder's
face for a second verification and records every outcome.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save backend responses for debugging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
