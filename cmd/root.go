package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dorm-security",
	Short: "Face recognition backend for dorm entry monitoring",
	Long: `Dorm Security identifies people on webcam frames by matching face
embeddings against a precomputed gallery of residential college rosters.
It provides a web API for frame processing and CLI commands for building
and inspecting the embedding gallery.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
