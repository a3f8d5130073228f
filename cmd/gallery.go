package cmd

import "github.com/spf13/cobra"

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the face embedding gallery",
}

func init() {
	rootCmd.AddCommand(galleryCmd)
}
