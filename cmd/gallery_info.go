package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mahir-majid/tiger-dorm-security/internal/config"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
)

var galleryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show persisted gallery statistics",
	RunE:  runGalleryInfo,
}

func init() {
	galleryCmd.AddCommand(galleryInfoCmd)
}

func runGalleryInfo(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store := gallery.Store{
		MatrixPath: cfg.Gallery.MatrixPath,
		NamesPath:  cfg.Gallery.NamesPath,
	}

	g, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	if g == nil {
		fmt.Println("No gallery found")
		fmt.Printf("  Matrix: %s\n", cfg.Gallery.MatrixPath)
		fmt.Printf("  Names:  %s\n", cfg.Gallery.NamesPath)
		return nil
	}

	fmt.Printf("Entries:   %d\n", g.Len())
	fmt.Printf("Dimension: %d\n", g.Dim())

	if meta, err := store.LoadMeta(); err == nil {
		fmt.Printf("Build ID:  %s\n", meta.BuildID)
		fmt.Printf("Built:     %s\n", meta.BuildTime.Format(time.RFC3339))
	}

	// Per-group entry counts, derived from identifier prefixes.
	counts := make(map[string]int)
	for _, id := range g.Identifiers() {
		group, _, ok := strings.Cut(id, "_")
		if !ok {
			group = "(ungrouped)"
		}
		counts[group]++
	}
	groups := make([]string, 0, len(counts))
	for group := range counts {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	fmt.Println("Groups:")
	for _, group := range groups {
		fmt.Printf("  %-12s %d\n", group, counts[group])
	}
	return nil
}
