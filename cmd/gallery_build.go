package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mahir-majid/tiger-dorm-security/internal/config"
	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/embedding"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
)

var galleryBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the face embedding gallery from roster photos",
	Long: `Build the face embedding gallery from labeled roster photos.
Each group folder under the source directory is walked, every image is sent
to the face analysis server, and the resulting embeddings are normalized and
persisted as the gallery artifact pair.

One failed image never aborts the run - failures are counted and reported.
Images with multiple detected faces use the first face and count a warning.

Examples:
  # Build from the configured source directory (5 concurrent workers)
  dorm-security gallery build

  # Build from a specific directory and subset of groups
  dorm-security gallery build --source ./students --groups BUTLER,FORBES

  # Limit number of images to process
  dorm-security gallery build --limit 100`,
	RunE: runGalleryBuild,
}

func init() {
	galleryCmd.AddCommand(galleryBuildCmd)

	galleryBuildCmd.Flags().String("source", "", "Base directory with one folder per group (defaults to GALLERY_SOURCE_DIR)")
	galleryBuildCmd.Flags().StringSlice("groups", nil, "Group folders to ingest (defaults to the embedded roster list)")
	galleryBuildCmd.Flags().Int("concurrency", 5, "Number of parallel workers")
	galleryBuildCmd.Flags().Int("limit", 0, "Limit number of images to process (0 = no limit)")
}

// maxSourceImageSize bounds the longest side of images posted to the detector.
const maxSourceImageSize = 1280

var galleryImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type sourceImage struct {
	group string
	path  string
}

// listSourceImages collects image files from each group folder in sorted
// order. Missing group folders are skipped with a warning.
func listSourceImages(baseDir string, groups []string) ([]sourceImage, error) {
	var images []sourceImage
	for _, group := range groups {
		dir := filepath.Join(baseDir, group)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("Warning: directory not found: %s\n", dir)
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}

		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if galleryImageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)

		for _, f := range files {
			images = append(images, sourceImage{group: group, path: filepath.Join(dir, f)})
		}
	}
	return images, nil
}

// embedSourceImage runs one image through the detector and returns the
// normalized embedding of its first face. The second return value reports
// whether more than one face was detected.
func embedSourceImage(ctx context.Context, det detector.Detector, path string, wantDim int) (embedding.Vector, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading image: %w", err)
	}

	resized, err := detector.ResizeImage(data, maxSourceImageSize)
	if err != nil {
		return nil, false, fmt.Errorf("decoding image: %w", err)
	}

	faces, err := det.DetectFaces(ctx, resized)
	if err != nil {
		return nil, false, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, false, errors.New("no face detected")
	}

	face := faces[0]
	if wantDim > 0 && len(face.Embedding) != wantDim {
		return nil, false, &embedding.DimensionError{Want: wantDim, Got: len(face.Embedding)}
	}

	vec, err := embedding.Normalize(face.Embedding)
	if err != nil {
		return nil, false, err
	}
	return vec, len(faces) > 1, nil
}

func runGalleryBuild(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	limit := mustGetInt(cmd, "limit")

	cfg := config.Load()

	baseDir := mustGetString(cmd, "source")
	if baseDir == "" {
		baseDir = cfg.Gallery.SourceDir
	}
	groups := mustGetStringSlice(cmd, "groups")
	if len(groups) == 0 {
		groups = cfg.Groups.Groups
	}

	images, err := listSourceImages(baseDir, groups)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found under %s", baseDir)
	}
	if limit > 0 && len(images) > limit {
		images = images[:limit]
	}

	fmt.Printf("Computing embeddings for %d images across %d groups...\n\n", len(images), len(groups))

	det := detector.NewClient(cfg.Detector.URL)
	ctx := context.Background()

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var entries []gallery.Entry
	var failures []string
	var successCount, multiFaceCount int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, img := range images {
		wg.Add(1)
		go func(src sourceImage) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			identifier := src.group + "_" + filepath.Base(src.path)

			vec, multi, err := embedSourceImage(ctx, det, src.path, cfg.Detector.Dim)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", identifier, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			if multi {
				multiFaceCount++
			}
			entries = append(entries, gallery.Entry{Identifier: identifier, Embedding: vec})
			successCount++
			mu.Unlock()
		}(img)
	}

	wg.Wait()
	fmt.Println()

	if len(entries) == 0 {
		return errors.New("no embeddings could be computed")
	}

	// Keep builds deterministic regardless of worker completion order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identifier < entries[j].Identifier
	})

	g, err := gallery.Build(entries)
	if err != nil {
		return fmt.Errorf("building gallery: %w", err)
	}

	store := gallery.Store{
		MatrixPath: cfg.Gallery.MatrixPath,
		NamesPath:  cfg.Gallery.NamesPath,
	}
	if err := store.Save(g); err != nil {
		return fmt.Errorf("saving gallery: %w", err)
	}

	fmt.Printf("\nCompleted: %d successful, %d errors\n", successCount, len(failures))
	if multiFaceCount > 0 {
		fmt.Printf("Warning: %d images contained multiple faces (first face used)\n", multiFaceCount)
	}
	for _, f := range failures {
		fmt.Printf("  failed: %s\n", f)
	}
	fmt.Printf("Saved %d embeddings to %s\n", g.Len(), cfg.Gallery.MatrixPath)
	fmt.Printf("Saved identifiers to %s\n", cfg.Gallery.NamesPath)
	return nil
}
