package gallery

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaVersion = 1

// Meta is an advisory sidecar written next to the matrix artifact, used to
// detect artifact-pair mismatches and to identify builds.
type Meta struct {
	EntryCount int       `json:"entry_count"`
	Dim        int       `json:"dim"`
	BuildID    string    `json:"build_id"`
	BuildTime  time.Time `json:"build_time"`
	Version    int       `json:"version"`
}

// Store reads and writes the persisted gallery artifact pair: the .npz
// matrix and the names file, one identifier per line in matrix row order.
type Store struct {
	MatrixPath string
	NamesPath  string
}

func (s Store) metaPath() string {
	return s.MatrixPath + ".meta"
}

// writeAtomic writes through a temp file in the destination directory and
// renames it into place so readers never observe a partial file.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Save persists the gallery. Each artifact is written atomically; a reader
// that races a save and finds only one artifact of the pair treats the
// gallery as absent.
func (s Store) Save(g *Gallery) error {
	if err := writeAtomic(s.MatrixPath, func(w io.Writer) error {
		return writeNPZ(w, g.Len(), g.Dim(), g.matrix)
	}); err != nil {
		return fmt.Errorf("writing matrix artifact: %w", err)
	}

	if err := writeAtomic(s.NamesPath, func(w io.Writer) error {
		for _, id := range g.identifiers {
			if _, err := fmt.Fprintln(w, id); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("writing names artifact: %w", err)
	}

	meta := Meta{
		EntryCount: g.Len(),
		Dim:        g.Dim(),
		BuildID:    uuid.New().String(),
		BuildTime:  time.Now().UTC(),
		Version:    metaVersion,
	}
	if err := writeAtomic(s.metaPath(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(meta)
	}); err != nil {
		return fmt.Errorf("writing meta sidecar: %w", err)
	}
	return nil
}

// Load reads the persisted gallery. It returns (nil, nil) when either
// artifact of the pair is missing, and ErrCorruptGallery when the artifacts
// disagree with each other.
func (s Store) Load() (*Gallery, error) {
	for _, path := range []string{s.MatrixPath, s.NamesPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
	}

	rows, dim, data, err := readNPZ(s.MatrixPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.NamesPath)
	if err != nil {
		return nil, fmt.Errorf("reading names artifact: %w", err)
	}
	var names []string
	if trimmed := strings.TrimRight(string(raw), "\n"); trimmed != "" {
		names = strings.Split(trimmed, "\n")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}

	if len(names) != rows {
		return nil, fmt.Errorf("%w: matrix has %d rows, names file has %d entries",
			ErrCorruptGallery, rows, len(names))
	}

	// The sidecar is advisory; when present it must agree with the pair.
	if meta, err := s.LoadMeta(); err == nil && meta.EntryCount != rows {
		return nil, fmt.Errorf("%w: meta sidecar records %d entries, matrix has %d rows",
			ErrCorruptGallery, meta.EntryCount, rows)
	}

	return &Gallery{identifiers: names, matrix: data, dim: dim}, nil
}

// LoadMeta reads the advisory build metadata sidecar.
func (s Store) LoadMeta() (Meta, error) {
	var meta Meta
	raw, err := os.ReadFile(s.metaPath())
	if err != nil {
		return meta, fmt.Errorf("reading meta sidecar: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("parsing meta sidecar: %w", err)
	}
	return meta, nil
}
