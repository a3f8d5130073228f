package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yaml
var groupsYAML []byte

type Config struct {
	Detector DetectorConfig
	Gallery  GalleryConfig
	Match    MatchConfig
	Web      WebConfig
	Groups   GroupsConfig
}

type DetectorConfig struct {
	URL string // face analysis server, defaults to http://localhost:8000
	Dim int    // embedding dimension, defaults to 512
}

type GalleryConfig struct {
	MatrixPath string // .npz matrix artifact
	NamesPath  string // identifier list, one per line in matrix row order
	SourceDir  string // base directory with one folder of roster photos per group
}

type MatchConfig struct {
	Threshold float64 // minimum similarity for an accepted match (inclusive)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS whitelist beyond the always-allowed localhost
}

// GroupsConfig lists the residential college folders ingested by
// `gallery build`, loaded from the embedded groups.yaml.
type GroupsConfig struct {
	Groups []string `yaml:"groups"`
}

// envString reads an environment variable, falling back to a default when
// unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var groups GroupsConfig
	if err := yaml.Unmarshal(groupsYAML, &groups); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded groups.yaml: " + err.Error())
	}

	return &Config{
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Gallery: GalleryConfig{
			MatrixPath: envString("GALLERY_MATRIX_PATH", "face_embeddings.npz"),
			NamesPath:  envString("GALLERY_NAMES_PATH", "face_embeddings_metadata.txt"),
			SourceDir:  envString("GALLERY_SOURCE_DIR", "./students"),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.35),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Groups: groups,
	}
}
