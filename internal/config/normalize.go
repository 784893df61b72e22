package config

import (
	"os"
	"strings"
)

// normalize expands paths, applies environment overrides, and backfills zero
// values with defaults so downstream packages never re-check them.
func (c *Config) normalize() error {
	if key := strings.TrimSpace(os.Getenv("SORTD_API_KEY")); key != "" {
		c.Backend.APIKey = key
	}
	if host := strings.TrimSpace(os.Getenv("SORTD_OLLAMA_HOST")); host != "" {
		c.Backend.OllamaHost = host
	}

	defaults := Default()
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaults.Paths.CacheDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaults.Paths.LogDir
	}
	if strings.TrimSpace(c.Paths.WhitelistDir) == "" {
		c.Paths.WhitelistDir = defaults.Paths.WhitelistDir
	}

	for _, field := range []*string{&c.Paths.CacheDir, &c.Paths.LogDir, &c.Paths.WhitelistDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = defaults.Backend.Kind
	}
	if strings.TrimSpace(c.Backend.Model) == "" {
		c.Backend.Model = defaults.Backend.Model
	}
	if strings.TrimSpace(c.Backend.OllamaHost) == "" {
		c.Backend.OllamaHost = defaults.Backend.OllamaHost
	}
	if strings.TrimSpace(c.Backend.OllamaModel) == "" {
		c.Backend.OllamaModel = defaults.Backend.OllamaModel
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaults.Backend.TimeoutSeconds
	}

	if c.Analysis.BatchSize <= 0 {
		c.Analysis.BatchSize = defaults.Analysis.BatchSize
	}
	if c.Analysis.MaxHints <= 0 {
		c.Analysis.MaxHints = defaults.Analysis.MaxHints
	}

	if c.Consistency.ChunkSize <= 0 {
		c.Consistency.ChunkSize = defaults.Consistency.ChunkSize
	}
	if c.Consistency.SnapshotSize <= 0 {
		c.Consistency.SnapshotSize = defaults.Consistency.SnapshotSize
	}
	if c.Consistency.MaxTokens <= 0 {
		c.Consistency.MaxTokens = defaults.Consistency.MaxTokens
	}

	if c.Taxonomy.SimilarityThreshold == 0 {
		c.Taxonomy.SimilarityThreshold = defaults.Taxonomy.SimilarityThreshold
	}

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	return nil
}
