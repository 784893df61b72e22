package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateTaxonomy(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	switch c.Backend.Kind {
	case BackendOpenAI, BackendCompat, BackendOllama:
	default:
		return fmt.Errorf("backend.kind must be one of openai, compat, ollama (got %q)", c.Backend.Kind)
	}

	if c.Backend.Kind == BackendCompat && strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is required when backend.kind is compat")
	}
	if c.Backend.Kind == BackendOllama {
		if _, err := url.Parse(c.Backend.OllamaHost); err != nil {
			return fmt.Errorf("backend.ollama_host is not a valid URL: %w", err)
		}
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return errors.New("backend.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.BatchSize <= 0 {
		return errors.New("analysis.batch_size must be positive")
	}
	if c.Consistency.ChunkSize <= 0 {
		return errors.New("consistency.chunk_size must be positive")
	}
	if c.Consistency.SnapshotSize <= 0 {
		return errors.New("consistency.snapshot_size must be positive")
	}
	return nil
}

func (c *Config) validateTaxonomy() error {
	if c.Taxonomy.SimilarityThreshold < 0 || c.Taxonomy.SimilarityThreshold > 1 {
		return errors.New("taxonomy.similarity_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
