package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir     string `toml:"cache_dir"`
	LogDir       string `toml:"log_dir"`
	WhitelistDir string `toml:"whitelist_dir"`
}

// Recognized backend kinds.
const (
	BackendOpenAI = "openai"
	BackendCompat = "compat"
	BackendOllama = "ollama"
)

// Backend contains text-generation backend selection and credentials.
type Backend struct {
	// Kind selects the backend: "openai", "compat" (any OpenAI-compatible
	// endpoint via base_url), or "ollama".
	Kind           string `toml:"kind"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	OllamaHost     string `toml:"ollama_host"`
	OllamaModel    string `toml:"ollama_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PromptLogging  bool   `toml:"prompt_logging"`
}

// Analysis contains per-run defaults for the categorization pipeline.
type Analysis struct {
	BatchSize           int    `toml:"batch_size"`
	UseConsistencyHints bool   `toml:"use_consistency_hints"`
	Whitelist           string `toml:"whitelist"`
	MaxHints            int    `toml:"max_hints"`
	IncludeDirectories  bool   `toml:"include_directories"`
	IncludeHidden       bool   `toml:"include_hidden"`
}

// Consistency contains settings for the label harmonization pass.
type Consistency struct {
	ChunkSize    int `toml:"chunk_size"`
	SnapshotSize int `toml:"snapshot_size"`
	MaxTokens    int `toml:"max_tokens"`
}

// Taxonomy contains tunables for fuzzy category resolution.
type Taxonomy struct {
	// SimilarityThreshold is the normalized Levenshtein ratio above which two
	// labels are considered the same taxonomy entry.
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sortd.
//
// Configuration sections by subsystem:
//   - Paths: cache, log, and whitelist directories
//   - Backend: text-generation backend selection and credentials
//   - Analysis: batch size, hints, whitelist selection
//   - Consistency: harmonization pass chunking
//   - Taxonomy: fuzzy-merge threshold
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Backend     Backend     `toml:"backend"`
	Analysis    Analysis    `toml:"analysis"`
	Consistency Consistency `toml:"consistency"`
	Taxonomy    Taxonomy    `toml:"taxonomy"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sortd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sortd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the cache and logs live in.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir, c.Paths.WhitelistDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
