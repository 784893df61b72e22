package config

const (
	defaultCacheDir            = "~/.local/share/sortd"
	defaultLogDir              = "~/.local/share/sortd/logs"
	defaultWhitelistDir        = "~/.config/sortd/whitelists"
	defaultBackendKind         = "openai"
	defaultModel               = "gpt-4o-mini"
	defaultOllamaHost          = "http://127.0.0.1:11434"
	defaultOllamaModel         = "llama3.2"
	defaultTimeoutSeconds      = 60
	defaultBatchSize           = 10
	defaultMaxHints            = 5
	defaultChunkSize           = 10
	defaultSnapshotSize        = 150
	defaultConsistencyTokens   = 512
	defaultSimilarityThreshold = 0.84
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:     defaultCacheDir,
			LogDir:       defaultLogDir,
			WhitelistDir: defaultWhitelistDir,
		},
		Backend: Backend{
			Kind:           defaultBackendKind,
			Model:          defaultModel,
			OllamaHost:     defaultOllamaHost,
			OllamaModel:    defaultOllamaModel,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Analysis: Analysis{
			BatchSize: defaultBatchSize,
			MaxHints:  defaultMaxHints,
		},
		Consistency: Consistency{
			ChunkSize:    defaultChunkSize,
			SnapshotSize: defaultSnapshotSize,
			MaxTokens:    defaultConsistencyTokens,
		},
		Taxonomy: Taxonomy{
			SimilarityThreshold: defaultSimilarityThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
