// Package config loads minuted configuration from a JSON config file with
// environment-variable overrides.
package config

import "fmt"

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Index     IndexConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type OllamaConfig struct {
	BaseURL     string
	AnswerModel string
	EmbedModel  string
}

type StorageConfig struct {
	DataDir string
}

type IndexConfig struct {
	ChunkSize int
	Overlap   int
}

type RetrievalConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4100,
			MCPPort: 4101,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			AnswerModel: "mistral-nemo",
			EmbedModel:  "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Index: IndexConfig{
			ChunkSize: 1000,
			Overlap:   100,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/minuted/config.json and applies MINUTED_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Index.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("invalid config: index.chunk_size must be positive, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.Overlap < 0 {
		return Config{}, fmt.Errorf("invalid config: index.overlap must not be negative, got %d", cfg.Index.Overlap)
	}

	return cfg, nil
}
