package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds application configuration. It is constructed once at startup
// and passed by value into the components that need it; nothing mutates it
// after Load returns.
type Config struct {
	// Provider selects the completion backend: "ollama", "openai", or any
	// OpenAI-compatible endpoint.
	Provider string `json:"provider,omitempty"`

	// Model is the model name, in whatever format the provider expects.
	Model string `json:"model,omitempty"`

	// Endpoint is the API base URL. Required for ollama (default
	// http://localhost:11434), optional for hosted providers.
	Endpoint string `json:"endpoint,omitempty"`

	// APIKey authenticates against hosted providers. Unused for ollama.
	APIKey string `json:"api_key,omitempty"`

	// Temperature is the sampling temperature for completion requests.
	Temperature float64 `json:"temperature,omitempty"`

	// BaseDir is the state directory (~/.valet). Tests point this at
	// t.TempDir().
	BaseDir string `json:"-"`
}

// BinDir returns the managed local-tool directory. Binaries installed by
// `valet install` land here, and it is prepended to PATH for spawned
// commands so local installs win over system ones.
func (c Config) BinDir() string {
	return filepath.Join(c.BaseDir, "bin")
}

// LogFile returns the debug log path.
func (c Config) LogFile() string {
	return filepath.Join(c.BaseDir, "valet.log")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		Model:       "qwen3:4b",
		Endpoint:    "http://localhost:11434",
		Temperature: 0.2,
	}
}

// Load builds the configuration for baseDir: defaults, overlaid with
// baseDir/config.json if present, overlaid with VALET_* environment
// variables. It also ensures the managed bin directory exists.
func Load(baseDir string) (Config, error) {
	cfg := DefaultConfig()
	cfg.BaseDir = baseDir

	fileCfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return Config{}, err
	}
	cfg = merge(cfg, fileCfg)
	cfg = applyEnv(cfg)

	if err := os.MkdirAll(cfg.BinDir(), 0o755); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns a zero config if the file doesn't exist.
func loadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge combines base and overlay configs. Overlay values win if non-zero.
func merge(base, overlay Config) Config {
	result := base

	if overlay.Provider != "" {
		result.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		result.Model = overlay.Model
	}
	if overlay.Endpoint != "" {
		result.Endpoint = overlay.Endpoint
	}
	if overlay.APIKey != "" {
		result.APIKey = overlay.APIKey
	}
	if overlay.Temperature != 0 {
		result.Temperature = overlay.Temperature
	}

	return result
}

// applyEnv overlays VALET_* environment variables onto cfg.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("VALET_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("VALET_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("VALET_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("VALET_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("VALET_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	return cfg
}
