// Package config resolves runtime settings. Later sources win: built-in defaults,
// then the YAML config file, then the environment (a .env file in the working
// directory is loaded into the environment first).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/example/procrastinator/internal/providers/llm"
)

// EnvConfigPath overrides where the config file is looked up.
const EnvConfigPath = "PROCRASTINATOR_CONFIG"

type Config struct {
	Port    string `yaml:"port" mapstructure:"port"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// GeneratorURL points enrichment at a remote /api/generate service instead of
	// calling a model directly.
	GeneratorURL string   `yaml:"generator_url" mapstructure:"generator_url"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`

	LLM llm.Config `yaml:"llm" mapstructure:"llm"`

	// File is the config file that was read, empty when none was found.
	File string `yaml:"-" mapstructure:"-"`
}

func Default() *Config {
	return &Config{
		Port:        "8080",
		DataDir:     DefaultDataDir(),
		CORSOrigins: []string{"*"},
		LLM: llm.Config{
			Timeout:     45 * time.Second,
			Temperature: 0.7,
		},
	}
}

// DefaultDataDir is <user config dir>/procrastinator, or ./.procrastinator when the
// platform has no config dir.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".procrastinator"
	}
	return filepath.Join(dir, "procrastinator")
}

// Path is the config file location: $PROCRASTINATOR_CONFIG or <dataDir>/config.yaml.
func Path(dataDir string) string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(dataDir, "config.yaml")
}

func Load() (*Config, error) {
	return LoadDir("")
}

// LoadDir is Load with dataDir, when set, taking precedence over every other source.
func LoadDir(dataDir string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if dir := getEnv("DATA_DIR", ""); dir != "" {
		cfg.DataDir = dir
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	path := Path(cfg.DataDir)
	if err := loadFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		cfg.File = path
	}
	applyEnv(cfg)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.GeneratorURL = getEnv("GENERATOR_URL", cfg.GeneratorURL)
	if origins := parseCSVEnv("CORS_ORIGINS"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}

	l := &cfg.LLM
	l.Provider = getEnv("LLM_PROVIDER", l.Provider)
	l.Model = getEnv("LLM_MODEL", l.Model)
	l.OpenAIKey = getEnv("OPENAI_API_KEY", l.OpenAIKey)
	l.OpenAIBase = getEnv("OPENAI_API_BASE", l.OpenAIBase)
	l.AnthropicKey = getEnv("ANTHROPIC_API_KEY", l.AnthropicKey)
	l.AnthropicURL = getEnv("ANTHROPIC_API_URL", l.AnthropicURL)
	l.GoogleKey = getEnv("GOOGLE_API_KEY", l.GoogleKey)
	l.GeminiURL = getEnv("GEMINI_API_URL", l.GeminiURL)
	if ms := getEnvInt("LLM_HTTP_TIMEOUT_MS", 0); ms > 0 {
		l.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v := getEnv("LLM_TEMPERATURE", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			l.Temperature = float32(f)
		}
	}
	if v := getEnv("LLM_DEBUG", ""); v != "" {
		l.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

// WriteDefault writes the defaults to path as YAML, creating parent directories.
// API keys are left out.
func WriteDefault(path string) error {
	cfg := Default()
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	header := "# procrastinator configuration; environment variables override these values\n"
	return os.WriteFile(path, append([]byte(header), out...), 0o644)
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseCSVEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
