package recommender

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const defaultConfigFile = "config.json"

// LoadConfig loads configuration from the given path or the default config.json.
// A missing file yields the defaults. Environment overrides are applied last.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// ReadConfigFile loads the file settings alone, without environment overrides. It is
// the base SaveConfig callers should modify so env values never leak into the file.
func ReadConfigFile(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ApplyEnv overrides file settings with RECOMMENDER_* and LOG_* environment variables.
// Binaries load a .env file with godotenv before calling LoadConfig.
func (c *Config) ApplyEnv() {
	if v := envValue("RECOMMENDER_MODEL_PATH"); v != "" {
		c.Model.ModelPaths = splitList(v)
	}
	if v := envValue("RECOMMENDER_ORT_LIB"); v != "" {
		c.Model.OrtLib = v
	}
	if v := envValue("RECOMMENDER_MAPPINGS_DIR"); v != "" {
		c.MappingsDir = v
	}
	if v := envValue("RECOMMENDER_CATALOG"); v != "" {
		c.CatalogPaths = splitList(v)
	}
	if v := envValue("RECOMMENDER_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			c.TopK = k
		}
	}
	if v := envValue("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := envValue("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
