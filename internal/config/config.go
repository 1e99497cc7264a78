package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Neo4jConfig holds the graph export connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri" toml:"uri" validate:"omitempty,uri"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Database string `yaml:"database" toml:"database"`
}

// Config holds all configuration for the slicer.
type Config struct {
	// Function is the function analyzed when none is given on the command line.
	Function string `yaml:"function" toml:"function" validate:"required"`

	// Format selects the output encoding.
	Format string `yaml:"format" toml:"format" validate:"oneof=dump dot json msgpack"`

	// Direction is the default slice direction.
	Direction string `yaml:"direction" toml:"direction" validate:"oneof=backward forward"`

	// Data-dependence analysis
	KillInBranches    bool `yaml:"kill_in_branches" toml:"kill_in_branches"`
	MaxLoopIterations int  `yaml:"max_loop_iterations" toml:"max_loop_iterations" validate:"gte=1,lte=100000"`
	MaxLoopDepth      int  `yaml:"max_loop_depth" toml:"max_loop_depth" validate:"gte=1,lte=4096"`

	// Parsed files kept between requests (0 means unlimited)
	CacheSize int `yaml:"cache_size" toml:"cache_size" validate:"gte=0"`

	// Targets sliced concurrently
	Parallelism int `yaml:"parallelism" toml:"parallelism" validate:"gte=1,lte=256"`

	// Logging
	LogLevel string `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	JSONLogs bool   `yaml:"json_logs" toml:"json_logs"`

	// Telemetry writes spans and metrics to stderr when set.
	Telemetry bool `yaml:"telemetry" toml:"telemetry"`

	Neo4j Neo4jConfig `yaml:"neo4j" toml:"neo4j"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Function:          "main",
		Format:            "dump",
		Direction:         "backward",
		KillInBranches:    false,
		MaxLoopIterations: 64,
		MaxLoopDepth:      32,
		CacheSize:         64,
		Parallelism:       4,
		LogLevel:          "info",
		JSONLogs:          false,
		Telemetry:         false,
		Neo4j: Neo4jConfig{
			URI:  "neo4j://localhost:7687",
			User: "neo4j",
		},
	}
}

// GlobalConfigFilePath returns the global config file path (~/.slicer/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".slicer/config.yaml"
	}
	return filepath.Join(home, ".slicer", "config.yaml")
}

// ProjectConfigFilePaths returns the project-level config candidates; the
// first one that exists wins.
func ProjectConfigFilePaths() []string {
	return []string{".slicer/config.yaml", ".slicer/config.toml"}
}

// ProjectConfigFilePath is where init writes the project configuration.
func ProjectConfigFilePath() string {
	return ProjectConfigFilePaths()[0]
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables (SLICER_*)
// 2. Project-level config (./.slicer/config.yaml or ./.slicer/config.toml)
// 3. Global config (~/.slicer/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// 1. Load global config (~/.slicer/config.yaml)
	if err := mergeFile(cfg, GlobalConfigFilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// 2. Load project-level config - overrides global
	for _, path := range ProjectConfigFilePaths() {
		err := mergeFile(cfg, path)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// 3. Override with environment variables
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML or TOML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile decodes the file at path over cfg. The format follows the
// extension: .toml is TOML, anything else YAML.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes the configuration to the specified file path, as TOML when the
// path ends in .toml and YAML otherwise.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SLICER_FUNCTION"); v != "" {
		cfg.Function = v
	}
	if v := os.Getenv("SLICER_FORMAT"); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v := os.Getenv("SLICER_DIRECTION"); v != "" {
		cfg.Direction = strings.ToLower(v)
	}
	if v := os.Getenv("SLICER_KILL_IN_BRANCHES"); v != "" {
		cfg.KillInBranches = parseBool(v)
	}
	if v := os.Getenv("SLICER_MAX_LOOP_ITERATIONS"); v != "" {
		if i := ParseInt(v); i > 0 {
			cfg.MaxLoopIterations = i
		}
	}
	if v := os.Getenv("SLICER_MAX_LOOP_DEPTH"); v != "" {
		if i := ParseInt(v); i > 0 {
			cfg.MaxLoopDepth = i
		}
	}
	if v := os.Getenv("SLICER_CACHE_SIZE"); v != "" {
		if i := ParseInt(v); i >= 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("SLICER_PARALLELISM"); v != "" {
		if i := ParseInt(v); i > 0 {
			cfg.Parallelism = i
		}
	}
	if v := os.Getenv("SLICER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SLICER_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("SLICER_TELEMETRY"); v != "" {
		cfg.Telemetry = parseBool(v)
	}
	if v := os.Getenv("SLICER_NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("SLICER_NEO4J_USER"); v != "" {
		cfg.Neo4j.User = v
	}
	if v := os.Getenv("SLICER_NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("SLICER_NEO4J_DATABASE"); v != "" {
		cfg.Neo4j.Database = v
	}
}

// validate reports field names by their yaml keys.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that every field holds an accepted value.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// parseBool accepts true/1/yes (case-insensitive)
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// ParseInt attempts to parse a string as int
func ParseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return -1
	}
	return i
}
