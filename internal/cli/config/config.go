package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigName is the base name of the optional settings file (.apphost.yaml).
const ConfigName = ".apphost"

// EnvPrefix prefixes environment overrides, e.g. APPHOST_PUBLISH_OUTPUT_PATH.
const EnvPrefix = "APPHOST"

// appFileNames mark a project root.
var appFileNames = []string{"apphost.yaml", "apphost.yml", "apphost.toml"}

// Config represents the apphost settings
type Config struct {
	Publish PublishConfig `mapstructure:"publish"`
	App     AppConfig     `mapstructure:"app"`
	Log     LogConfig     `mapstructure:"log"`
}

// PublishConfig represents manifest publishing settings
type PublishConfig struct {
	OutputPath   string `mapstructure:"output_path"`
	Mode         string `mapstructure:"mode"`
	ManifestName string `mapstructure:"manifest_name"`
}

// AppConfig locates the app model file
type AppConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration from .apphost.yaml in the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from .apphost.yaml in dir. A missing file is not an error.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("publish.output_path", ".")
	v.SetDefault("publish.mode", "publish")
	v.SetDefault("publish.manifest_name", "manifest.json")
	v.SetDefault("app.file", "apphost.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot finds the nearest directory, starting at the working directory, that holds
// an app model file or a settings file
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	markers := append([]string{ConfigName + ".yaml"}, appFileNames...)
	for {
		for _, name := range markers {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in an apphost project (no %s found)", strings.Join(appFileNames, ", "))
		}
		dir = parent
	}
}

// ResolveAppFile returns path when it exists; a relative path that does not exist is retried
// against the project root.
func ResolveAppFile(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("app model file %s not found", path)
	}

	root, err := GetProjectRoot()
	if err != nil {
		return "", fmt.Errorf("app model file %s not found: %w", path, err)
	}
	candidate := filepath.Join(root, path)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("app model file %s not found", path)
	}
	return candidate, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Publish.Mode {
	case "publish", "local":
	default:
		return fmt.Errorf("publish.mode must be 'publish' or 'local', got: %s", cfg.Publish.Mode)
	}
	if cfg.Publish.ManifestName == "" {
		return fmt.Errorf("publish.manifest_name must not be empty")
	}
	if strings.ContainsAny(cfg.Publish.ManifestName, `/\`) {
		return fmt.Errorf("publish.manifest_name must be a file name, got: %s", cfg.Publish.ManifestName)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json', got: %s", cfg.Log.Format)
	}
	return nil
}
