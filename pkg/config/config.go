/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/format"
	"gopkg.in/yaml.v3"
)

// Config represents the dwgkit configuration
type Config struct {
	Reader  Reader  `yaml:"reader"`
	Writer  Writer  `yaml:"writer"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Reader mirrors dwg.ReaderConfig
type Reader struct {
	VerifyChecksums        bool `yaml:"verify_checksums"`
	RetainUnknown          bool `yaml:"retain_unknown"`
	StopAtFirstError       bool `yaml:"stop_at_first_error"`
	IgnoreUnsupportedTypes bool `yaml:"ignore_unsupported_types"`
}

// Writer mirrors dwg.WriterConfig. An empty TargetVersion keeps the
// document's own version.
type Writer struct {
	TargetVersion string `yaml:"target_version"`
	RetainUnknown bool   `yaml:"retain_unknown"`
}

// Server contains the HTTP server configuration
type Server struct {
	Port           int    `yaml:"port"`
	Bind           string `yaml:"bind"`
	ArchiveDir     string `yaml:"archive_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	APIKey         string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Reader: Reader{
			VerifyChecksums: true,
			RetainUnknown:   true,
		},
		Writer: Writer{
			RetainUnknown: true,
		},
		Server: Server{
			Port:           8080,
			Bind:           "127.0.0.1",
			ArchiveDir:     "./data",
			MaxUploadBytes: 64 << 20,
			APIKey:         "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// ReaderConfig returns the reader settings as a dwg.ReaderConfig.
func (c *Config) ReaderConfig() dwg.ReaderConfig {
	return dwg.ReaderConfig{
		VerifyChecksums:        c.Reader.VerifyChecksums,
		RetainUnknown:          c.Reader.RetainUnknown,
		StopAtFirstError:       c.Reader.StopAtFirstError,
		IgnoreUnsupportedTypes: c.Reader.IgnoreUnsupportedTypes,
	}
}

// WriterConfig returns the writer settings as a dwg.WriterConfig. The target
// version accepts a tag such as AC1018 or a release name such as R2004.
func (c *Config) WriterConfig() (dwg.WriterConfig, error) {
	wc := dwg.WriterConfig{RetainUnknown: c.Writer.RetainUnknown}
	if c.Writer.TargetVersion == "" {
		return wc, nil
	}
	var v format.Version
	if err := v.UnmarshalText([]byte(c.Writer.TargetVersion)); err != nil {
		return wc, fmt.Errorf("invalid target version: %w", err)
	}
	wc.Version = v
	return wc, nil
}

// LoadConfig loads configuration from the specified path. Settings missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds the server API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, archiveDir string) (*Config, error) {
	config := DefaultConfig()
	if archiveDir != "" {
		config.Server.ArchiveDir = archiveDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./dwgkit.yaml"
	}

	// For Linux/macOS, use ~/.config/dwgkit/config.yaml
	configDir := filepath.Join(homeDir, ".config", "dwgkit")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
