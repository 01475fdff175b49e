// Package config loads atlas configuration.
//
// Priority (highest first): ATLAS_* environment variables, the project file
// .atlas/config.yml, built-in defaults.
package config

import (
	"path/filepath"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Config represents the complete atlas configuration.
type Config struct {
	Languages []string      `yaml:"languages" mapstructure:"languages"` // enabled language names
	Paths     PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Engine    EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Storage   StorageConfig `yaml:"storage" mapstructure:"storage"`
	Log       LogConfig     `yaml:"log" mapstructure:"log"`
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for source files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to skip
}

// EngineConfig tunes the extraction worker pool.
type EngineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
}

// StorageConfig locates the signature store.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // relative paths resolve against the project root
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	Color bool   `yaml:"color" mapstructure:"color"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Languages: lang.Names(),
		Paths: PathsConfig{
			Code: []string{
				"**/*.py",
				"**/*.pyi",
				"**/*.js",
				"**/*.jsx",
				"**/*.mjs",
				"**/*.cjs",
				"**/*.ts",
				"**/*.mts",
				"**/*.cts",
				"**/*.tsx",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"__pycache__/**",
				".venv/**",
				"venv/**",
				"**/*.min.js",
				"**/*.d.ts",
			},
		},
		Engine: EngineConfig{
			Workers: 0,
		},
		Storage: StorageConfig{
			Path: filepath.Join(".atlas", "atlas.db"),
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
	}
}

// StoragePath returns the store location, resolved against rootDir when relative.
func (c *Config) StoragePath(rootDir string) string {
	if c.Storage.Path == ":memory:" || filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(rootDir, c.Storage.Path)
}

// Extensions returns the file extensions of the enabled languages.
func (c *Config) Extensions() []string {
	var exts []string
	for _, name := range c.Languages {
		if spec := lang.ForName(name); spec != nil {
			exts = append(exts, spec.Extensions...)
		}
	}
	return exts
}
