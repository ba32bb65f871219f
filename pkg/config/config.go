package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Embedded default configuration
//
//go:embed default_config.toml
var embeddedConfigData []byte

// Config holds the application configuration.
type Config struct {
	Filter  FilterConfig  `toml:"filter"`
	Mapping MappingConfig `toml:"mapping"`
	Entropy EntropyConfig `toml:"entropy"`
	Dataset DatasetConfig `toml:"dataset"`
	Engine  EngineConfig  `toml:"engine"`
}

// FilterConfig holds the patterns used to reduce the engine call graph to application code.
type FilterConfig struct {
	FrameworkPrefixes []string `toml:"framework_prefixes"`
	ExcludedMethods   []string `toml:"excluded_methods"`
	EntryPointClass   string   `toml:"entry_point_class"`
	EntryPointMethod  string   `toml:"entry_point_method"`
	ResourceClasses   []string `toml:"resource_classes"`
}

// MappingConfig holds permission mapping discovery settings.
type MappingConfig struct {
	FilePrefixes []string `toml:"file_prefixes"`
}

// EntropyConfig holds entropy extraction settings.
type EntropyConfig struct {
	PayloadName string `toml:"payload_name"`
}

// DatasetConfig holds output naming.
type DatasetConfig struct {
	FileName       string `toml:"file_name"`
	ReportName     string `toml:"report_name"`
	GraphExtension string `toml:"graph_extension"`
	LedgerDir      string `toml:"ledger_dir"`
}

// EngineConfig describes how the external analysis engine is launched.
type EngineConfig struct {
	Command          string   `toml:"command"`
	Args             []string `toml:"args"`
	SourcesSinks     string   `toml:"sources_sinks"`
	CodeElimination  string   `toml:"code_elimination"`
	EnableReflection bool     `toml:"enable_reflection"`
	ResultsFile      string   `toml:"results_file"`
	CallGraphFile    string   `toml:"callgraph_file"`
	DefaultAlgorithm string   `toml:"default_algorithm"`
}

// DefaultConfig returns the default configuration with optional local overrides.
// It always starts with the embedded config, then optionally replaces it with a local config.toml.
func DefaultConfig() (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}

	localConfigPaths := []string{
		"config.toml",       // Current directory (project root when running binary)
		"../config.toml",    // Parent directory (for tests in subdirs)
		"../../config.toml", // Two levels up (for tests in pkg/*)
	}

	for _, path := range localConfigPaths {
		if _, err := os.Stat(path); err == nil {
			localConfig, err := LoadFromFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load local config %s: %v\n", path, err)
				break
			}
			return localConfig, nil
		}
	}

	return &config, nil
}

// LoadFromFile loads configuration from a TOML file on top of the embedded defaults,
// so a partial file only overrides the keys it sets.
func LoadFromFile(filepath string) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	if _, err := toml.DecodeFile(filepath, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", filepath, err)
	}
	return &config, nil
}

// IsFrameworkClass checks if a class belongs to the platform, a support library or the language runtime.
func (c *Config) IsFrameworkClass(className string) bool {
	for _, prefix := range c.Filter.FrameworkPrefixes {
		if strings.HasPrefix(className, prefix) {
			return true
		}
	}
	return false
}

// IsExcludedMethod checks if a method name is a constructor or static initializer.
func (c *Config) IsExcludedMethod(methodName string) bool {
	for _, name := range c.Filter.ExcludedMethods {
		if methodName == name {
			return true
		}
	}
	return false
}

// IsEntryPointMethod checks if a method is the engine's synthetic entry-point driver.
func (c *Config) IsEntryPointMethod(methodName string) bool {
	return c.Filter.EntryPointMethod != "" && methodName == c.Filter.EntryPointMethod
}

// IsEntryPointClass checks if a class (short or qualified name) is the engine's synthetic driver class.
func (c *Config) IsEntryPointClass(className string) bool {
	if c.Filter.EntryPointClass == "" {
		return false
	}
	return className == c.Filter.EntryPointClass || strings.HasSuffix(className, "."+c.Filter.EntryPointClass)
}

// IsResourceClass checks if a class is a generated resource class of the given package,
// including its nested classes (R$string, BuildConfig$1, ...).
func (c *Config) IsResourceClass(packageName, className string) bool {
	for _, name := range c.Filter.ResourceClasses {
		qualified := name
		if packageName != "" {
			qualified = packageName + "." + name
		}
		if className == qualified || strings.HasPrefix(className, qualified+"$") {
			return true
		}
	}
	return false
}

// IsMappingFile checks if a file name is a permission mapping file.
func (c *Config) IsMappingFile(fileName string) bool {
	for _, prefix := range c.Mapping.FilePrefixes {
		if strings.HasPrefix(fileName, prefix) {
			return true
		}
	}
	return false
}
