package config

import "strings"

// ContextAwareConfig wraps the base Config with the package of the application
// being analyzed, so class decisions that depend on it can be made per binary
type ContextAwareConfig struct {
	*Config
	PackageName string // Manifest package of the binary under analysis
}

// NewContextAwareConfig creates a config scoped to one application package
func NewContextAwareConfig(base *Config, packageName string) *ContextAwareConfig {
	return &ContextAwareConfig{
		Config:      base,
		PackageName: packageName,
	}
}

// IsResourceClass checks if a class is one of the application's generated resource classes
func (c *ContextAwareConfig) IsResourceClass(className string) bool {
	return c.Config.IsResourceClass(c.PackageName, className)
}

// IsLocalClass checks if a class is declared under the application package.
// Classes of bundled third-party code are application classes too, but not local ones.
func (c *ContextAwareConfig) IsLocalClass(className string) bool {
	if c.PackageName == "" {
		return false
	}
	return className == c.PackageName || strings.HasPrefix(className, c.PackageName+".")
}

// IsApplicationMethod checks if a method belongs to the application rather than
// the platform, a support library or the engine's synthetic driver
func (c *ContextAwareConfig) IsApplicationMethod(declaringType, methodName string) bool {
	if c.IsExcludedMethod(methodName) {
		return false
	}
	if c.IsFrameworkClass(declaringType) {
		return false
	}
	return !c.IsEntryPointMethod(methodName)
}
