package version

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/mod/semver"
)

// Version information - these can be overridden at build time using ldflags
var (
	// Version is the semantic version of apk-dataset-generator
	Version = "v0.1.0-beta"

	// GitCommit is the git commit hash (set at build time)
	GitCommit = "unknown"

	// GitBranch is the git branch (set at build time)
	GitBranch = "unknown"

	// BuildTime is when the binary was built (set at build time)
	BuildTime = "unknown"
)

// BuildInfo contains build and version information
type BuildInfo struct {
	Version     string    `json:"version" yaml:"version"`
	GitCommit   string    `json:"git_commit" yaml:"git_commit"`
	GitBranch   string    `json:"git_branch" yaml:"git_branch"`
	BuildTime   string    `json:"build_time" yaml:"build_time"`
	GoVersion   string    `json:"go_version" yaml:"go_version"`
	Platform    string    `json:"platform" yaml:"platform"`
	CompileTime time.Time `json:"compile_time" yaml:"-"`
}

// GetBuildInfo returns build information
func GetBuildInfo() *BuildInfo {
	compileTime, err := time.Parse(time.RFC3339, BuildTime)
	if err != nil {
		compileTime = time.Now()
	}

	return &BuildInfo{
		Version:     Version,
		GitCommit:   GitCommit,
		GitBranch:   GitBranch,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		CompileTime: compileTime,
	}
}

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetVersionWithCommit returns version with git commit info
func GetVersionWithCommit() string {
	if GitCommit != "unknown" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", Version, GitCommit[:7])
	}
	return Version
}

// GetFullVersionString returns a version string for CLI display
func GetFullVersionString() string {
	info := GetBuildInfo()
	return fmt.Sprintf("apk-dataset-generator %s\nRelease: %s\nBuilt: %s\nCommit: %s\nBranch: %s\nGo: %s\nPlatform: %s",
		info.Version,
		ReleaseChannel(),
		info.BuildTime,
		info.GitCommit,
		info.GitBranch,
		info.GoVersion,
		info.Platform,
	)
}

// IsValid reports whether Version is a well-formed semantic version
func IsValid() bool {
	return semver.IsValid(Version)
}

// IsBeta returns true if this is a prerelease version
func IsBeta() bool {
	return semver.Prerelease(Version) != ""
}

// IsProduction returns true if this is a stable release
func IsProduction() bool {
	return IsValid() && !IsBeta()
}

// ReleaseChannel names the kind of build: stable, prerelease or development
func ReleaseChannel() string {
	switch {
	case IsProduction():
		return "stable"
	case IsBeta():
		return "prerelease"
	default:
		return "development"
	}
}
