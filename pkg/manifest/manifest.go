// Package manifest defines how the pipeline obtains the metadata declared in an
// application's manifest.
package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
)

// ErrNoManifest is returned when a binary carries no readable manifest
var ErrNoManifest = errors.New("manifest not readable")

// Reader extracts manifest metadata from a binary
type Reader interface {
	Read(ctx context.Context, binaryPath string) (*models.ManifestInfo, error)
}

// ReaderFunc adapts a function to Reader
type ReaderFunc func(ctx context.Context, binaryPath string) (*models.ManifestInfo, error)

// Read implements Reader
func (f ReaderFunc) Read(ctx context.Context, binaryPath string) (*models.ManifestInfo, error) {
	return f(ctx, binaryPath)
}

// Normalize fills a missing package name from the binary's file name and
// returns the declared permissions trimmed, deduplicated and sorted.
func Normalize(info *models.ManifestInfo, binaryPath string) *models.ManifestInfo {
	if info == nil {
		info = &models.ManifestInfo{}
	}
	out := *info

	out.PackageName = strings.TrimSpace(out.PackageName)
	if out.PackageName == "" {
		out.PackageName = BaseName(binaryPath)
	}

	seen := make(map[string]struct{}, len(info.Permissions))
	out.Permissions = nil
	for _, p := range info.Permissions {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out.Permissions = append(out.Permissions, p)
	}
	sort.Strings(out.Permissions)
	return &out
}

// BaseName returns the file name of path up to its first dot
func BaseName(path string) string {
	name := filepath.Base(path)
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
