package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// LoadList reads a list file of binary paths. Relative entries are resolved
// against the directory of the list file.
func LoadList(ctx context.Context, store utils.Store, path string) ([]string, error) {
	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	base := filepath.Dir(path)
	entries := utils.ParseListFile(string(data))
	for i, entry := range entries {
		if !filepath.IsAbs(entry) {
			entries[i] = filepath.Join(base, entry)
		}
	}
	return entries, nil
}
