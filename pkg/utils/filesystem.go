package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
)

// Entry is a directory listing entry
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// Store is the narrow byte I/O surface the pipeline depends on
type Store interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ReadLines(ctx context.Context, path string) ([]string, error)
	List(ctx context.Context, dir string) ([]Entry, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Remove(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) bool
}

// AFSStore implements Store on top of an afs.Service
type AFSStore struct {
	fs afs.Service
}

// NewStore creates a Store backed by the default afs service
func NewStore() *AFSStore {
	return &AFSStore{fs: afs.New()}
}

// ReadFile downloads the whole content of path
func (s *AFSStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	location, err := absolute(path)
	if err != nil {
		return nil, err
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ReadLines reads path and returns its non-empty lines without line terminators
func (s *AFSStore) ReadLines(ctx context.Context, path string) ([]string, error) {
	data, err := s.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines, nil
}

// List returns the direct children of dir, sorted by name
func (s *AFSStore) List(ctx context.Context, dir string) ([]Entry, error) {
	location, err := absolute(dir)
	if err != nil {
		return nil, err
	}
	objects, err := s.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	base := filepath.Base(location)
	var entries []Entry
	for i, object := range objects {
		// afs reports the listed folder itself as the first object
		if i == 0 && object.IsDir() && object.Name() == base {
			continue
		}
		entries = append(entries, Entry{
			Name:  object.Name(),
			Path:  filepath.Join(location, object.Name()),
			IsDir: object.IsDir(),
			Size:  object.Size(),
		})
	}
	sortEntries(entries)
	return entries, nil
}

// WriteFile writes data to path, creating parent directories as needed
func (s *AFSStore) WriteFile(ctx context.Context, path string, data []byte) error {
	location, err := absolute(path)
	if err != nil {
		return err
	}
	if err := validateFilePath(location); err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}
	if err := s.fs.Upload(ctx, location, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Remove deletes path recursively
func (s *AFSStore) Remove(ctx context.Context, path string) error {
	location, err := absolute(path)
	if err != nil {
		return err
	}
	if !s.Exists(ctx, location) {
		return nil
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists
func (s *AFSStore) Exists(ctx context.Context, path string) bool {
	location, err := absolute(path)
	if err != nil {
		return false
	}
	ok, err := s.fs.Exists(ctx, location)
	return err == nil && ok
}

func absolute(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}

// SafeCreateFile creates a file with path validation to prevent directory traversal attacks
func SafeCreateFile(filename string) (*os.File, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	file, err := os.Create(filename) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filename, err)
	}

	return file, nil
}

// validateFilePath validates a file path to prevent directory traversal attacks
func validateFilePath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal patterns: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		sensitiveDirectories := []string{
			"/etc", "/proc", "/sys", "/dev", "/boot",
			"/usr/bin", "/usr/sbin", "/bin", "/sbin",
		}

		for _, sensitive := range sensitiveDirectories {
			if cleanPath == sensitive || strings.HasPrefix(cleanPath, sensitive+"/") {
				return fmt.Errorf("path points to sensitive system directory: %s", path)
			}
		}
	}

	dir := filepath.Dir(cleanPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DirectoryExists checks if a directory exists at the given path
func DirectoryExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
