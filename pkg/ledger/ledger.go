// Package ledger remembers which binaries were already added to a dataset so an
// interrupted batch can be resumed.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/minio/highwayhash"
	"github.com/syndtr/goleveldb/leveldb"
	"gopkg.in/yaml.v3"

	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

var key = []byte("0123456789ABCDEF0123456789ABCDEF")

// Entry is what the ledger stores per processed binary
type Entry struct {
	Package    string    `yaml:"package"`
	File       string    `yaml:"file"`
	RecordedAt time.Time `yaml:"recorded_at"`
}

// Ledger is a persistent set of binary fingerprints
type Ledger struct {
	db     *leveldb.DB
	logger log.Interface
}

// Fingerprint hashes the content of the file at path
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - binary paths are user supplied inputs
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hash, err := highwayhash.New64(key)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", hash.Sum64()), nil
}

// Open opens or creates the ledger stored in dir
func Open(dir string, logger log.Interface) (*Ledger, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", dir, err)
	}
	return &Ledger{db: db, logger: utils.LoggerOrDiscard(logger)}, nil
}

// Reset removes the ledger stored in dir
func Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to reset ledger %s: %w", dir, err)
	}
	return nil
}

// Lookup returns the entry recorded for a fingerprint, or nil when there is none
func (l *Ledger) Lookup(fingerprint string) (*Entry, error) {
	data, err := l.db.Get([]byte(fingerprint), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt ledger entry %s: %w", fingerprint, err)
	}
	return &entry, nil
}

// Record stores the entry under the fingerprint
func (l *Ledger) Record(fingerprint string, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(&entry)
	if err != nil {
		return err
	}
	if err := l.db.Put([]byte(fingerprint), data, nil); err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	l.logger.WithFields(log.Fields{"fingerprint": fingerprint, "package": entry.Package}).Debug("Recorded binary in ledger")
	return nil
}

// Close releases the underlying store
func (l *Ledger) Close() error {
	return l.db.Close()
}
