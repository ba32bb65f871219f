// Package batch drives the dataset pipeline over one or many binaries.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/dataset"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/ledger"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/permissions"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// ErrBinaryNotFound is returned when a binary path does not name a file
var ErrBinaryNotFound = errors.New("binary not found")

// Options are the run settings shared by every binary of a batch
type Options struct {
	OutputDir           string
	PermissionsDir      string
	PlatformDir         string
	AdditionalClasspath []string
	Algorithm           engine.Algorithm
	Timeout             time.Duration
	Label               int
	ExportCallGraph     bool
	NewDataset          bool
	Resume              bool
}

// BatchContext holds the state built once at batch start and only read afterwards
type BatchContext struct {
	Config      *config.Config
	Options     Options
	Index       *permissions.Index
	SinkCatalog []models.MethodSignature
	Schema      *dataset.Schema
	Dataset     *dataset.Builder
	Ledger      *ledger.Ledger // nil unless resuming
}

// NewBatchContext loads the permission index and the sink catalog, freezes the
// feature schema and prepares the dataset file. Any failure here is fatal for the run.
func NewBatchContext(ctx context.Context, cfg *config.Config, opts Options, eng engine.Engine, store utils.Store, logger log.Interface) (*BatchContext, error) {
	logger = utils.LoggerOrDiscard(logger)

	if opts.Label != 0 && opts.Label != 1 {
		return nil, fmt.Errorf("label must be 0 or 1, got %d", opts.Label)
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output folder is not set")
	}
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	inst := utils.NewInstrumentation(logger)

	var index *permissions.Index
	err := inst.TimedOperation("load permission mapping", func() (err error) {
		index, err = permissions.NewParser(cfg, store, logger).Load(ctx, opts.PermissionsDir)
		return err
	})
	if err != nil {
		return nil, err
	}

	var catalog []models.MethodSignature
	err = inst.TimedOperation("load sink catalog", func() (err error) {
		catalog, err = eng.SinkCatalog(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sink catalog: %w", err)
	}

	registry := dataset.NewRegistry(logger)
	schema, err := registry.Freeze(index, catalog)
	if err != nil {
		return nil, err
	}

	builder := dataset.NewBuilder(registry, filepath.Join(opts.OutputDir, cfg.Dataset.FileName), logger)
	created, err := builder.Prepare(opts.NewDataset)
	if err != nil {
		return nil, err
	}

	bc := &BatchContext{
		Config:      cfg,
		Options:     opts,
		Index:       index,
		SinkCatalog: catalog,
		Schema:      schema,
		Dataset:     builder,
	}

	if opts.Resume {
		dir := filepath.Join(opts.OutputDir, cfg.Dataset.LedgerDir)
		// A dataset holding only its header has no recorded binaries
		if created {
			if err := ledger.Reset(dir); err != nil {
				return nil, err
			}
		}
		l, err := ledger.Open(dir, logger)
		if err != nil {
			return nil, err
		}
		bc.Ledger = l
	}

	return bc, nil
}

// Close releases the resources held by the batch
func (b *BatchContext) Close() error {
	if b.Ledger != nil {
		return b.Ledger.Close()
	}
	return nil
}

// OutputFolder returns the dedicated folder of a binary
func (b *BatchContext) OutputFolder(packageName, baseName string) string {
	return filepath.Join(b.Options.OutputDir, filepath.Base(packageName)+"_"+baseName)
}
