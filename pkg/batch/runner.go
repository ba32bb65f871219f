package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/callgraph"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/entropy"
	"github.com/smith-xyz/apk-dataset-generator/pkg/leaks"
	"github.com/smith-xyz/apk-dataset-generator/pkg/ledger"
	"github.com/smith-xyz/apk-dataset-generator/pkg/manifest"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/reachability"
	"github.com/smith-xyz/apk-dataset-generator/pkg/report"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
	"github.com/smith-xyz/apk-dataset-generator/pkg/version"
)

// BinaryContext is the state of one binary's analysis. It is created for each
// binary and dropped once its row is written.
type BinaryContext struct {
	Path        string
	Fingerprint string
	Manifest    *models.ManifestInfo
	Record      *models.AnalysisRecord
	OutputDir   string
	ResultsPath string
	Graph       *callgraph.ApplicationGraph
	Resolution  *reachability.Result
	LeakSinks   []models.MethodSignature
	Phases      *utils.PhaseTracker
}

// Runner analyzes binaries one after another
type Runner struct {
	batch     *BatchContext
	engine    engine.Engine
	manifests manifest.Reader
	filter    *callgraph.Filter
	resolver  *reachability.Resolver
	leaks     *leaks.Parser
	store     utils.Store
	logger    log.Interface
	inst      *utils.Instrumentation
}

// NewRunner creates a runner for the batch
func NewRunner(batch *BatchContext, eng engine.Engine, manifests manifest.Reader, store utils.Store, logger log.Interface) *Runner {
	logger = utils.LoggerOrDiscard(logger)
	return &Runner{
		batch:     batch,
		engine:    eng,
		manifests: manifests,
		filter:    callgraph.NewFilter(batch.Config, logger),
		resolver:  reachability.NewResolver(batch.Index, logger),
		leaks:     leaks.NewParser(store, logger),
		store:     store,
		logger:    logger,
		inst:      utils.NewInstrumentation(logger),
	}
}

// Run analyzes every path. A failing binary is logged and counted; it never stops the batch.
func (r *Runner) Run(ctx context.Context, paths []string) *Summary {
	summary := &Summary{}
	progress := r.inst.NewProgressTracker("batch", len(paths))

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		summary.Analyzed++
		bc, skipped, err := r.ProcessBinary(ctx, path)
		switch {
		case err != nil:
			r.logger.WithField("binary", path).WithError(err).Error("Binary analysis failed")
			summary.fail(path, err)
		case skipped:
			summary.Skipped++
		default:
			summary.succeed(bc.Record.FileSize, bc.Record.Entropy)
		}
		progress.Update(1)
	}

	if remaining := len(paths) - progress.Processed(); remaining > 0 {
		r.logger.WithError(ctx.Err()).WithField("remaining", remaining).Warn("Batch interrupted")
	}
	progress.Complete()
	return summary
}

// ProcessBinary runs the whole pipeline for one binary. skipped is true when the
// resume ledger already holds the binary.
func (r *Runner) ProcessBinary(ctx context.Context, path string) (*BinaryContext, bool, error) {
	opts := r.batch.Options
	cfg := r.batch.Config
	logger := r.logger.WithField("binary", path)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false, fmt.Errorf("%w: %s", ErrBinaryNotFound, path)
	}

	bc := &BinaryContext{
		Path:   path,
		Record: models.NewAnalysisRecord(opts.Label),
		Phases: r.inst.NewPhaseTracker(filepath.Base(path)),
	}
	bc.Record.FileSize = info.Size()

	if r.batch.Ledger != nil {
		bc.Fingerprint, err = ledger.Fingerprint(path)
		if err != nil {
			return nil, false, err
		}
		entry, err := r.batch.Ledger.Lookup(bc.Fingerprint)
		if err != nil {
			return nil, false, err
		}
		if entry != nil {
			r.logSkipped(ctx, path, entry, logger)
			return bc, true, nil
		}
	}

	bc.Phases.StartPhase("manifest")
	m, err := r.manifests.Read(ctx, path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read manifest: %w", err)
	}
	bc.Manifest = manifest.Normalize(m, path)
	bc.Record.PackageName = bc.Manifest.PackageName
	bc.Record.MinSdkVersion = bc.Manifest.MinSdkVersion
	bc.Record.TargetSdkVersion = bc.Manifest.TargetSdkVersion
	bc.Record.SetPermissions(bc.Manifest.Permissions)
	logger = logger.WithField("package", bc.Manifest.PackageName)

	bc.Phases.StartPhase("entropy")
	if h, err := entropy.FromArchive(path, cfg.Entropy.PayloadName); err != nil {
		logger.WithError(err).Warn("Payload entropy unavailable")
	} else {
		bc.Record.Entropy = h
	}

	bc.OutputDir = r.batch.OutputFolder(bc.Manifest.PackageName, manifest.BaseName(path))
	bc.ResultsPath = filepath.Join(bc.OutputDir, cfg.Engine.ResultsFile)
	if err := r.store.Remove(ctx, bc.ResultsPath); err != nil {
		return nil, false, err
	}

	bc.Phases.StartPhase("engine")
	graph, err := r.engine.RunAnalysis(ctx, path, engine.Config{
		PlatformDir:         opts.PlatformDir,
		AdditionalClasspath: opts.AdditionalClasspath,
		Timeout:             opts.Timeout,
		CodeElimination:     cfg.Engine.CodeElimination,
		EnableReflection:    cfg.Engine.EnableReflection,
		Algorithm:           opts.Algorithm,
		ResultsPath:         bc.ResultsPath,
		OutputDir:           bc.OutputDir,
	})
	if err == nil && graph == nil {
		err = engine.ErrNoCallGraph
	}
	if err != nil {
		r.cleanup(ctx, bc.OutputDir)
		return nil, false, fmt.Errorf("analysis failed: %w", err)
	}

	bc.Phases.StartPhase("filter")
	bc.Graph, err = r.filter.Build(graph, bc.Manifest.PackageName)
	if err != nil {
		r.cleanup(ctx, bc.OutputDir)
		return nil, false, err
	}

	if opts.ExportCallGraph {
		bc.Phases.StartPhase("export")
		dot := filepath.Join(bc.OutputDir, filepath.Base(path)+cfg.Dataset.GraphExtension)
		if err := r.filter.Export(ctx, r.store, bc.Graph, dot); err != nil {
			logger.WithError(err).Error("Call graph export failed")
		}
	}

	bc.Phases.StartPhase("reachability")
	bc.Resolution = r.resolver.Resolve(bc.Manifest.Permissions, r.engine.ReachableMethods())
	bc.Record.SetReachableMethods(bc.Resolution.Reachable)
	if n := len(bc.Resolution.Unknown); n > 0 {
		logger.Debugf("%d gated methods unknown to the engine, counted as not reachable", n)
	}

	bc.Phases.StartPhase("leaks")
	bc.LeakSinks, err = r.leaks.ParseFile(ctx, bc.ResultsPath)
	switch {
	case errors.Is(err, leaks.ErrNoReport):
		logger.Debug("No leak report, no leaks found")
	case err != nil:
		logger.WithError(err).Warn("Leak report unreadable, treating as no leaks")
	default:
		logger.Infof("Found %d leak sinks", len(bc.LeakSinks))
	}
	bc.Record.SetLeakSinks(bc.LeakSinks)

	bc.Phases.StartPhase("dataset")
	if err := r.batch.Dataset.Append(bc.Record); err != nil {
		return nil, false, err
	}
	bc.Phases.Complete()

	r.writeReport(ctx, bc, logger)

	if r.batch.Ledger != nil {
		entry := ledger.Entry{Package: bc.Manifest.PackageName, File: path}
		if err := r.batch.Ledger.Record(bc.Fingerprint, entry); err != nil {
			logger.WithError(err).Warn("Failed to update resume ledger")
		}
	}

	logger.WithFields(log.Fields{
		"entropy":   bc.Record.Entropy,
		"reachable": len(bc.Resolution.Reachable),
		"leaks":     len(bc.LeakSinks),
	}).Info("Binary analyzed")

	return bc, false, nil
}

func (r *Runner) writeReport(ctx context.Context, bc *BinaryContext, logger log.Interface) {
	stats := bc.Graph.Stats()
	phases := make(map[string]float64)
	for _, name := range bc.Phases.Phases() {
		phases[name] = bc.Phases.Duration(name).Seconds()
	}

	doc := &report.Report{
		Package:          bc.Manifest.PackageName,
		File:             filepath.Base(bc.Path),
		Label:            bc.Record.Label,
		MinSdkVersion:    bc.Manifest.MinSdkVersion,
		TargetSdkVersion: bc.Manifest.TargetSdkVersion,
		Size:             bc.Record.FileSize,
		Entropy:          bc.Record.Entropy,
		MainActivity:     bc.Manifest.MainActivity,
		Algorithm:        string(r.batch.Options.Algorithm),
		Permissions:      bc.Manifest.Permissions,
		ReachableMethods: report.Signatures(bc.Resolution.Reachable),
		UnknownMethods:   len(bc.Resolution.Unknown),
		LeakSinks:        report.Signatures(bc.LeakSinks),
		Graph:            &stats,
		GatedCallers:     gatedCallers(bc.Graph, bc.Resolution.Reachable),
		ActivityCalls:    activityCalls(bc.Graph, bc.Manifest.PackageName, bc.Manifest.MainActivity),
		Phases:           phases,
		GeneratedAt:      time.Now().UTC(),
		Generator:        "apk-dataset-generator " + version.GetVersion(),
	}

	path := filepath.Join(bc.OutputDir, r.batch.Config.Dataset.ReportName)
	if err := report.Write(ctx, r.store, path, doc); err != nil {
		logger.WithError(err).Error("Analysis report not written")
	}
}

// gatedCallers maps every reachable gated API present in the application graph
// to the application methods calling it
func gatedCallers(g *callgraph.ApplicationGraph, reachable []models.MethodSignature) map[string][]string {
	callers := make(map[string][]string)
	for _, m := range reachable {
		if !g.Contains(m) {
			continue
		}
		if sigs := g.GetCallersOf(m); len(sigs) > 0 {
			callers[m.String()] = report.Signatures(sigs)
		}
	}
	return callers
}

// activityCalls lists what the main activity's onCreate calls. Activity names
// starting with '.' are relative to the package.
func activityCalls(g *callgraph.ApplicationGraph, packageName, activity string) []string {
	if activity == "" {
		return nil
	}
	if strings.HasPrefix(activity, ".") {
		activity = packageName + activity
	}
	var calls []string
	for _, m := range g.FindMethodsByName(activity, "onCreate") {
		calls = append(calls, report.Signatures(g.GetCalleesOf(m))...)
	}
	return calls
}

// logSkipped reports what an earlier run recorded for a binary found in the ledger
func (r *Runner) logSkipped(ctx context.Context, path string, entry *ledger.Entry, logger log.Interface) {
	logger = logger.WithFields(log.Fields{
		"package":     entry.Package,
		"recorded_at": entry.RecordedAt.Format(time.RFC3339),
	})

	dir := r.batch.OutputFolder(entry.Package, manifest.BaseName(path))
	previous, err := report.Read(ctx, r.store, filepath.Join(dir, r.batch.Config.Dataset.ReportName))
	if err != nil {
		logger.WithError(err).Debug("No earlier analysis report")
	} else {
		logger = logger.WithFields(log.Fields{
			"reachable": len(previous.ReachableMethods),
			"leaks":     len(previous.LeakSinks),
		})
	}
	logger.Info("Already in dataset, skipping")
}

func (r *Runner) cleanup(ctx context.Context, dir string) {
	if err := r.store.Remove(ctx, dir); err != nil {
		r.logger.WithError(err).WithField("dir", dir).Warn("Failed to remove partial output")
	}
}
