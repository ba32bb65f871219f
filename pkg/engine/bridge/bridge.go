// Package bridge drives an external analysis process. The process is invoked once
// per binary and hands its results back as files: a JSON call graph document and
// the XML leak report.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/sinks"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// killGrace is how long the process may outlive its own analysis timeout
const killGrace = 2 * time.Minute

// Engine implements engine.Engine on top of the bridge process
type Engine struct {
	cfg     config.EngineConfig
	store   utils.Store
	logger  log.Interface
	oracle  engine.Oracle
	catalog []models.MethodSignature
}

// New creates a bridge engine
func New(cfg config.EngineConfig, store utils.Store, logger log.Interface) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		logger: utils.LoggerOrDiscard(logger),
		oracle: engine.NewMethodSet(nil, nil),
	}
}

// Available checks that the bridge command can be launched
func (e *Engine) Available() error {
	return utils.CheckCommandAvailable(e.cfg.Command)
}

// RunAnalysis implements engine.Engine
func (e *Engine) RunAnalysis(ctx context.Context, binaryPath string, cfg engine.Config) (engine.CallGraph, error) {
	e.oracle = engine.NewMethodSet(nil, nil)

	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("engine output directory is not set")
	}
	graphPath := filepath.Join(cfg.OutputDir, e.cfg.CallGraphFile)
	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create engine output directory: %w", err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout+killGrace)
		defer cancel()
	}

	args := append(append([]string{}, e.cfg.Args...), e.AnalyzeArgs(binaryPath, graphPath, cfg)...)
	result := utils.ExecuteCommand(ctx, e.logger, "", e.cfg.Command, args...)
	if !result.Succeeded() {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("analysis aborted: %w", ctx.Err())
		}
		return nil, result.Err("analysis engine")
	}

	if !e.store.Exists(ctx, graphPath) {
		return nil, engine.ErrNoCallGraph
	}
	data, err := e.store.ReadFile(ctx, graphPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNoCallGraph, err)
	}

	decoded, err := DecodeGraph(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if decoded.Skipped > 0 {
		e.logger.WithField("binary", binaryPath).Warnf("Skipped %d malformed method signatures in call graph document", decoded.Skipped)
	}
	e.oracle = decoded.Oracle

	e.logger.WithFields(log.Fields{
		"binary":    binaryPath,
		"classes":   len(decoded.Graph.Classes()),
		"reachable": decoded.Oracle.Len(),
	}).Debug("Decoded engine call graph")

	return decoded.Graph, nil
}

// AnalyzeArgs builds the command line of the analyze sub-command
func (e *Engine) AnalyzeArgs(binaryPath, graphPath string, cfg engine.Config) []string {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = engine.DefaultAlgorithm
	}
	codeElimination := cfg.CodeElimination
	if codeElimination == "" {
		codeElimination = e.cfg.CodeElimination
	}

	args := []string{
		"analyze",
		"--apk", binaryPath,
		"--platforms", cfg.PlatformDir,
		"--algorithm", string(algorithm),
		"--code-elimination", codeElimination,
		"--sources-sinks", e.cfg.SourcesSinks,
	}
	if len(cfg.AdditionalClasspath) > 0 {
		args = append(args, "--classpath", strings.Join(cfg.AdditionalClasspath, string(os.PathListSeparator)))
	}
	if cfg.Timeout > 0 {
		args = append(args, "--timeout", strconv.Itoa(int(cfg.Timeout.Seconds())))
	}
	if cfg.EnableReflection {
		args = append(args, "--reflection")
	}
	if cfg.ResultsPath != "" {
		args = append(args, "--results", cfg.ResultsPath)
	}
	return append(args, "--callgraph-out", graphPath)
}

// ReachableMethods implements engine.Engine
func (e *Engine) ReachableMethods() engine.Oracle {
	return e.oracle
}

// SinkCatalog implements engine.Engine. The definitions file is read once.
func (e *Engine) SinkCatalog(ctx context.Context) ([]models.MethodSignature, error) {
	if e.catalog != nil {
		return e.catalog, nil
	}
	catalog, err := sinks.Load(ctx, e.store, e.cfg.SourcesSinks, e.logger)
	if err != nil {
		return nil, err
	}
	e.catalog = catalog
	return catalog, nil
}

type graphDocument struct {
	Classes []struct {
		Name        string   `json:"name"`
		Application bool     `json:"application"`
		Methods     []string `json:"methods"`
	} `json:"classes"`
	Edges []struct {
		Src string `json:"src"`
		Tgt string `json:"tgt"`
	} `json:"edges"`
	Reachable []string `json:"reachable"`
}

// Decoded is a call graph document turned into engine types
type Decoded struct {
	Graph   *engine.Graph
	Oracle  *engine.MethodSet
	Skipped int // Signatures that could not be parsed
}

// DecodeGraph reads a call graph document
func DecodeGraph(r io.Reader) (*Decoded, error) {
	var doc graphDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode call graph document: %w", err)
	}

	out := &Decoded{Graph: engine.NewGraph()}
	parse := func(s string) (models.MethodSignature, bool) {
		sig, err := models.ParseSignature(s)
		if err != nil {
			out.Skipped++
			return sig, false
		}
		return sig, true
	}

	for _, c := range doc.Classes {
		class := models.Class{Name: c.Name, Application: c.Application}
		for _, m := range c.Methods {
			if sig, ok := parse(m); ok {
				class.Methods = append(class.Methods, sig)
			}
		}
		out.Graph.AddClass(class)
	}

	for _, edge := range doc.Edges {
		src, okSrc := parse(edge.Src)
		tgt, okTgt := parse(edge.Tgt)
		if okSrc && okTgt {
			out.Graph.AddEdge(src, tgt)
		}
	}

	var reachable []models.MethodSignature
	for _, m := range doc.Reachable {
		if sig, ok := parse(m); ok {
			reachable = append(reachable, sig)
		}
	}
	out.Oracle = engine.NewMethodSet(out.Graph, reachable)

	return out, nil
}
