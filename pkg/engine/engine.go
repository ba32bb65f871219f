// Package engine defines the contract between the dataset pipeline and the
// external program-analysis engine that builds call graphs and runs taint analysis.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
)

var (
	// ErrNoCallGraph is returned when the engine finished without producing a call graph
	ErrNoCallGraph = errors.New("engine produced no call graph")

	// ErrUnknownAlgorithm is returned for an unsupported call graph algorithm name
	ErrUnknownAlgorithm = errors.New("unknown call graph algorithm")
)

// Algorithm selects how the engine resolves virtual calls
type Algorithm string

const (
	AlgorithmAuto  Algorithm = "AUTO"
	AlgorithmCHA   Algorithm = "CHA"
	AlgorithmVTA   Algorithm = "VTA"
	AlgorithmRTA   Algorithm = "RTA"
	AlgorithmSPARK Algorithm = "SPARK"
	AlgorithmGEOM  Algorithm = "GEOM"

	DefaultAlgorithm = AlgorithmCHA
)

// Algorithms lists every supported algorithm in display order
var Algorithms = []Algorithm{AlgorithmAuto, AlgorithmCHA, AlgorithmVTA, AlgorithmRTA, AlgorithmSPARK, AlgorithmGEOM}

// ParseAlgorithm resolves an algorithm name case-insensitively.
// An empty name selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultAlgorithm, nil
	}
	for _, alg := range Algorithms {
		if strings.EqualFold(name, string(alg)) {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: %s. Supported algorithms: %s", ErrUnknownAlgorithm, name, algorithmNames())
}

func algorithmNames() string {
	names := make([]string, len(Algorithms))
	for i, alg := range Algorithms {
		names[i] = string(alg)
	}
	return strings.Join(names, ", ")
}

// Config carries the per-binary analysis settings handed to the engine
type Config struct {
	PlatformDir         string        // Android platform jars, one sub-directory per API level
	AdditionalClasspath []string      // Extra libraries resolved during analysis
	Timeout             time.Duration // Analysis bound enforced by the engine, zero means none
	CodeElimination     string
	EnableReflection    bool
	Algorithm           Algorithm
	ResultsPath         string // Where the leak report is written
	OutputDir           string // Scratch directory for engine artifacts
}

// CallGraph is the raw whole-program call graph of one analyzed binary
type CallGraph interface {
	// Classes returns every class the engine resolved
	Classes() []models.Class
	// EdgesInto returns the edges whose callee is sig
	EdgesInto(sig models.MethodSignature) []models.CallEdge
	// EdgesOutOf returns the edges whose caller is sig
	EdgesOutOf(sig models.MethodSignature) []models.CallEdge
}

// Oracle answers reachability queries from the synthetic entry point.
// known is false when the method does not exist in the engine's universe.
type Oracle interface {
	Lookup(sig models.MethodSignature) (reachable, known bool)
}

// Engine is an external analysis engine
type Engine interface {
	// RunAnalysis analyzes the binary and returns its call graph. The leak report,
	// if any leak is found, is written to cfg.ResultsPath.
	RunAnalysis(ctx context.Context, binaryPath string, cfg Config) (CallGraph, error)
	// ReachableMethods returns the oracle of the last successful analysis
	ReachableMethods() Oracle
	// SinkCatalog returns every sink definition the engine is configured with
	SinkCatalog(ctx context.Context) ([]models.MethodSignature, error)
}
