// Package report writes the per-binary analysis document kept next to the exported call graph.
package report

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// Report summarizes the analysis of one binary
type Report struct {
	Package          string              `yaml:"package"`
	File             string              `yaml:"file"`
	Label            int                 `yaml:"label"`
	MinSdkVersion    string              `yaml:"min_sdk"`
	TargetSdkVersion string              `yaml:"target_sdk"`
	Size             int64               `yaml:"size"`
	Entropy          float64             `yaml:"entropy"`
	MainActivity     string              `yaml:"main_activity,omitempty"`
	Algorithm        string              `yaml:"algorithm"`
	Permissions      []string            `yaml:"permissions"`
	ReachableMethods []string            `yaml:"reachable_methods"`
	UnknownMethods   int                 `yaml:"unknown_methods"`
	LeakSinks        []string            `yaml:"leak_sinks"`
	Graph            *models.GraphStats  `yaml:"graph,omitempty"`
	GatedCallers     map[string][]string `yaml:"gated_callers,omitempty"`  // Reachable gated API -> application callers
	ActivityCalls    []string            `yaml:"activity_calls,omitempty"` // Methods called from the main activity's onCreate
	Phases           map[string]float64  `yaml:"phases,omitempty"`         // Seconds per pipeline phase
	GeneratedAt      time.Time           `yaml:"generated_at"`
	Generator        string              `yaml:"generator"`
}

// Signatures renders methods with their column names
func Signatures(methods []models.MethodSignature) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.String()
	}
	return out
}

// Write stores the report as YAML at path
func Write(ctx context.Context, store utils.Store, path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := store.WriteFile(ctx, path, data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write
func Read(ctx context.Context, store utils.Store, path string) (*Report, error) {
	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}
