// Package sinks reads source and sink definition files in the
// "<Type: ret name(params)> -> _SINK_" line format.
package sinks

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// Role is the part a method plays in a taint flow
type Role string

const (
	RoleSource Role = "_SOURCE_"
	RoleSink   Role = "_SINK_"
	RoleBoth   Role = "_BOTH_"
)

// Definition is one parsed line of a definition file
type Definition struct {
	Method models.MethodSignature
	Role   Role
}

// IsSink reports whether the definition marks a sink
func (d Definition) IsSink() bool {
	return d.Role == RoleSink || d.Role == RoleBoth
}

// ParseLine parses a single definition line. ok is false for comments,
// blank lines and lines without a role marker.
func ParseLine(line string) (Definition, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
		return Definition{}, false
	}

	body, role, found := strings.Cut(line, "->")
	if !found {
		return Definition{}, false
	}
	fields := strings.Fields(role)
	if len(fields) == 0 {
		return Definition{}, false
	}

	var def Definition
	switch Role(fields[0]) {
	case RoleSource, RoleSink, RoleBoth:
		def.Role = Role(fields[0])
	default:
		return Definition{}, false
	}

	method, err := models.ParseSignature(body)
	if err != nil {
		return Definition{}, false
	}
	def.Method = method
	return def, true
}

// Parse returns the distinct sink methods in file order
func Parse(lines []string) []models.MethodSignature {
	seen := make(map[string]struct{})
	var out []models.MethodSignature
	for _, line := range lines {
		def, ok := ParseLine(line)
		if !ok || !def.IsSink() {
			continue
		}
		key := def.Method.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, def.Method)
	}
	return out
}

// Load reads a definition file through store and returns its distinct sinks
func Load(ctx context.Context, store utils.Store, path string, logger log.Interface) ([]models.MethodSignature, error) {
	logger = utils.LoggerOrDiscard(logger)

	lines, err := store.ReadLines(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sink definitions: %w", err)
	}
	catalog := Parse(lines)
	logger.WithField("file", path).Debugf("Loaded %d sink definitions from %d lines", len(catalog), len(lines))
	return catalog, nil
}
