// Package permissions parses permission mapping catalogs that tie Android
// permissions to the framework APIs they protect.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// ErrMappingUnavailable is returned when no usable permission mapping could be loaded
var ErrMappingUnavailable = errors.New("permission mapping unavailable")

var (
	signaturePattern  = regexp.MustCompile(`^([^(\s]+)\.([^.(\s]+)\(([^)]*)\)(\S*)\s*::`)
	permissionPattern = regexp.MustCompile(`::\s+(.*)$`)
)

// ParseLine parses one mapping statement of the form
//
//	pkg.Class.method(params)ret  ::  perm1, perm2
//
// ok is false when the line does not carry both a signature and a permission list.
func ParseLine(line string) (method models.MethodSignature, permissions []string, ok bool) {
	sig := signaturePattern.FindStringSubmatch(line)
	if sig == nil {
		return models.MethodSignature{}, nil, false
	}
	perms := permissionPattern.FindStringSubmatch(line)
	if perms == nil {
		return models.MethodSignature{}, nil, false
	}

	for _, p := range strings.Split(perms[1], ", ") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}
	if len(permissions) == 0 {
		return models.MethodSignature{}, nil, false
	}

	method = models.MethodSignature{
		DeclaringType: sig[1],
		Name:          sig[2],
		Params:        models.ParseDescriptorParams(sig[3]),
		ReturnType:    sig[4],
	}
	return method, permissions, true
}

// ParseLines builds an index from raw mapping lines. Identical lines are parsed once
// and lines that are not mapping statements are skipped.
func ParseLines(lines []string) (*Index, int) {
	index := NewIndex()
	seen := make(map[string]struct{}, len(lines))
	skipped := 0

	for _, line := range lines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}

		method, perms, ok := ParseLine(line)
		if !ok {
			skipped++
			continue
		}
		for _, p := range perms {
			index.Add(p, method)
		}
	}
	return index, skipped
}

// Parser loads mapping files from a catalog root holding one directory per platform version
type Parser struct {
	config *config.Config
	store  utils.Store
	logger log.Interface
}

// NewParser creates a new mapping parser
func NewParser(cfg *config.Config, store utils.Store, logger log.Interface) *Parser {
	return &Parser{config: cfg, store: store, logger: utils.LoggerOrDiscard(logger)}
}

// Load reads every mapping file below root. Directories and files are visited in
// name order. A missing root, or a root without any mapping statement, yields
// ErrMappingUnavailable.
func (p *Parser) Load(ctx context.Context, root string) (*Index, error) {
	if !utils.DirectoryExists(root) {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMappingUnavailable, root)
	}

	versions, err := p.store.List(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMappingUnavailable, err)
	}

	var lines []string
	files := 0
	for _, version := range versions {
		if !version.IsDir {
			continue
		}
		entries, err := p.store.List(ctx, version.Path)
		if err != nil {
			p.logger.WithError(err).WithField("dir", version.Path).Warn("Failed to list mapping directory")
			continue
		}
		for _, entry := range entries {
			if entry.IsDir || !p.config.IsMappingFile(entry.Name) {
				continue
			}
			content, err := p.store.ReadLines(ctx, entry.Path)
			if err != nil {
				p.logger.WithError(err).WithField("file", entry.Path).Warn("Failed to read mapping file")
				continue
			}
			lines = append(lines, content...)
			files++
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no mapping lines found under %s", ErrMappingUnavailable, root)
	}

	index, skipped := ParseLines(lines)
	if index.Len() == 0 {
		return nil, fmt.Errorf("%w: no permission could be parsed from %d lines under %s", ErrMappingUnavailable, len(lines), root)
	}

	p.logger.WithFields(log.Fields{
		"root":        root,
		"files":       files,
		"lines":       len(lines),
		"skipped":     skipped,
		"permissions": index.Len(),
		"pairs":       index.Pairs(),
	}).Info("Loaded permission mapping")

	return index, nil
}
