package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/manifest"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// ManifestReader implements manifest.Reader with the bridge's manifest sub-command
type ManifestReader struct {
	cfg    config.EngineConfig
	logger log.Interface
}

// NewManifestReader creates a manifest reader
func NewManifestReader(cfg config.EngineConfig, logger log.Interface) *ManifestReader {
	return &ManifestReader{cfg: cfg, logger: utils.LoggerOrDiscard(logger)}
}

// Read implements manifest.Reader
func (r *ManifestReader) Read(ctx context.Context, binaryPath string) (*models.ManifestInfo, error) {
	args := append(append([]string{}, r.cfg.Args...), "manifest", "--apk", binaryPath)
	result := utils.ExecuteCommand(ctx, r.logger, "", r.cfg.Command, args...)
	if !result.Succeeded() {
		return nil, fmt.Errorf("%w: %v", manifest.ErrNoManifest, result.Err("manifest reader"))
	}
	return DecodeManifest(result.Stdout, binaryPath)
}

// DecodeManifest parses the manifest sub-command output
func DecodeManifest(data []byte, binaryPath string) (*models.ManifestInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty manifest output for %s", manifest.ErrNoManifest, binaryPath)
	}

	var info models.ManifestInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", manifest.ErrNoManifest, err)
	}
	return manifest.Normalize(&info, binaryPath), nil
}
