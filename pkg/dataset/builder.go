package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// Builder appends analysis records to a dataset file
type Builder struct {
	registry *Registry
	path     string
	logger   log.Interface
}

// NewBuilder creates a builder writing to path
func NewBuilder(registry *Registry, path string, logger log.Interface) *Builder {
	return &Builder{registry: registry, path: path, logger: utils.LoggerOrDiscard(logger)}
}

// Path returns the dataset file path
func (b *Builder) Path() string {
	return b.path
}

// Prepare readies the dataset file before the first row. A fresh dataset truncates
// any existing file and writes the header. Otherwise an existing header must match
// the frozen schema. created reports whether the file now holds only the header.
func (b *Builder) Prepare(fresh bool) (created bool, err error) {
	if _, err := b.registry.Schema(); err != nil {
		return false, err
	}

	if fresh || !utils.FileExists(b.path) {
		return true, b.create()
	}

	header, err := readFirstLine(b.path)
	if err != nil {
		return false, err
	}
	if header == "" {
		return true, b.create()
	}
	if err := b.registry.ValidateHeader(header); err != nil {
		return false, fmt.Errorf("%s: %w", b.path, err)
	}
	b.logger.WithField("file", b.path).Info("Appending to existing dataset")
	return false, nil
}

func (b *Builder) create() error {
	file, err := utils.SafeCreateFile(b.path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := b.registry.WriteHeader(file); err != nil {
		return err
	}
	b.logger.WithField("file", b.path).Info("Created dataset")
	return nil
}

// Row renders a record against the frozen schema
func (b *Builder) Row(record *models.AnalysisRecord) ([]string, error) {
	schema, err := b.registry.Schema()
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no analysis record")
	}

	for name, value := range map[string]string{
		"package":    record.PackageName,
		"min_sdk":    record.MinSdkVersion,
		"target_sdk": record.TargetSdkVersion,
	} {
		if strings.ContainsAny(value, Separator+"\r\n") {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidField, name, value)
		}
	}

	label := strconv.Itoa(record.Label)
	row := make([]string, 0, schema.Width())
	row = append(row,
		label,
		record.PackageName,
		record.MinSdkVersion,
		record.TargetSdkVersion,
		strconv.FormatInt(record.FileSize, 10),
		strconv.FormatFloat(record.Entropy, 'f', 6, 64),
	)
	for _, p := range schema.Permissions {
		row = append(row, flag(record.HasPermission(p)))
	}
	for _, m := range schema.Methods {
		row = append(row, flag(record.IsReachable(m)))
	}
	for _, s := range schema.Sinks {
		row = append(row, flag(record.IsLeakSink(s)))
	}
	row = append(row, label)

	if len(row) != schema.Width() {
		return nil, fmt.Errorf("row has %d columns, schema has %d", len(row), schema.Width())
	}
	return row, nil
}

// Append writes the record as one row at the end of the dataset file. A missing
// file is created with its header first.
func (b *Builder) Append(record *models.AnalysisRecord) error {
	row, err := b.Row(record)
	if err != nil {
		return err
	}

	if !utils.FileExists(b.path) {
		if err := b.create(); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(b.path, os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 - dataset path comes from validated output folder
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	if _, err := io.WriteString(file, strings.Join(row, Separator)+"\n"); err != nil {
		return fmt.Errorf("failed to append dataset row: %w", err)
	}

	b.logger.WithField("package", record.PackageName).Debug("Appended dataset row")
	return nil
}

func flag(set bool) string {
	if set {
		return "1"
	}
	return "0"
}

func readFirstLine(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - dataset path comes from validated output folder
	if err != nil {
		return "", fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read dataset header: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
