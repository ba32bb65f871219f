// Package dataset fixes the feature columns of a batch and writes one
// tab separated row per analyzed binary.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/permissions"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

var (
	// ErrSchemaNotFrozen is returned when rows are requested before the schema is fixed
	ErrSchemaNotFrozen = errors.New("feature schema not frozen")

	// ErrEmptySchema is returned when the schema inputs are not ready
	ErrEmptySchema = errors.New("feature schema inputs are empty")

	// ErrHeaderMismatch is returned when an existing dataset was written with another schema
	ErrHeaderMismatch = errors.New("dataset header does not match feature schema")

	// ErrInvalidField is returned when a metadata value would break the row layout
	ErrInvalidField = errors.New("dataset field contains a separator")
)

// Separator is the column separator of the dataset file
const Separator = "\t"

var (
	metadataColumns = []string{"label", "package", "min_sdk", "target_sdk", "size", "entropy"}
	targetColumn    = "class"
)

// Schema is the ordered column set shared by every row of a dataset
type Schema struct {
	Permissions []string
	Methods     []models.MethodSignature
	Sinks       []models.MethodSignature
}

// Header returns the column names
func (s *Schema) Header() []string {
	header := make([]string, 0, s.Width())
	header = append(header, metadataColumns...)
	header = append(header, s.Permissions...)
	for _, m := range s.Methods {
		header = append(header, m.String())
	}
	for _, m := range s.Sinks {
		header = append(header, m.String())
	}
	return append(header, targetColumn)
}

// HeaderLine returns the header as it is written to the dataset file, without newline
func (s *Schema) HeaderLine() string {
	return strings.Join(s.Header(), Separator)
}

// Width returns the number of columns
func (s *Schema) Width() int {
	return len(metadataColumns) + len(s.Permissions) + len(s.Methods) + len(s.Sinks) + 1
}

// Registry produces the schema once per batch and keeps it unchanged afterwards
type Registry struct {
	schema *Schema
	logger log.Interface
}

// NewRegistry creates an unfrozen registry
func NewRegistry(logger log.Interface) *Registry {
	return &Registry{logger: utils.LoggerOrDiscard(logger)}
}

// Freeze fixes the schema from the permission index and the sink catalog.
// Inputs are copied, so later changes to them do not affect the schema.
// Calls after the first return the frozen schema unchanged.
func (r *Registry) Freeze(index *permissions.Index, sinks []models.MethodSignature) (*Schema, error) {
	if r.schema != nil {
		return r.schema, nil
	}
	if index == nil || index.Len() == 0 {
		return nil, fmt.Errorf("%w: permission index has no entries", ErrEmptySchema)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: sink catalog has no entries", ErrEmptySchema)
	}

	schema := &Schema{
		Permissions: index.Permissions(),
		Methods:     sortedUnique(index.AllMethods()),
		Sinks:       sortedUnique(sinks),
	}
	r.schema = schema

	r.logger.WithFields(log.Fields{
		"permissions": len(schema.Permissions),
		"methods":     len(schema.Methods),
		"sinks":       len(schema.Sinks),
		"columns":     schema.Width(),
	}).Info("Feature schema frozen")

	return schema, nil
}

// Frozen reports whether the schema has been fixed
func (r *Registry) Frozen() bool {
	return r.schema != nil
}

// Schema returns the frozen schema
func (r *Registry) Schema() (*Schema, error) {
	if r.schema == nil {
		return nil, ErrSchemaNotFrozen
	}
	return r.schema, nil
}

// WriteHeader writes the header row followed by a newline
func (r *Registry) WriteHeader(w io.Writer) error {
	schema, err := r.Schema()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, schema.HeaderLine()+"\n"); err != nil {
		return fmt.Errorf("failed to write dataset header: %w", err)
	}
	return nil
}

// ValidateHeader checks an existing header line against the frozen schema
func (r *Registry) ValidateHeader(line string) error {
	schema, err := r.Schema()
	if err != nil {
		return err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == schema.HeaderLine() {
		return nil
	}
	existing := len(strings.Split(line, Separator))
	return fmt.Errorf("%w: existing header has %d columns, schema has %d", ErrHeaderMismatch, existing, schema.Width())
}

// sortedUnique returns a copy of methods without duplicates, ordered by column name
func sortedUnique(methods []models.MethodSignature) []models.MethodSignature {
	seen := make(map[string]struct{}, len(methods))
	out := make([]models.MethodSignature, 0, len(methods))
	for _, m := range methods {
		if _, dup := seen[m.Key()]; dup {
			continue
		}
		seen[m.Key()] = struct{}{}
		m.Params = append([]string(nil), m.Params...)
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
