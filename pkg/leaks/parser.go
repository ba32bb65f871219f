// Package leaks reads the taint analysis report and extracts the sinks that took
// part in a confirmed leak.
package leaks

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// ErrNoReport is returned when the engine wrote no leak report
var ErrNoReport = errors.New("no leak report")

const definitionAttr = "MethodSourceSinkDefinition"

// Parser extracts leak sinks. Its state is cleared at the start of every parse.
type Parser struct {
	store  utils.Store
	logger log.Interface

	sinks []models.MethodSignature
	seen  map[string]struct{}
}

// NewParser creates a leak report parser
func NewParser(store utils.Store, logger log.Interface) *Parser {
	return &Parser{store: store, logger: utils.LoggerOrDiscard(logger)}
}

func (p *Parser) reset() {
	p.sinks = nil
	p.seen = make(map[string]struct{})
}

// Parse walks Results, Result and Sink elements and collects the definition
// attribute of every Sink. On error the collected set is discarded.
func (p *Parser) Parse(r io.Reader) ([]models.MethodSignature, error) {
	p.reset()

	decoder := xml.NewDecoder(r)
	var path []string
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.reset()
			return nil, fmt.Errorf("malformed leak report: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			if !inSink(path) {
				continue
			}
			for _, attr := range t.Attr {
				if attr.Name.Local == definitionAttr {
					p.add(attr.Value)
				}
			}
		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}

	return p.Sinks(), nil
}

// ParseFile parses the report at path. A missing report yields ErrNoReport.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]models.MethodSignature, error) {
	p.reset()
	if path == "" || !p.store.Exists(ctx, path) {
		return nil, ErrNoReport
	}
	data, err := p.store.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.Parse(bytes.NewReader(data))
}

// Sinks returns the sinks collected by the last parse in document order
func (p *Parser) Sinks() []models.MethodSignature {
	return append([]models.MethodSignature(nil), p.sinks...)
}

func (p *Parser) add(definition string) {
	sig, err := models.ParseSignature(definition)
	if err != nil {
		p.logger.WithField("definition", definition).WithError(err).Warn("Ignoring unparseable sink definition")
		return
	}
	key := sig.Key()
	if _, dup := p.seen[key]; dup {
		return
	}
	p.seen[key] = struct{}{}
	p.sinks = append(p.sinks, sig)
}

// inSink reports whether the innermost element is a Sink directly inside Results/Result
func inSink(path []string) bool {
	n := len(path)
	return n >= 3 && path[n-1] == "Sink" && path[n-2] == "Result" && path[n-3] == "Results"
}
