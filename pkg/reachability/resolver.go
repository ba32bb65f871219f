// Package reachability decides which permission gated APIs an analyzed binary can
// actually invoke.
package reachability

import (
	"github.com/apex/log"

	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/permissions"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// Result lists the gated methods of one binary by outcome
type Result struct {
	Reachable   []models.MethodSignature
	Unreachable []models.MethodSignature
	// Unknown holds methods the engine never resolved. They count as not reachable.
	Unknown []models.MethodSignature
}

// Resolver checks gated methods against an engine oracle
type Resolver struct {
	index  *permissions.Index
	logger log.Interface
}

// NewResolver creates a resolver over the permission index
func NewResolver(index *permissions.Index, logger log.Interface) *Resolver {
	return &Resolver{index: index, logger: utils.LoggerOrDiscard(logger)}
}

// Resolve queries the oracle for every method gated by a declared permission.
// Each method is reported once, in permission then index order.
func (r *Resolver) Resolve(declared []string, oracle engine.Oracle) *Result {
	result := &Result{}
	if oracle == nil {
		r.logger.Warn("No reachability oracle available, every gated method counts as unknown")
	}

	seen := make(map[string]struct{})
	for _, permission := range declared {
		for _, method := range r.index.Methods(permission) {
			key := method.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if oracle == nil {
				result.Unknown = append(result.Unknown, method)
				continue
			}
			switch reachable, known := oracle.Lookup(method); {
			case reachable:
				r.logger.WithField("method", method.String()).Debug("Method reachable")
				result.Reachable = append(result.Reachable, method)
			case known:
				result.Unreachable = append(result.Unreachable, method)
			default:
				result.Unknown = append(result.Unknown, method)
			}
		}
	}

	r.logger.WithFields(log.Fields{
		"declared":    len(declared),
		"reachable":   len(result.Reachable),
		"unreachable": len(result.Unreachable),
		"unknown":     len(result.Unknown),
	}).Debug("Resolved gated methods")

	return result
}
