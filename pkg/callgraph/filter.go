package callgraph

import (
	"github.com/apex/log"
	"golang.org/x/tools/container/intsets"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

// Filter reduces an engine call graph to the application's own code
type Filter struct {
	config *config.Config
	logger log.Interface
}

// NewFilter creates a new call graph filter
func NewFilter(cfg *config.Config, logger log.Interface) *Filter {
	return &Filter{config: cfg, logger: utils.LoggerOrDiscard(logger)}
}

// ApplicationGraph is the filtered call graph of one binary. Every method gets a
// dense index in first-seen order; adjacency is kept per index in both directions.
type ApplicationGraph struct {
	PackageName string

	nodes   []models.MethodSignature
	index   map[string]int
	callers []*intsets.Sparse
	callees []*intsets.Sparse
	edges   int
}

func newApplicationGraph(packageName string) *ApplicationGraph {
	return &ApplicationGraph{
		PackageName: packageName,
		index:       make(map[string]int),
	}
}

// Build walks the incoming and outgoing edges of every application method
// declared in a valid class and records each valid edge once.
func (f *Filter) Build(graph engine.CallGraph, packageName string) (*ApplicationGraph, error) {
	if graph == nil {
		f.logger.Error("Cannot filter a missing call graph")
		return nil, engine.ErrNoCallGraph
	}

	scope := config.NewContextAwareConfig(f.config, packageName)
	classes := graph.Classes()
	application := make(map[string]bool, len(classes))
	valid := make(map[string]bool, len(classes))
	local := 0
	for _, class := range classes {
		if !class.Application {
			continue
		}
		application[class.Name] = true
		if scope.IsLocalClass(class.Name) {
			local++
		}
		if !scope.IsResourceClass(class.Name) {
			valid[class.Name] = true
		}
	}

	isApplicationMethod := func(m models.MethodSignature) bool {
		return scope.IsApplicationMethod(m.DeclaringType, m.Name)
	}
	isValidEdge := func(edge models.CallEdge) bool {
		if !application[edge.Caller.DeclaringType] {
			return false
		}
		if !isApplicationMethod(edge.Caller) || !isApplicationMethod(edge.Callee) {
			return false
		}
		return valid[edge.Caller.DeclaringType] || valid[edge.Callee.DeclaringType]
	}

	app := newApplicationGraph(packageName)
	for _, class := range classes {
		if !valid[class.Name] {
			continue
		}
		for _, method := range class.Methods {
			if !isApplicationMethod(method) {
				continue
			}
			for _, edge := range graph.EdgesInto(method) {
				if isValidEdge(edge) {
					app.addEdge(edge.Caller, edge.Callee)
				}
			}
			for _, edge := range graph.EdgesOutOf(method) {
				if isValidEdge(edge) {
					app.addEdge(edge.Caller, edge.Callee)
				}
			}
		}
	}

	f.logger.WithFields(log.Fields{
		"package":       packageName,
		"valid_classes": len(valid),
		"local_classes": local,
		"nodes":         len(app.nodes),
		"edges":         app.edges,
	}).Debug("Filtered application call graph")

	return app, nil
}

func (g *ApplicationGraph) node(sig models.MethodSignature) int {
	key := sig.Key()
	if id, ok := g.index[key]; ok {
		return id
	}
	id := len(g.nodes)
	g.index[key] = id
	g.nodes = append(g.nodes, sig)
	g.callers = append(g.callers, &intsets.Sparse{})
	g.callees = append(g.callees, &intsets.Sparse{})
	return id
}

func (g *ApplicationGraph) addEdge(caller, callee models.MethodSignature) {
	p := g.node(caller)
	c := g.node(callee)
	if g.callers[c].Insert(p) {
		g.callees[p].Insert(c)
		g.edges++
	}
}

// Nodes returns the methods in index order
func (g *ApplicationGraph) Nodes() []models.MethodSignature {
	return append([]models.MethodSignature(nil), g.nodes...)
}

// Stats returns the node and edge counts and the highest method degree
func (g *ApplicationGraph) Stats() models.GraphStats {
	stats := models.GraphStats{Nodes: len(g.nodes), Edges: g.edges}
	for _, sig := range g.nodes {
		if degree := len(g.Adjacent(sig)); degree > stats.MaxDegree {
			stats.MaxDegree = degree
		}
	}
	return stats
}

// Contains reports whether the method is part of the filtered graph
func (g *ApplicationGraph) Contains(sig models.MethodSignature) bool {
	_, ok := g.index[sig.Key()]
	return ok
}

// GetCallersOf returns the methods calling sig
func (g *ApplicationGraph) GetCallersOf(sig models.MethodSignature) []models.MethodSignature {
	id, ok := g.index[sig.Key()]
	if !ok {
		return nil
	}
	return g.signatures(g.callers[id])
}

// GetCalleesOf returns the methods called by sig
func (g *ApplicationGraph) GetCalleesOf(sig models.MethodSignature) []models.MethodSignature {
	id, ok := g.index[sig.Key()]
	if !ok {
		return nil
	}
	return g.signatures(g.callees[id])
}

// Adjacent returns both callers and callees of sig
func (g *ApplicationGraph) Adjacent(sig models.MethodSignature) []models.MethodSignature {
	id, ok := g.index[sig.Key()]
	if !ok {
		return nil
	}
	var both intsets.Sparse
	both.Union(g.callers[id], g.callees[id])
	return g.signatures(&both)
}

// FindMethodsByName returns the methods of a class with the given name
func (g *ApplicationGraph) FindMethodsByName(className, methodName string) []models.MethodSignature {
	var matches []models.MethodSignature
	for _, sig := range g.nodes {
		if sig.DeclaringType == className && sig.Name == methodName {
			matches = append(matches, sig)
		}
	}
	return matches
}

func (g *ApplicationGraph) signatures(set *intsets.Sparse) []models.MethodSignature {
	out := make([]models.MethodSignature, 0, set.Len())
	for _, id := range set.AppendTo(nil) {
		out = append(out, g.nodes[id])
	}
	return out
}
