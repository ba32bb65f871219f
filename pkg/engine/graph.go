package engine

import "github.com/smith-xyz/apk-dataset-generator/pkg/models"

// Graph is an in-memory CallGraph
type Graph struct {
	classes  []models.Class
	into     map[string][]models.CallEdge
	outOf    map[string][]models.CallEdge
	universe map[string]struct{}
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		into:     make(map[string][]models.CallEdge),
		outOf:    make(map[string][]models.CallEdge),
		universe: make(map[string]struct{}),
	}
}

// AddClass registers a resolved class and its methods
func (g *Graph) AddClass(class models.Class) {
	g.classes = append(g.classes, class)
	for _, m := range class.Methods {
		g.universe[m.Key()] = struct{}{}
	}
}

// AddEdge records a call from caller to callee
func (g *Graph) AddEdge(caller, callee models.MethodSignature) {
	edge := models.CallEdge{Caller: caller, Callee: callee}
	g.outOf[caller.Key()] = append(g.outOf[caller.Key()], edge)
	g.into[callee.Key()] = append(g.into[callee.Key()], edge)
	g.universe[caller.Key()] = struct{}{}
	g.universe[callee.Key()] = struct{}{}
}

// Classes returns the resolved classes in registration order
func (g *Graph) Classes() []models.Class {
	return g.classes
}

// EdgesInto returns the edges whose callee is sig
func (g *Graph) EdgesInto(sig models.MethodSignature) []models.CallEdge {
	return g.into[sig.Key()]
}

// EdgesOutOf returns the edges whose caller is sig
func (g *Graph) EdgesOutOf(sig models.MethodSignature) []models.CallEdge {
	return g.outOf[sig.Key()]
}

// Contains reports whether the method is declared by a resolved class or takes part in an edge
func (g *Graph) Contains(sig models.MethodSignature) bool {
	_, ok := g.universe[sig.Key()]
	return ok
}

// MethodSet is an Oracle backed by a reachable set and the graph's method universe
type MethodSet struct {
	graph     *Graph
	reachable map[string]struct{}
}

// NewMethodSet creates an oracle over graph. Reachable methods are always known,
// even when graph is nil or does not declare them.
func NewMethodSet(graph *Graph, reachable []models.MethodSignature) *MethodSet {
	set := &MethodSet{graph: graph, reachable: make(map[string]struct{}, len(reachable))}
	for _, m := range reachable {
		set.reachable[m.Key()] = struct{}{}
	}
	return set
}

// Lookup implements Oracle
func (s *MethodSet) Lookup(sig models.MethodSignature) (bool, bool) {
	if _, ok := s.reachable[sig.Key()]; ok {
		return true, true
	}
	return false, s.graph != nil && s.graph.Contains(sig)
}

// Len returns the number of reachable methods
func (s *MethodSet) Len() int {
	return len(s.reachable)
}
