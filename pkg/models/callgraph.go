package models

// CallEdge represents a call relationship between two methods
type CallEdge struct {
	Caller MethodSignature `json:"caller"`
	Callee MethodSignature `json:"callee"`
}

// Class is a class resolved by the analysis engine for the binary under analysis
type Class struct {
	Name        string            `json:"name"`
	Application bool              `json:"application"` // Part of the analyzed binary rather than the platform
	Methods     []MethodSignature `json:"methods"`
}

// GraphStats summarizes a filtered application graph
type GraphStats struct {
	Nodes     int `json:"nodes" yaml:"nodes"`
	Edges     int `json:"edges" yaml:"edges"`
	MaxDegree int `json:"max_degree" yaml:"max_degree"` // Most distinct neighbours of a single method
}
