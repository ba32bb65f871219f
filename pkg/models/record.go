package models

// ManifestInfo is the subset of manifest metadata consumed by the pipeline
type ManifestInfo struct {
	PackageName      string   `json:"package"`
	MinSdkVersion    string   `json:"min_sdk"`
	TargetSdkVersion string   `json:"target_sdk"`
	Permissions      []string `json:"permissions"`
	MainActivity     string   `json:"main_activity,omitempty"` // Activity handling android.intent.action.MAIN
}

// AnalysisRecord holds every feature collected for a single binary.
// A record is created per binary and never shared.
type AnalysisRecord struct {
	Label            int
	PackageName      string
	MinSdkVersion    string
	TargetSdkVersion string
	FileSize         int64
	Entropy          float64
	Permissions      map[string]struct{}
	ReachableMethods map[string]struct{} // Keyed by MethodSignature.Key()
	LeakSinks        map[string]struct{} // Keyed by MethodSignature.Key()
}

// NewAnalysisRecord creates an empty record with initialized sets
func NewAnalysisRecord(label int) *AnalysisRecord {
	return &AnalysisRecord{
		Label:            label,
		Permissions:      make(map[string]struct{}),
		ReachableMethods: make(map[string]struct{}),
		LeakSinks:        make(map[string]struct{}),
	}
}

// SetPermissions replaces the declared permission set
func (r *AnalysisRecord) SetPermissions(perms []string) {
	r.Permissions = make(map[string]struct{}, len(perms))
	for _, p := range perms {
		r.Permissions[p] = struct{}{}
	}
}

// SetReachableMethods replaces the reachable gated method set
func (r *AnalysisRecord) SetReachableMethods(methods []MethodSignature) {
	r.ReachableMethods = make(map[string]struct{}, len(methods))
	for _, m := range methods {
		r.ReachableMethods[m.Key()] = struct{}{}
	}
}

// SetLeakSinks replaces the confirmed leak sink set
func (r *AnalysisRecord) SetLeakSinks(sinks []MethodSignature) {
	r.LeakSinks = make(map[string]struct{}, len(sinks))
	for _, s := range sinks {
		r.LeakSinks[s.Key()] = struct{}{}
	}
}

// HasPermission reports whether the binary declares the permission
func (r *AnalysisRecord) HasPermission(permission string) bool {
	_, ok := r.Permissions[permission]
	return ok
}

// IsReachable reports whether the gated method was found reachable
func (r *AnalysisRecord) IsReachable(method MethodSignature) bool {
	_, ok := r.ReachableMethods[method.Key()]
	return ok
}

// IsLeakSink reports whether the sink was implicated in a confirmed leak
func (r *AnalysisRecord) IsLeakSink(sink MethodSignature) bool {
	_, ok := r.LeakSinks[sink.Key()]
	return ok
}
