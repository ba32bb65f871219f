package utils

import (
	"fmt"
	"runtime"
	"time"

	"github.com/apex/log"
)

// Instrumentation provides timing and progress tracking capabilities
type Instrumentation struct {
	logger log.Interface
}

// NewInstrumentation creates a new instrumentation instance
func NewInstrumentation(logger log.Interface) *Instrumentation {
	return &Instrumentation{logger: LoggerOrDiscard(logger)}
}

// TimedOperation wraps a function with timing instrumentation
func (i *Instrumentation) TimedOperation(name string, operation func() error) error {
	start := time.Now()
	i.logger.WithField("operation", name).Debug("Starting operation")

	err := operation()
	entry := i.logger.WithFields(log.Fields{
		"operation":        name,
		"duration_seconds": time.Since(start).Seconds(),
	})

	if err != nil {
		entry.WithError(err).Error("Operation failed")
	} else {
		entry.Debug("Operation completed")
	}

	return err
}

// ProgressTracker provides progress tracking for long-running operations
type ProgressTracker struct {
	name      string
	total     int
	processed int
	startTime time.Time
	logger    log.Interface
}

// NewProgressTracker creates a new progress tracker
func (i *Instrumentation) NewProgressTracker(name string, total int) *ProgressTracker {
	return &ProgressTracker{
		name:      name,
		total:     total,
		startTime: time.Now(),
		logger:    i.logger,
	}
}

// Update increments the progress and logs the current position with an ETA
func (pt *ProgressTracker) Update(increment int) {
	pt.processed += increment

	elapsed := time.Since(pt.startTime)
	var eta time.Duration
	if pt.processed > 0 && pt.total > pt.processed {
		eta = elapsed / time.Duration(pt.processed) * time.Duration(pt.total-pt.processed)
	}

	percentage := 100.0
	if pt.total > 0 {
		percentage = float64(pt.processed) / float64(pt.total) * 100
	}

	pt.logger.WithFields(log.Fields{
		"operation":       pt.name,
		"processed":       pt.processed,
		"total":           pt.total,
		"percentage":      fmt.Sprintf("%.1f", percentage),
		"elapsed_seconds": elapsed.Seconds(),
		"eta_seconds":     eta.Seconds(),
	}).Info("Progress update")
}

// Processed returns the number of processed items
func (pt *ProgressTracker) Processed() int {
	return pt.processed
}

// Complete marks the operation as finished
func (pt *ProgressTracker) Complete() {
	pt.logger.WithFields(log.Fields{
		"operation":        pt.name,
		"processed":        pt.processed,
		"total":            pt.total,
		"duration_seconds": time.Since(pt.startTime).Seconds(),
	}).Debug("Progress tracking completed")
}

// GetMemoryUsage returns current memory usage in a human-readable format
func GetMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	allocMB := float64(m.Alloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024

	return fmt.Sprintf("%.1fMB allocated, %.1fMB system", allocMB, sysMB)
}

// PhaseTracker tracks multiple phases of an operation
type PhaseTracker struct {
	name         string
	phases       map[string]time.Duration
	order        []string
	currentPhase string
	phaseStart   time.Time
	startTime    time.Time
	logger       log.Interface
}

// NewPhaseTracker creates a new phase tracker
func (i *Instrumentation) NewPhaseTracker(name string) *PhaseTracker {
	i.logger.WithField("operation", name).Debug("Starting operation")

	return &PhaseTracker{
		name:      name,
		phases:    make(map[string]time.Duration),
		startTime: time.Now(),
		logger:    i.logger,
	}
}

// StartPhase begins tracking a new phase, ending the current one if any
func (pt *PhaseTracker) StartPhase(phaseName string) {
	if pt.currentPhase != "" {
		pt.EndPhase()
	}

	pt.currentPhase = phaseName
	pt.phaseStart = time.Now()

	pt.logger.WithFields(log.Fields{"phase": phaseName, "parent_operation": pt.name}).Debug("Starting phase")
}

// EndPhase ends the current phase
func (pt *PhaseTracker) EndPhase() {
	if pt.currentPhase == "" {
		return
	}

	duration := time.Since(pt.phaseStart)
	if _, seen := pt.phases[pt.currentPhase]; !seen {
		pt.order = append(pt.order, pt.currentPhase)
	}
	pt.phases[pt.currentPhase] += duration
	pt.logger.WithFields(log.Fields{
		"phase":            pt.currentPhase,
		"duration_seconds": duration.Seconds(),
		"parent_operation": pt.name,
	}).Debug("Phase completed")

	pt.currentPhase = ""
}

// Phases returns the completed phases in the order they first ran
func (pt *PhaseTracker) Phases() []string {
	return append([]string(nil), pt.order...)
}

// Duration returns the accumulated duration of a completed phase
func (pt *PhaseTracker) Duration(phaseName string) time.Duration {
	return pt.phases[phaseName]
}

// Complete finishes the entire operation
func (pt *PhaseTracker) Complete() {
	if pt.currentPhase != "" {
		pt.EndPhase()
	}

	pt.logger.WithFields(log.Fields{
		"operation":        pt.name,
		"phases":           len(pt.order),
		"duration_seconds": time.Since(pt.startTime).Seconds(),
		"memory_usage":     GetMemoryUsage(),
	}).Debug("Operation completed")
}
