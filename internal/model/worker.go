package model

// WorkerStatus reflects the live state of a Worker's claim loop(s).
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "IDLE"
	WorkerRunning WorkerStatus = "RUNNING"
	WorkerError   WorkerStatus = "ERROR"
)

// Worker is a logical execution slot claiming Jobs from the Store.
//
// MaxConcurrentJobs is honored: WorkerPool spawns that many independent
// claim-loops for the worker, each running its own JobRunner invocation.
type Worker struct {
	ID                string
	Name              string
	Active            bool
	Status            WorkerStatus
	CurrentJobID      string // empty when idle; informational only at >1 concurrency
	MaxConcurrentJobs int
}
