package model

import "time"

// JobStatus is the lifecycle state of a transcoding Job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCancelled  JobStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions except
// none; CANCELLED, COMPLETED and FAILED are terminal.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job is the durable record of one transcoding task.
//
// Progress invariant: progress==100 iff status==COMPLETED; progress is in
// [0,99] while PROCESSING; progress==0 for PENDING. A Job CANCELLED while
// PROCESSING keeps whatever progress it had reached — cancellation is a
// mid-flight transition, not a reset, so progress==0 for a CANCELLED job
// only holds when it was cancelled before a worker ever claimed it.
type Job struct {
	ID         string
	SourceID   string
	ProfileID  string
	WorkerID   string // empty unless Status == PROCESSING

	InputFilename string
	InputPath     string
	OutputPath    string

	Status   JobStatus
	Progress int

	InputSizeBytes  int64
	OutputSizeBytes int64
	InputDuration   float64
	OutputDuration  float64

	ErrorMessage string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
