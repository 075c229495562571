package schemas

import "time"

// JobState represents the current state of a compile job
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateValidating JobState = "validating"
	JobStateCompiling  JobState = "compiling"
	JobStateExporting  JobState = "exporting"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	JobStateCancelled  JobState = "cancelled"
)

// JobStatus represents the externally visible state of a job
type JobStatus struct {
	JobID       string         `json:"job_id"`
	Name        string         `json:"name"`
	Status      JobState       `json:"status"`
	Progress    *Progress      `json:"progress,omitempty"`
	Error       *ErrorInfo     `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      *CompileResult `json:"result,omitempty"`
	Artifacts   []Artifact     `json:"artifacts,omitempty"`
}

// Progress represents job progress information
type Progress struct {
	OverallPercent float64 `json:"overall_percent"`
	CurrentStep    string  `json:"current_step"`
}

// Artifact describes an exported file
type Artifact struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
}
