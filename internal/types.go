package internal

import "time"

// RunStatus is the lifecycle state of a document translation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run describes one translation of a LaTeX document. Its chunk progress is
// checkpointed so a failed run can be resumed.
type Run struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	SourceHash string    `json:"source_hash"`
	ChunkSize  int       `json:"chunk_size"`
	ChunkCount int       `json:"chunk_count"`
	Done       int       `json:"done"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
