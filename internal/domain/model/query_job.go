package model

import "time"

type JobStatus string

const (
	JobStatusPending               JobStatus = "pending"
	JobStatusAnalyzingSchema       JobStatus = "analyzing_schema"
	JobStatusRunningExplain        JobStatus = "running_explain"
	JobStatusGeneratingSuggestions JobStatus = "generating_suggestions"
	JobStatusCompleted             JobStatus = "completed"
	JobStatusError                 JobStatus = "error"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Ordinal maps the status onto the pipeline's stage order. Error sorts
// last so that every legal transition is strictly increasing.
func (s JobStatus) Ordinal() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusAnalyzingSchema:
		return 1
	case JobStatusRunningExplain:
		return 2
	case JobStatusGeneratingSuggestions:
		return 3
	case JobStatusCompleted:
		return 4
	case JobStatusError:
		return 5
	}
	return -1
}

// ProgressFloor is the guaranteed minimum progress once a job has entered
// the status. Clients can render a bar from this without knowing anything
// about collaborator internals. 100 is reserved for terminal states.
func (s JobStatus) ProgressFloor() int {
	switch s {
	case JobStatusAnalyzingSchema:
		return 5
	case JobStatusRunningExplain:
		return 25
	case JobStatusGeneratingSuggestions:
		return 60
	case JobStatusCompleted, JobStatusError:
		return 100
	}
	return 0
}

// FailurePreview is the fixed marker recorded for a customer query that
// errored, so clients can tell failures apart from free-form success
// previews.
const FailurePreview = "Query failed"

// ExecutedQuery is one entry of a job's append-only execution log.
type ExecutedQuery struct {
	Query         string    `json:"query"`
	Timestamp     time.Time `json:"timestamp"`
	ResultPreview string    `json:"result_preview"`
}

// QueryJob is the point-in-time snapshot of one analysis job. Instances
// handed out by the orchestrator are immutable: the pipeline builds a new
// snapshot for every update and swaps it in whole.
type QueryJob struct {
	ID                   string          `json:"id"`
	Query                string          `json:"query"`
	Status               JobStatus       `json:"status"`
	CurrentStep          string          `json:"current_step,omitempty"`
	ProgressPercentage   int             `json:"progress_percentage"`
	CurrentCustomerQuery string          `json:"current_customer_query,omitempty"`
	ExecutedQueries      []ExecutedQuery `json:"executed_queries"`
	Suggestions          string          `json:"suggestions,omitempty"`
}

func NewQueryJob(id, query string) *QueryJob {
	return &QueryJob{
		ID:              id,
		Query:           query,
		Status:          JobStatusPending,
		ExecutedQueries: make([]ExecutedQuery, 0),
	}
}

// Clone returns a copy safe to mutate without affecting the receiver.
func (j *QueryJob) Clone() *QueryJob {
	cp := *j
	cp.ExecutedQueries = append([]ExecutedQuery(nil), j.ExecutedQueries...)
	return &cp
}
