package model

import "time"

// AnalysisSession is the client-visible batch of jobs created together.
// Job order is fixed at creation and mirrors the submission order.
type AnalysisSession struct {
	ID        string
	JobIDs    []string
	CreatedAt time.Time
}

// OptimizeResult is the outcome of the single-shot optimize path.
type OptimizeResult struct {
	OptimizedQuery string `json:"optimized_query"`
	Explanation    string `json:"explanation"`
}
