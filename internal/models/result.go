package models

import "time"

// Test result status constants
const (
	StatusSuccess = "success" // Test completed without error
	StatusFailed  = "failed"  // Test failed to execute or reported an error
	StatusPending = "pending" // Test was scheduled but never settled
)

// TestResult records the outcome of one test execution against one target.
// OutputType is copied from the originating TestDefinition at creation time
// and is the sole authority used during aggregation.
type TestResult struct {
	TestType   string     // Test id from the catalog
	URL        string     // Producing URL; empty for session-scoped tests
	Status     string     // success, failed, pending
	StartTime  time.Time  // When execution began
	EndTime    time.Time  // When the result settled
	OutputPath string     // Path returned by the output sink, if any
	OutputType OutputType // Copied from the TestDefinition
	Err        error      // Failure reason when Status == failed
}

// Duration returns the elapsed execution time.
func (r *TestResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Failed reports whether the result represents a failure.
func (r *TestResult) Failed() bool {
	return r.Status == StatusFailed || r.Err != nil
}

// PageResult groups the test results produced for a single page, or for the
// synthetic site-wide bucket. Constructed once by the aggregator and never
// mutated afterwards.
type PageResult struct {
	URL      string       // Page URL; empty for the site-wide bucket
	PageName string       // Display name ("site-wide" for the synthetic bucket)
	Tests    []TestResult // Results attached to this page
	Summary  string       // One-line outcome summary
}

// SessionSummary is the site-wide roll-up of a whole run. It is finalized
// once after the last phase drains.
type SessionSummary struct {
	SessionID      string    // Unique session identifier
	URL            string    // Start URL the session was launched against
	TotalPages     int       // Number of discovered pages
	TestsRun       int       // Total settled test results
	TestsSucceeded int       // Results with success status
	TestsFailed    int       // Results with failed status
	Errors         []string  // Failure messages plus session-level errors
	StartTime      time.Time // Session start
	EndTime        time.Time // Session end
}

// Duration returns the total session wall-clock time.
func (s *SessionSummary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
