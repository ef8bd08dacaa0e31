// Package aggregate classifies completed test results into per-page buckets
// plus one synthetic site-wide bucket, and builds the session summary.
//
// Classification uses the OutputType carried by each result (copied from
// the originating TestDefinition) as the sole authority. Output paths are
// never inspected.
package aggregate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callum/sitecheck/internal/models"
	"github.com/callum/sitecheck/internal/output"
)

// SiteWidePageName names the synthetic bucket for site-wide results.
const SiteWidePageName = "site-wide"

// NewSessionID returns a fresh unique session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Session captures the inputs the aggregator needs beyond the results
// themselves.
type Session struct {
	ID        string
	StartURL  string
	URLs      []string
	Errors    []string // Session-level errors (planning, resource loss)
	StartTime time.Time
	EndTime   time.Time
}

// Build partitions results into PageResults and assembles the summary.
// The partition is exhaustive and disjoint: every result lands in exactly
// one bucket. Build never fails; malformed inputs degrade to partial output.
func Build(session Session, results []models.TestResult) ([]models.PageResult, models.SessionSummary) {
	byURL := make(map[string][]models.TestResult)
	var siteWide []models.TestResult
	var extraURLs []string

	known := make(map[string]bool, len(session.URLs))
	for _, u := range session.URLs {
		known[u] = true
	}

	for _, res := range results {
		if res.OutputType == models.OutputSiteWide {
			siteWide = append(siteWide, res)
			continue
		}
		// Per-page: attach to the producing URL, threaded through from the
		// page runner. A URL outside the discovered set still gets its own
		// bucket so the result is never dropped.
		if !known[res.URL] {
			if _, seen := byURL[res.URL]; !seen {
				extraURLs = append(extraURLs, res.URL)
			}
		}
		byURL[res.URL] = append(byURL[res.URL], res)
	}

	pages := make([]models.PageResult, 0, len(session.URLs)+len(extraURLs)+1)
	for _, u := range append(append([]string{}, session.URLs...), extraURLs...) {
		tests := byURL[u]
		pages = append(pages, models.PageResult{
			URL:      u,
			PageName: output.Slug(u),
			Tests:    tests,
			Summary:  pageSummary(tests),
		})
	}

	// The site-wide bucket exists only if at least one site-wide result does.
	if len(siteWide) > 0 {
		pages = append(pages, models.PageResult{
			PageName: SiteWidePageName,
			Tests:    siteWide,
			Summary:  pageSummary(siteWide),
		})
	}

	summary := buildSummary(session, results)
	return pages, summary
}

// buildSummary computes the roll-up counters in a single pass over the
// flattened result set.
func buildSummary(session Session, results []models.TestResult) models.SessionSummary {
	summary := models.SessionSummary{
		SessionID:  session.ID,
		URL:        session.StartURL,
		TotalPages: len(session.URLs),
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
	}

	for _, res := range results {
		summary.TestsRun++
		if res.Failed() {
			summary.TestsFailed++
			if res.Err != nil {
				target := res.URL
				if target == "" {
					target = SiteWidePageName
				}
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s (%s): %v", res.TestType, target, res.Err))
			}
		} else {
			summary.TestsSucceeded++
		}
	}

	summary.Errors = append(summary.Errors, session.Errors...)
	return summary
}

func pageSummary(tests []models.TestResult) string {
	if len(tests) == 0 {
		return "no tests ran"
	}
	passed := 0
	for _, t := range tests {
		if !t.Failed() {
			passed++
		}
	}
	return fmt.Sprintf("%d/%d tests passed", passed, len(tests))
}
