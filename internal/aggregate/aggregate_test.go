package aggregate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/callum/sitecheck/internal/models"
)

func perPage(testType, url, status string) models.TestResult {
	return models.TestResult{
		TestType:   testType,
		URL:        url,
		Status:     status,
		OutputType: models.OutputPerPage,
	}
}

func siteWide(testType, status string) models.TestResult {
	return models.TestResult{
		TestType:   testType,
		Status:     status,
		OutputType: models.OutputSiteWide,
	}
}

func TestBuild_PartitionIsExhaustiveAndDisjoint(t *testing.T) {
	session := Session{
		ID:       NewSessionID(),
		StartURL: "https://example.com",
		URLs:     []string{"https://example.com", "https://example.com/about"},
	}
	results := []models.TestResult{
		perPage("seo", "https://example.com", models.StatusSuccess),
		perPage("a11y", "https://example.com", models.StatusFailed),
		perPage("seo", "https://example.com/about", models.StatusSuccess),
		siteWide("sitemap", models.StatusSuccess),
	}

	pages, summary := Build(session, results)

	if len(pages) != 3 {
		t.Fatalf("got %d buckets, want 2 page + 1 site-wide", len(pages))
	}

	total := 0
	for _, page := range pages {
		total += len(page.Tests)
		for _, res := range page.Tests {
			if page.PageName == SiteWidePageName && res.OutputType != models.OutputSiteWide {
				t.Errorf("per-page result %s landed in the site-wide bucket", res.TestType)
			}
			if page.PageName != SiteWidePageName && res.OutputType != models.OutputPerPage {
				t.Errorf("site-wide result %s landed in page bucket %s", res.TestType, page.PageName)
			}
		}
	}
	if total != len(results) {
		t.Errorf("buckets hold %d results, want all %d", total, len(results))
	}

	if summary.TestsRun != 4 || summary.TestsSucceeded != 3 || summary.TestsFailed != 1 {
		t.Errorf("summary = %d run / %d ok / %d failed, want 4/3/1",
			summary.TestsRun, summary.TestsSucceeded, summary.TestsFailed)
	}
	if summary.TotalPages != 2 {
		t.Errorf("total pages = %d, want 2", summary.TotalPages)
	}
}

func TestBuild_SiteWideBucketOnlyWhenPopulated(t *testing.T) {
	session := Session{URLs: []string{"https://example.com"}}
	pages, _ := Build(session, []models.TestResult{
		perPage("seo", "https://example.com", models.StatusSuccess),
	})

	for _, page := range pages {
		if page.PageName == SiteWidePageName {
			t.Fatal("site-wide bucket created with no site-wide results")
		}
	}
}

func TestBuild_UnknownURLStillGetsBucket(t *testing.T) {
	session := Session{URLs: []string{"https://example.com"}}
	results := []models.TestResult{
		perPage("seo", "https://example.com", models.StatusSuccess),
		perPage("seo", "https://example.com/surprise", models.StatusSuccess),
	}

	pages, _ := Build(session, results)

	found := false
	for _, page := range pages {
		if page.URL == "https://example.com/surprise" {
			found = true
			if len(page.Tests) != 1 {
				t.Errorf("surprise bucket holds %d tests, want 1", len(page.Tests))
			}
		}
	}
	if !found {
		t.Fatal("result for an undiscovered URL was dropped")
	}
}

func TestBuild_DiscoveredPageWithNoResultsKeepsBucket(t *testing.T) {
	session := Session{URLs: []string{"https://example.com", "https://example.com/skipped"}}
	pages, _ := Build(session, []models.TestResult{
		perPage("seo", "https://example.com", models.StatusSuccess),
	})

	if len(pages) != 2 {
		t.Fatalf("got %d buckets, want 2", len(pages))
	}
	for _, page := range pages {
		if page.URL == "https://example.com/skipped" && page.Summary != "no tests ran" {
			t.Errorf("empty page summary = %q", page.Summary)
		}
	}
}

func TestBuild_ErrorsCollected(t *testing.T) {
	failed := perPage("content", "https://example.com", models.StatusFailed)
	failed.Err = errors.New("rendering engine lost: tab crashed")

	session := Session{
		URLs:   []string{"https://example.com"},
		Errors: []string{"phase 2 aborted: rendering engine lost"},
	}

	_, summary := Build(session, []models.TestResult{failed})

	if len(summary.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", summary.Errors)
	}
	if !strings.Contains(summary.Errors[0], "content (https://example.com)") {
		t.Errorf("result error entry = %q", summary.Errors[0])
	}
	if summary.Errors[1] != "phase 2 aborted: rendering engine lost" {
		t.Errorf("session error entry = %q", summary.Errors[1])
	}
}

func TestBuild_SummaryTiming(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	_, summary := Build(Session{ID: "s1", StartTime: start, EndTime: end}, nil)

	if summary.SessionID != "s1" {
		t.Errorf("session id = %q", summary.SessionID)
	}
	if got := summary.Duration(); got != 90*time.Second {
		t.Errorf("duration = %v, want 90s", got)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == "" || a == b {
		t.Errorf("ids not unique: %q vs %q", a, b)
	}
}
