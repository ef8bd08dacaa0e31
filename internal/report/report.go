// Package report renders the session's results as markdown and as HTML
// derived from the markdown. Report failures degrade to partial output and
// never alter test outcomes.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/callum/sitecheck/internal/models"
	"github.com/callum/sitecheck/internal/output"
)

// Markdown renders the full session report.
func Markdown(summary models.SessionSummary, pages []models.PageResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Site check report\n\n")
	fmt.Fprintf(&b, "- Session: `%s`\n", summary.SessionID)
	fmt.Fprintf(&b, "- Start URL: %s\n", summary.URL)
	fmt.Fprintf(&b, "- Pages: %d\n", summary.TotalPages)
	fmt.Fprintf(&b, "- Tests: %d run, %d succeeded, %d failed\n", summary.TestsRun, summary.TestsSucceeded, summary.TestsFailed)
	fmt.Fprintf(&b, "- Duration: %s\n\n", summary.Duration().Round(time.Second))

	for _, page := range pages {
		fmt.Fprintf(&b, "## %s\n\n", page.PageName)
		if page.URL != "" {
			fmt.Fprintf(&b, "%s\n\n", page.URL)
		}
		fmt.Fprintf(&b, "%s\n\n", page.Summary)
		if len(page.Tests) == 0 {
			continue
		}

		fmt.Fprintf(&b, "| Test | Status | Duration | Output |\n")
		fmt.Fprintf(&b, "|------|--------|----------|--------|\n")
		for _, t := range page.Tests {
			detail := t.OutputPath
			if t.Err != nil {
				detail = t.Err.Error()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				t.TestType, t.Status, t.Duration().Round(time.Millisecond), escapePipes(detail))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(summary.Errors) > 0 {
		fmt.Fprintf(&b, "## Errors\n\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		fmt.Fprintf(&b, "\n")
	}

	return []byte(b.String())
}

// HTML converts a markdown report to a standalone HTML document.
func HTML(markdown []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("render HTML report: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Site check report</title>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// Write renders and persists both report formats through the output sink,
// returning the written paths.
func Write(sink output.Sink, summary models.SessionSummary, pages []models.PageResult) (mdPath, htmlPath string, err error) {
	md := Markdown(summary, pages)
	mdPath, err = sink.Save(md, "report.md")
	if err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	html, err := HTML(md)
	if err != nil {
		return mdPath, "", err
	}
	htmlPath, err = sink.Save(html, "report.html")
	if err != nil {
		return mdPath, "", fmt.Errorf("write HTML report: %w", err)
	}
	return mdPath, htmlPath, nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
