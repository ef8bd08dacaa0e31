package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/callum/sitecheck/internal/browser"
)

// Console reports errors and warnings the page emitted to the browser
// console while loading.
type Console struct{}

func (c *Console) ID() string { return "console" }

func (c *Console) Run(pctx browser.Context, url string) (*Output, error) {
	logs := pctx.ConsoleLogs()

	var errored []browser.ConsoleLog
	for _, l := range logs {
		switch l.Type {
		case "error", "warning", "exception", "assert":
			errored = append(errored, l)
		}
	}

	report := struct {
		URL      string               `json:"url"`
		Total    int                  `json:"total"`
		Problems []browser.ConsoleLog `json:"problems"`
	}{URL: url, Total: len(logs), Problems: errored}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode console report: %w", err)
	}
	return &Output{Content: content, PathHint: "console.json"}, nil
}
