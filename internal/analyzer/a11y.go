package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/callum/sitecheck/internal/browser"
)

type a11ySnapshot struct {
	Lang             string `json:"lang"`
	ImagesMissingAlt int    `json:"imagesMissingAlt"`
	UnnamedButtons   int    `json:"unnamedButtons"`
	UnlabeledInputs  int    `json:"unlabeledInputs"`
	EmptyLinks       int    `json:"emptyLinks"`
}

const a11yExtractJS = `(() => {
	const imgs = [...document.querySelectorAll('img')].filter(i => !i.hasAttribute('alt'));
	const buttons = [...document.querySelectorAll('button')].filter(b =>
		!b.textContent.trim() && !b.getAttribute('aria-label') && !b.getAttribute('title'));
	const inputs = [...document.querySelectorAll('input:not([type=hidden]), select, textarea')].filter(el => {
		if (el.getAttribute('aria-label') || el.getAttribute('aria-labelledby')) return false;
		return !(el.id && document.querySelector('label[for="' + el.id + '"]'));
	});
	const links = [...document.querySelectorAll('a[href]')].filter(a =>
		!a.textContent.trim() && !a.getAttribute('aria-label') && !a.querySelector('img[alt]'));
	return {
		lang: document.documentElement.getAttribute('lang') || '',
		imagesMissingAlt: imgs.length,
		unnamedButtons: buttons.length,
		unlabeledInputs: inputs.length,
		emptyLinks: links.length,
	};
})()`

// Accessibility runs lightweight WCAG checks over the rendered DOM.
type Accessibility struct{}

func (a *Accessibility) ID() string { return "a11y" }

func (a *Accessibility) Run(pctx browser.Context, url string) (*Output, error) {
	var snap a11ySnapshot
	if err := pctx.Evaluate(a11yExtractJS, &snap); err != nil {
		return nil, fmt.Errorf("a11y extraction: %w", err)
	}

	var findings []string
	if snap.Lang == "" {
		findings = append(findings, "document has no lang attribute")
	}
	if snap.ImagesMissingAlt > 0 {
		findings = append(findings, fmt.Sprintf("%d image(s) without alt text", snap.ImagesMissingAlt))
	}
	if snap.UnnamedButtons > 0 {
		findings = append(findings, fmt.Sprintf("%d button(s) without an accessible name", snap.UnnamedButtons))
	}
	if snap.UnlabeledInputs > 0 {
		findings = append(findings, fmt.Sprintf("%d form control(s) without a label", snap.UnlabeledInputs))
	}
	if snap.EmptyLinks > 0 {
		findings = append(findings, fmt.Sprintf("%d link(s) without discernible text", snap.EmptyLinks))
	}

	report := struct {
		URL      string       `json:"url"`
		Snapshot a11ySnapshot `json:"snapshot"`
		Findings []string     `json:"findings"`
	}{URL: url, Snapshot: snap, Findings: findings}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode a11y report: %w", err)
	}
	return &Output{Content: content, PathHint: "a11y.json"}, nil
}
