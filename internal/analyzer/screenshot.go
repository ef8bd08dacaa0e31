package analyzer

import (
	"fmt"

	"github.com/callum/sitecheck/internal/browser"
)

// DefaultViewports are the screen sizes captured when none are configured.
var DefaultViewports = []Viewport{
	{Name: "desktop", Width: 1920, Height: 1080},
	{Name: "mobile", Width: 390, Height: 844},
}

// Screenshots captures full-page screenshots across a set of viewports.
// Each viewport is expanded by the pipeline into its own work item so one
// size failing never hides the others.
type Screenshots struct {
	viewports []Viewport
}

// NewScreenshots returns a Screenshots analyzer with the default viewports.
func NewScreenshots() *Screenshots {
	return &Screenshots{viewports: DefaultViewports}
}

// NewScreenshotsWith returns a Screenshots analyzer with explicit viewports.
func NewScreenshotsWith(viewports []Viewport) *Screenshots {
	if len(viewports) == 0 {
		viewports = DefaultViewports
	}
	return &Screenshots{viewports: viewports}
}

func (s *Screenshots) ID() string { return "screenshots" }

// Viewports lists the dimensions this analyzer iterates.
func (s *Screenshots) Viewports() []Viewport {
	out := make([]Viewport, len(s.viewports))
	copy(out, s.viewports)
	return out
}

// Capture takes one screenshot at the given viewport.
func (s *Screenshots) Capture(pctx browser.Context, url string, vp Viewport) (*Output, error) {
	buf, err := pctx.Screenshot(vp.Width, vp.Height)
	if err != nil {
		return nil, err
	}
	return &Output{
		Content:  buf,
		PathHint: fmt.Sprintf("screenshot-%s.png", vp.Name),
	}, nil
}

// Run captures the first viewport only. The pipeline normally calls Capture
// per viewport; Run exists so Screenshots still satisfies PageAnalyzer.
func (s *Screenshots) Run(pctx browser.Context, url string) (*Output, error) {
	return s.Capture(pctx, url, s.viewports[0])
}
