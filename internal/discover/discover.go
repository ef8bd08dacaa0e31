// Package discover finds the URLs a session will test: sitemap.xml first
// (including sitemaps advertised by robots.txt), falling back to an anchor
// scan of the start page. Only same-host pages are kept.
package discover

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxPages caps discovery when no limit is configured.
	DefaultMaxPages = 25

	fetchTimeout = 15 * time.Second
	maxBodyBytes = 8 << 20
)

// Discoverer finds testable URLs for a start URL.
type Discoverer struct {
	Client   *http.Client
	MaxPages int
}

func (d *Discoverer) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d *Discoverer) maxPages() int {
	if d.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return d.MaxPages
}

// Discover returns the start URL followed by same-host pages found via
// sitemaps or, failing that, the start page's anchors. The result is
// deduplicated, capped, and deterministic for a given site state.
func (d *Discoverer) Discover(ctx context.Context, startURL string) ([]string, error) {
	base, err := url.Parse(startURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid start url %q", startURL)
	}

	sitemaps := d.sitemapCandidates(ctx, base)

	var mu sync.Mutex
	found := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sm := range sitemaps {
		sm := sm
		g.Go(func() error {
			locs, err := d.fetchSitemap(gctx, sm, base)
			if err != nil {
				// A missing or malformed sitemap is not fatal to discovery.
				return nil
			}
			mu.Lock()
			for _, loc := range locs {
				found[loc] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(found) == 0 {
		for _, link := range d.scanAnchors(ctx, base) {
			found[link] = true
		}
	}

	return d.assemble(base, found), nil
}

// sitemapCandidates returns the default sitemap location plus any Sitemap
// directives in robots.txt.
func (d *Discoverer) sitemapCandidates(ctx context.Context, base *url.URL) []string {
	candidates := []string{base.Scheme + "://" + base.Host + "/sitemap.xml"}

	robots, err := d.fetch(ctx, base.Scheme+"://"+base.Host+"/robots.txt")
	if err != nil {
		return candidates
	}
	for _, line := range strings.Split(string(robots), "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 8 && strings.EqualFold(line[:8], "sitemap:") {
			if loc := strings.TrimSpace(line[8:]); loc != "" {
				candidates = append(candidates, loc)
			}
		}
	}
	return candidates
}

type sitemapXML struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndexXML struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// fetchSitemap parses one sitemap document, following a sitemap index one
// level deep.
func (d *Discoverer) fetchSitemap(ctx context.Context, sitemapURL string, base *url.URL) ([]string, error) {
	body, err := d.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var set sitemapXML
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		locs := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if loc := normalize(u.Loc, base); loc != "" {
				locs = append(locs, loc)
			}
		}
		return locs, nil
	}

	var index sitemapIndexXML
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil, fmt.Errorf("unrecognized sitemap format at %s", sitemapURL)
	}

	var locs []string
	for _, child := range index.Sitemaps {
		childLocs, err := d.fetchChildSitemap(ctx, strings.TrimSpace(child.Loc), base)
		if err != nil {
			continue
		}
		locs = append(locs, childLocs...)
	}
	return locs, nil
}

// fetchChildSitemap parses a child of a sitemap index without recursing
// further.
func (d *Discoverer) fetchChildSitemap(ctx context.Context, sitemapURL string, base *url.URL) ([]string, error) {
	body, err := d.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	var set sitemapXML
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, err
	}
	var locs []string
	for _, u := range set.URLs {
		if loc := normalize(u.Loc, base); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

var anchorPattern = regexp.MustCompile(`(?i)<a[^>]+href\s*=\s*["']([^"'#]+)["']`)

// scanAnchors extracts same-host links from the start page markup. Used only
// when no sitemap yields URLs.
func (d *Discoverer) scanAnchors(ctx context.Context, base *url.URL) []string {
	body, err := d.fetch(ctx, base.String())
	if err != nil {
		return nil
	}

	var links []string
	for _, m := range anchorPattern.FindAllStringSubmatch(string(body), -1) {
		ref, err := url.Parse(strings.TrimSpace(m[1]))
		if err != nil {
			continue
		}
		if loc := normalize(base.ResolveReference(ref).String(), base); loc != "" {
			links = append(links, loc)
		}
	}
	return links
}

// assemble orders the final URL list: start URL first, then the remaining
// pages sorted, capped at the configured maximum.
func (d *Discoverer) assemble(base *url.URL, found map[string]bool) []string {
	start := normalize(base.String(), base)
	rest := make([]string, 0, len(found))
	for u := range found {
		if u != start {
			rest = append(rest, u)
		}
	}
	sort.Strings(rest)

	urls := append([]string{start}, rest...)
	if limit := d.maxPages(); len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}

// normalize validates a candidate against the base host and strips fragments
// and trailing slashes so duplicates collapse.
func normalize(raw string, base *url.URL) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host != base.Host {
		return ""
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func (d *Discoverer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sitecheck/1.0")

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
