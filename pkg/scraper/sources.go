package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xhad/sowgen/internal/types"
)

// Verify interface compliance
var (
	_ types.Source = (*ReferenceSource)(nil)
	_ types.Source = (*PageSource)(nil)
	_ types.Source = (*FilingSource)(nil)
)

// ReferenceSource reads example clauses from a fixed clause library page.
type ReferenceSource struct {
	scraper  *Scraper
	url      string
	selector string
	limit    int
}

func NewReferenceSource(s *Scraper, pageURL, selector string, limit int) *ReferenceSource {
	return &ReferenceSource{scraper: s, url: pageURL, selector: selector, limit: limit}
}

func (r *ReferenceSource) Name() string { return "reference" }

// Fetch ignores query; the page is fixed.
func (r *ReferenceSource) Fetch(ctx context.Context, _ string) types.FetchResult {
	result := types.FetchResult{Source: r.Name(), URL: r.url}

	doc, err := r.scraper.Fetch(ctx, r.url)
	if err != nil {
		return r.scraper.failed(result, err)
	}

	result.Items = firstTexts(doc.Find(r.selector), r.limit)
	return settle(result)
}

// PageSource pulls paragraph text from an arbitrary page.
type PageSource struct {
	scraper *Scraper
	limit   int
}

func NewPageSource(s *Scraper, limit int) *PageSource {
	return &PageSource{scraper: s, limit: limit}
}

func (p *PageSource) Name() string { return "url" }

// Fetch treats query as the page URL. The paragraphs are joined into a
// single item. Pages without <p> elements fall back to their main content.
func (p *PageSource) Fetch(ctx context.Context, pageURL string) types.FetchResult {
	pageURL = strings.TrimSpace(pageURL)
	result := types.FetchResult{Source: p.Name(), URL: pageURL}
	if pageURL == "" {
		return settle(result)
	}

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return p.scraper.failed(result, fmt.Errorf("invalid URL %q", pageURL))
	}

	doc, err := p.scraper.Fetch(ctx, pageURL)
	if err != nil {
		return p.scraper.failed(result, err)
	}

	paragraphs := firstTexts(doc.Find("p"), p.limit)
	if len(paragraphs) == 0 {
		if main := extractMainContent(doc); main != "" {
			paragraphs = []string{main}
		}
	}
	if len(paragraphs) > 0 {
		result.Items = []string{strings.Join(paragraphs, "\n")}
	}
	return settle(result)
}

// FilingSource searches a filings index by keyword and follows the first
// limit result rows to pull a snippet from each filing. Rows without a
// filing link still count toward the limit.
type FilingSource struct {
	scraper      *Scraper
	searchURL    string
	baseURL      string
	limit        int
	snippetChars int
}

func NewFilingSource(s *Scraper, searchURL, baseURL string, limit, snippetChars int) *FilingSource {
	return &FilingSource{
		scraper:      s,
		searchURL:    searchURL,
		baseURL:      baseURL,
		limit:        limit,
		snippetChars: snippetChars,
	}
}

func (f *FilingSource) Name() string { return "filings" }

// SearchURL builds the search request for a keyword. The keyword is
// query escaped.
func (f *FilingSource) SearchURL(keyword string) string {
	sep := "?"
	if strings.Contains(f.searchURL, "?") {
		sep = "&"
	}
	return f.searchURL + sep + url.Values{"text": {keyword}}.Encode()
}

func (f *FilingSource) Fetch(ctx context.Context, keyword string) types.FetchResult {
	keyword = strings.TrimSpace(keyword)
	result := types.FetchResult{Source: f.Name()}
	if keyword == "" {
		return settle(result)
	}
	result.URL = f.SearchURL(keyword)

	base, err := url.Parse(f.baseURL)
	if err != nil {
		return f.scraper.failed(result, fmt.Errorf("invalid base URL: %w", err))
	}

	doc, err := f.scraper.Fetch(ctx, result.URL)
	if err != nil {
		return f.scraper.failed(result, err)
	}

	rows := doc.Find("tr.blueRow")
	rows = rows.Slice(0, max(0, min(f.limit, rows.Length())))

	var links []string
	rows.Each(func(_ int, row *goquery.Selection) {
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			if ref, err := url.Parse(href); err == nil {
				links = append(links, base.ResolveReference(ref).String())
			}
		}
	})

	var errs []error
	for _, link := range links {
		snippet, err := f.snippet(ctx, link)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if snippet != "" {
			result.Items = append(result.Items, snippet)
		}
	}

	if len(errs) > 0 && len(result.Items) == 0 {
		return f.scraper.failed(result, errors.Join(errs...))
	}
	if len(errs) > 0 {
		// partial: keep what was fetched, still report the rest
		result.Err = errors.Join(errs...)
		f.scraper.log.Warn("some filings could not be fetched", zap.Error(result.Err))
	}
	return settle(result)
}

func (f *FilingSource) snippet(ctx context.Context, link string) (string, error) {
	doc, err := f.scraper.Fetch(ctx, link)
	if err != nil {
		return "", err
	}

	node := doc.Find("pre").First()
	if node.Length() == 0 {
		node = doc.Find("p").First()
	}
	if node.Length() == 0 {
		return "", nil
	}

	return truncateRunes(strings.TrimSpace(node.Text()), f.snippetChars), nil
}

func settle(result types.FetchResult) types.FetchResult {
	if len(result.Items) == 0 {
		result.Status = types.StatusEmpty
	} else {
		result.Status = types.StatusOK
	}
	return result
}

func (s *Scraper) failed(result types.FetchResult, err error) types.FetchResult {
	s.log.Warn("clause source failed",
		zap.String("source", result.Source),
		zap.String("url", result.URL),
		zap.Error(err))
	result.Status = types.StatusFailed
	result.Err = err
	return result
}
